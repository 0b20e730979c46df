package sio

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedTimeProvider struct {
	now time.Time
}

func (f fixedTimeProvider) Now() time.Time { return f.now }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOK},
		{"eagain", syscall.EAGAIN, KindWouldBlock},
		{"ewouldblock", syscall.EWOULDBLOCK, KindWouldBlock},
		{"einprogress", syscall.EINPROGRESS, KindInProgress},
		{"ealready", syscall.EALREADY, KindInProgress},
		{"eintr", syscall.EINTR, KindInterrupted},
		{"etimedout", syscall.ETIMEDOUT, KindTimedOut},
		{"econnrefused", syscall.ECONNREFUSED, KindFatal},
		{"wrapped", os.NewSyscallError("connect", syscall.EINPROGRESS), KindInProgress},
		{"deadline", os.ErrDeadlineExceeded, KindTimedOut},
		{"plain", errors.New("boom"), KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestResultCode(t *testing.T) {
	res := ResultOf(fmt.Errorf("connect: %w", syscall.ECONNREFUSED))
	assert.Equal(t, KindFatal, res.Kind)
	assert.Equal(t, syscall.ECONNREFUSED, res.Code())

	assert.Equal(t, syscall.Errno(0), OK(3).Code())
	assert.Equal(t, 3, OK(3).N)
}

func TestSockaddr(t *testing.T) {
	v4 := Sockaddr{Addr: []byte{127, 0, 0, 1}, Port: 8080}
	assert.Equal(t, IPv4, v4.Family())
	assert.Equal(t, "127.0.0.1:8080", v4.String())

	v6 := Sockaddr{Addr: make([]byte, 16), Port: 443}
	v6.Addr[15] = 1
	assert.Equal(t, IPv6, v6.Family())
	assert.Equal(t, "[::1]:443", v6.String())

	assert.Equal(t, "<invalid>:1", Sockaddr{Addr: []byte{1, 2}, Port: 1}.String())
}

func TestFamily(t *testing.T) {
	assert.Equal(t, 4, IPv4.AddrLen())
	assert.Equal(t, 16, IPv6.AddrLen())
	assert.Equal(t, 0, Family(9).AddrLen())
	assert.Equal(t, "IPv6", IPv6.String())
	assert.Equal(t, "Family(9)", Family(9).String())
}

func TestHandle(t *testing.T) {
	assert.False(t, InvalidHandle.Valid())
	assert.True(t, Handle(3).Valid())
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 0, Millis(0))
	assert.Equal(t, 0, Millis(-time.Second))
	assert.Equal(t, 1, Millis(time.Microsecond))
	assert.Equal(t, 1, Millis(time.Millisecond))
	assert.Equal(t, 2, Millis(1500*time.Microsecond))
}

func TestTimeProvider(t *testing.T) {
	fixed := fixedTimeProvider{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, fixed, GetTimeProvider(fixed))

	SetDefaultTimeProvider(fixed)
	defer SetDefaultTimeProvider(nil)
	assert.Equal(t, fixed.now, GetTimeProvider(nil).Now())

	SetDefaultTimeProvider(nil)
	_, ok := GetTimeProvider(nil).(RealTimeProvider)
	assert.True(t, ok)
}

func TestOptionString(t *testing.T) {
	assert.Equal(t, "SO_REUSEADDR", OptReuseAddr.String())
	assert.Equal(t, "TCP_NODELAY", OptNoDelay.String())
	assert.Equal(t, "Option(200)", Option(200).String())
}
