package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/netsock/limits"
)

// scriptedEndpoint serves reads from a queue of chunks and records writes.
type scriptedEndpoint struct {
	chunks    [][]byte
	readErr   error
	reads     int
	writes    [][]byte
	writeErr  error
	available int
}

func (e *scriptedEndpoint) Read(p []byte) (int, error) {
	e.reads++
	if e.readErr != nil {
		return 0, e.readErr
	}
	if len(e.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, e.chunks[0])
	e.chunks[0] = e.chunks[0][n:]
	if len(e.chunks[0]) == 0 {
		e.chunks = e.chunks[1:]
	}
	return n, nil
}

func (e *scriptedEndpoint) Write(p []byte) error {
	if e.writeErr != nil {
		return e.writeErr
	}
	e.writes = append(e.writes, append([]byte(nil), p...))
	return nil
}

func (e *scriptedEndpoint) Available() int {
	return e.available
}

func TestWriteBuffersUntilFlush(t *testing.T) {
	ep := &scriptedEndpoint{}
	b := NewBuffer(ep)

	n, err := b.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Empty(t, ep.writes)
	assert.Equal(t, 4, b.Pending())

	require.NoError(t, b.WriteByte('!'))
	require.NoError(t, b.Flush())
	require.Len(t, ep.writes, 1)
	assert.Equal(t, "ping!", string(ep.writes[0]))
	assert.Zero(t, b.Pending())

	require.NoError(t, b.Flush())
	assert.Len(t, ep.writes, 1, "empty flush issues no write")
}

func TestWriteFlushesFullBuffer(t *testing.T) {
	ep := &scriptedEndpoint{}
	b := NewBuffer(ep)
	data := bytes.Repeat([]byte{'x'}, limits.StreamBufferSize*2+10)

	n, err := b.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	require.Len(t, ep.writes, 2)
	assert.Len(t, ep.writes[0], limits.StreamBufferSize)
	assert.Len(t, ep.writes[1], limits.StreamBufferSize)
	assert.Equal(t, 10, b.Pending())
}

func TestFlushFailureKeepsBytes(t *testing.T) {
	ep := &scriptedEndpoint{writeErr: errors.New("broken pipe")}
	b := NewBuffer(ep)
	b.Write([]byte("keep"))

	assert.Error(t, b.Flush())
	assert.Equal(t, 4, b.Pending())

	ep.writeErr = nil
	require.NoError(t, b.Flush())
	assert.Equal(t, "keep", string(ep.writes[0]))
}

func TestReadSingleReadPerFill(t *testing.T) {
	ep := &scriptedEndpoint{chunks: [][]byte{[]byte("abc"), []byte("defg")}}
	b := NewBuffer(ep)

	p := make([]byte, 10)
	n, err := b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(p[:n]))
	assert.Equal(t, 1, ep.reads)

	n, err = b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "defg", string(p[:n]))
	assert.Equal(t, 2, ep.reads)

	_, err = b.Read(p)
	assert.Equal(t, io.EOF, err, "zero-byte read is end of stream")
}

func TestReadSmallDestinationUsesBuffer(t *testing.T) {
	ep := &scriptedEndpoint{chunks: [][]byte{[]byte("hello")}}
	b := NewBuffer(ep)

	p := make([]byte, 2)
	n, _ := b.Read(p)
	assert.Equal(t, "he", string(p[:n]))
	assert.Equal(t, 3, b.Buffered())
	n, _ = b.Read(p)
	assert.Equal(t, "ll", string(p[:n]))
	assert.Equal(t, 1, ep.reads)

	n, err := b.Read(p[:0])
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestReadErrorIsReturned(t *testing.T) {
	boom := errors.New("connection reset")
	b := NewBuffer(&scriptedEndpoint{readErr: boom})
	_, err := b.Read(make([]byte, 4))
	assert.ErrorIs(t, err, boom)

	_, err = b.ReadByte()
	assert.ErrorIs(t, err, boom)
}

func TestPutbackAcrossRefill(t *testing.T) {
	ep := &scriptedEndpoint{chunks: [][]byte{[]byte("xyz"), []byte("12")}}
	b := NewBuffer(ep)

	assert.ErrorIs(t, b.UnreadByte(), ErrNoPutback)

	for _, want := range []byte("xyz1") {
		c, err := b.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, want, c)
	}

	require.NoError(t, b.UnreadByte())
	require.NoError(t, b.UnreadByte())
	require.NoError(t, b.UnreadByte())
	assert.ErrorIs(t, b.UnreadByte(), ErrNoPutback)

	rest, err := io.ReadAll(io.LimitReader(b, 4))
	require.NoError(t, err)
	assert.Equal(t, "yz12", string(rest))
}

func TestPutbackSurvivesEmptyRefill(t *testing.T) {
	ep := &scriptedEndpoint{chunks: [][]byte{[]byte("ab"), []byte("c")}}
	b := NewBuffer(ep)

	for _, want := range []byte("abc") {
		c, err := b.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, want, c)
	}
	_, err := b.ReadByte()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, b.UnreadByte())
	require.NoError(t, b.UnreadByte())
	got := make([]byte, 2)
	for i := range got {
		got[i], err = b.ReadByte()
		require.NoError(t, err)
	}
	assert.Equal(t, "bc", string(got))
}

func TestAvailableDelegates(t *testing.T) {
	ep := &scriptedEndpoint{chunks: [][]byte{[]byte("buffered")}, available: 7}
	b := NewBuffer(ep)
	b.ReadByte()

	assert.Equal(t, 7, b.Available())
	assert.Equal(t, 7, b.Buffered())
}
