package sio

import (
	"errors"
	"os"
	"syscall"
)

// Classify maps an OS error to a result kind.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		if os.IsTimeout(err) {
			return KindTimedOut
		}
		return KindFatal
	}

	switch {
	case errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK:
		return KindWouldBlock
	case errno == syscall.EINPROGRESS || errno == syscall.EALREADY:
		return KindInProgress
	case errno == syscall.EINTR:
		return KindInterrupted
	case errno == syscall.ETIMEDOUT:
		return KindTimedOut
	default:
		return KindFatal
	}
}

// wrap attaches the primitive name to an errno the way os.NewSyscallError does.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return os.NewSyscallError(op, err)
}
