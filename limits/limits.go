package limits

import (
	"time"

	"github.com/opd-ai/netsock/neterr"
)

const (
	// StreamBufferSize is the capacity of the stream input and output buffers.
	StreamBufferSize = 1024

	// PutbackSize is the span of consumed input kept across a refill.
	PutbackSize = 2

	// DefaultBacklog is used when a listen backlog is not positive.
	DefaultBacklog = 50

	// MaxPort is the largest TCP port.
	MaxPort = 65535

	// MaxTrafficClass is the largest IP_TOS / IPV6_TCLASS value.
	MaxTrafficClass = 255

	// MaxUrgentByte is the largest value SendUrgentData accepts.
	MaxUrgentByte = 255

	// MaxTimeoutMillis bounds socket timeouts expressed in milliseconds.
	MaxTimeoutMillis = int64(^uint32(0) >> 1)
)

// Backlog returns backlog, or DefaultBacklog when it is not positive.
func Backlog(backlog int) int {
	if backlog <= 0 {
		return DefaultBacklog
	}
	return backlog
}

// ValidatePort checks 0 <= port <= MaxPort.
func ValidatePort(op string, port int) error {
	if port < 0 || port > MaxPort {
		return neterr.InvalidArgument(op, "port out of range: %d", port)
	}
	return nil
}

// ValidateBufferSize checks that a socket buffer size is positive.
func ValidateBufferSize(op string, size int) error {
	if size < 1 {
		return neterr.InvalidArgument(op, "buffer size must be positive: %d", size)
	}
	return nil
}

// ValidateTimeout checks that a socket timeout is not negative and fits
// the millisecond option range. Zero means no timeout.
func ValidateTimeout(op string, d time.Duration) error {
	if d < 0 {
		return neterr.InvalidArgument(op, "negative timeout: %v", d)
	}
	if d.Milliseconds() > MaxTimeoutMillis {
		return neterr.InvalidArgument(op, "timeout too large: %v", d)
	}
	return nil
}

// ValidateLinger checks the linger seconds when linger is enabled.
func ValidateLinger(op string, on bool, seconds int) error {
	if on && seconds < 0 {
		return neterr.InvalidArgument(op, "negative linger: %d", seconds)
	}
	return nil
}

// ValidateTrafficClass checks 0 <= tc <= MaxTrafficClass.
func ValidateTrafficClass(op string, tc int) error {
	if tc < 0 || tc > MaxTrafficClass {
		return neterr.InvalidArgument(op, "traffic class out of range: %d", tc)
	}
	return nil
}

// ValidateUrgentByte checks 0 <= v <= MaxUrgentByte.
func ValidateUrgentByte(op string, v int) error {
	if v < 0 || v > MaxUrgentByte {
		return neterr.InvalidArgument(op, "urgent data out of range: %d", v)
	}
	return nil
}
