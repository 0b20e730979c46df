// Package stream adapts a socket implementation to buffered byte streams.
//
// A Buffer keeps one output buffer and one input buffer of
// limits.StreamBufferSize bytes. Writes accumulate until the buffer is full
// or Flush is called, and each flush hands the buffered run to a single
// Write. A refill of the input buffer issues at most one Read and keeps the
// last limits.PutbackSize consumed bytes so UnreadByte can step back across
// the refill.
package stream

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/netsock/limits"
)

// Endpoint is the part of a socket implementation a Buffer drives.
type Endpoint interface {
	Read(p []byte) (int, error)
	Write(p []byte) error
	Available() int
}

// ErrNoPutback is returned by UnreadByte when no consumed byte is retained.
var ErrNoPutback = errors.New("stream: no byte to unread")

// Buffer is a buffered reader and writer over an Endpoint. It is not safe
// for concurrent use.
type Buffer struct {
	ep Endpoint

	out  [limits.StreamBufferSize]byte
	outN int

	in   [limits.StreamBufferSize]byte
	r, w int
}

// NewBuffer returns a Buffer over ep.
func NewBuffer(ep Endpoint) *Buffer {
	return &Buffer{ep: ep}
}

// Write buffers p, flushing each time the output buffer fills. The count
// includes bytes accepted into the buffer but not yet sent.
func (b *Buffer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if b.outN == len(b.out) {
			if err := b.Flush(); err != nil {
				return written, err
			}
		}
		n := copy(b.out[b.outN:], p)
		b.outN += n
		written += n
		p = p[n:]

		if b.outN == len(b.out) {
			if err := b.Flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// WriteByte buffers c.
func (b *Buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

// Flush sends the buffered output with one Write. On failure the buffered
// bytes are kept.
func (b *Buffer) Flush() error {
	if b.outN == 0 {
		return nil
	}
	if err := b.ep.Write(b.out[:b.outN]); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Buffer.Flush",
			"buffered": b.outN,
			"error":    err.Error(),
		}).Debug("Flush failed, keeping buffered output")
		return err
	}
	b.outN = 0
	return nil
}

// Pending returns the number of buffered output bytes.
func (b *Buffer) Pending() int {
	return b.outN
}

// fill refills an exhausted input buffer with one Read, keeping up to
// PutbackSize bytes of the previous fill in front.
func (b *Buffer) fill() error {
	keep := limits.PutbackSize
	if b.w < keep {
		keep = b.w
	}
	// The read may land on the retained bytes, so they are restored only
	// once it delivers data.
	var back [limits.PutbackSize]byte
	copy(back[:], b.in[b.w-keep:b.w])

	n, err := b.ep.Read(b.in[keep:])
	if err != nil {
		return err
	}
	if n <= 0 {
		return io.EOF
	}
	copy(b.in[:keep], back[:keep])
	b.r = keep
	b.w = keep + n
	return nil
}

// Read copies buffered input into p, refilling once when the buffer is
// exhausted.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.r == b.w {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.in[b.r:b.w])
	b.r += n
	return n, nil
}

// ReadByte returns the next input byte.
func (b *Buffer) ReadByte() (byte, error) {
	if b.r == b.w {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	c := b.in[b.r]
	b.r++
	return c, nil
}

// UnreadByte steps back one byte. At least PutbackSize steps are available
// after any refill.
func (b *Buffer) UnreadByte() error {
	if b.r == 0 {
		return ErrNoPutback
	}
	b.r--
	return nil
}

// Buffered returns the number of unread input bytes held in the buffer.
func (b *Buffer) Buffered() int {
	return b.w - b.r
}

// Available returns the number of bytes the endpoint can deliver without
// blocking. Bytes already buffered are not counted.
func (b *Buffer) Available() int {
	return b.ep.Available()
}

var (
	_ io.Reader      = (*Buffer)(nil)
	_ io.ByteScanner = (*Buffer)(nil)
	_ io.Writer      = (*Buffer)(nil)
	_ io.ByteWriter  = (*Buffer)(nil)
)
