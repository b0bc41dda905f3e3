// Package tpkt implements RFC 1006 TPKT framing: a 4-byte header
// (version, reserved, 16-bit total length) prefixing each COTP unit on the
// TCP byte stream.
package tpkt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	headerSize   = 4
	version      = 0x03
	reserved     = 0x00
	MaxFrameSize = 0xFFFF
	MaxPayload   = MaxFrameSize - headerSize
)

// ErrTransportClosed is returned when the peer closes the connection
// mid-frame (a clean EOF between frames is reported as io.EOF instead).
var ErrTransportClosed = errors.New("tpkt: connection closed mid-frame")

// ErrFraming is returned when the 4-byte header fails the version/reserved
// invariant.
var ErrFraming = errors.New("tpkt: invalid TPKT header")

// Conn frames a byte-stream connection into TPKT units. It owns no
// concurrency primitives: spec.md's single receive loop is the only caller.
type Conn struct {
	rw net.Conn
}

func New(rw net.Conn) *Conn {
	return &Conn{rw: rw}
}

// Send writes one TPKT frame: header || payload. len(payload) must leave
// room for the 4-byte header within a uint16 total length.
func (c *Conn) Send(payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("tpkt: payload of %d bytes exceeds max %d", len(payload), MaxPayload)
	}
	total := headerSize + len(payload)
	frame := make([]byte, total)
	frame[0] = version
	frame[1] = reserved
	frame[2] = byte(total >> 8)
	frame[3] = byte(total & 0xff)
	copy(frame[headerSize:], payload)

	_, err := c.rw.Write(frame)
	return err
}

// Recv reads exactly one TPKT frame and returns its payload. Short reads are
// retried internally via io.ReadFull; an EOF before any header bytes arrive
// is returned as io.EOF, an EOF mid-frame as ErrTransportClosed.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.rw.SetReadDeadline(deadline)
		defer c.rw.SetReadDeadline(time.Time{})
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(c.rw, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTransportClosed
		}
		return nil, err
	}

	if header[0] != version || header[1] != reserved {
		return nil, fmt.Errorf("%w: got %02x %02x", ErrFraming, header[0], header[1])
	}

	length := int(header[2])<<8 | int(header[3])
	if length < headerSize {
		return nil, fmt.Errorf("%w: length %d shorter than header", ErrFraming, length)
	}

	payload := make([]byte, length-headerSize)
	if len(payload) > 0 {
		if _, err := io.ReadFull(c.rw, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTransportClosed
			}
			return nil, err
		}
	}

	return payload, nil
}

func (c *Conn) Close() error { return c.rw.Close() }
