// Package cotp implements ISO 8073 COTP class 0: connection request/confirm
// and DT TPDU segmentation/reassembly, layered over tpkt framing.
package cotp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/slonegd/mmsreportd/internal/tpkt"
)

const (
	tpduCR = 0xE0
	tpduCC = 0xD0
	tpduDT = 0xF0
	tpduDR = 0x80

	optionTpduSize  = 0xC0
	optionSrcTSAP   = 0xC1
	optionDstTSAP   = 0xC2
	defaultTpduSize = 2048 // 0x0B as the TPDU-size option exponent
)

// ErrRefused is returned when the peer sends a Disconnect Request (DR) or
// an unsupported protocol class instead of a Connect Confirm.
var ErrRefused = errors.New("cotp: connection refused by peer")

// ErrPeerDisconnect is returned when a non-DT TPDU arrives during the data
// phase.
var ErrPeerDisconnect = errors.New("cotp: peer disconnected")

// TSAP is a transport selector; both sides default to the single byte
// {0x00, 0x01} per spec, overridable.
type TSAP []byte

// DefaultTSAP matches the wire captures this client is grounded on.
var DefaultTSAP = TSAP{0x00, 0x01}

// Params configures the connection request.
type Params struct {
	SrcTSAP  TSAP
	DstTSAP  TSAP
	TpduSize int // negotiated TPDU size in bytes, power of two
}

func DefaultParams() Params {
	return Params{SrcTSAP: DefaultTSAP, DstTSAP: DefaultTSAP, TpduSize: defaultTpduSize}
}

// Connection is a COTP class-0 session over a TPKT-framed transport. It is
// not safe for concurrent use; one goroutine owns it, matching the
// orchestrator's single receive loop.
type Connection struct {
	tp        *tpkt.Conn
	localRef  uint16
	remoteRef uint16
	params    Params
}

func New(tp *tpkt.Conn, params Params) *Connection {
	return &Connection{
		tp:       tp,
		localRef: uint16(rand.Intn(0xFFFF) + 1),
		params:   params,
	}
}

func tpduSizeExponent(size int) byte {
	exp := byte(1)
	for (1 << exp) < size {
		exp++
	}
	return exp
}

// Connect sends a CR TPDU and blocks for the peer's CC TPDU, recording its
// source reference as our destination reference.
func (c *Connection) Connect(ctx context.Context) error {
	body := []byte{tpduCR, 0x00, 0x00, byte(c.localRef >> 8), byte(c.localRef & 0xff), 0x00}
	body = append(body, optionTpduSize, 0x01, tpduSizeExponent(c.params.TpduSize))
	body = append(body, optionSrcTSAP, byte(len(c.params.SrcTSAP)))
	body = append(body, c.params.SrcTSAP...)
	body = append(body, optionDstTSAP, byte(len(c.params.DstTSAP)))
	body = append(body, c.params.DstTSAP...)

	frame := append([]byte{byte(len(body))}, body...)
	if err := c.tp.Send(frame); err != nil {
		return fmt.Errorf("cotp: send CR: %w", err)
	}

	resp, err := c.tp.Recv(ctx)
	if err != nil {
		return fmt.Errorf("cotp: recv CC: %w", err)
	}
	if len(resp) < 2 {
		return fmt.Errorf("cotp: CC TPDU too short")
	}

	li := int(resp[0])
	if li+1 > len(resp) {
		return fmt.Errorf("cotp: CC TPDU length-indicator exceeds frame")
	}
	tpdu := resp[1 : li+1]

	switch tpdu[0] {
	case tpduCC:
		if len(tpdu) < 6 {
			return fmt.Errorf("cotp: CC TPDU too short")
		}
		c.remoteRef = uint16(tpdu[3])<<8 | uint16(tpdu[4])
		return nil
	case tpduDR:
		return ErrRefused
	default:
		return fmt.Errorf("%w: unexpected TPDU type 0x%02x", ErrRefused, tpdu[0])
	}
}

// SendData fragments payload into one or more DT TPDUs of at most
// params.TpduSize-3 bytes each, setting the EOT bit on the last fragment.
func (c *Connection) SendData(payload []byte) error {
	maxFragment := c.params.TpduSize - 3
	if maxFragment <= 0 {
		maxFragment = defaultTpduSize - 3
	}

	for pos := 0; ; {
		end := pos + maxFragment
		last := end >= len(payload)
		if last {
			end = len(payload)
		}

		eot := byte(0x00)
		if last {
			eot = 0x80
		}

		tpdu := make([]byte, 0, 3+(end-pos)+1)
		tpdu = append(tpdu, 0x02, tpduDT&0xff, eot)
		tpdu = append(tpdu, payload[pos:end]...)

		if err := c.tp.Send(tpdu); err != nil {
			return fmt.Errorf("cotp: send DT fragment: %w", err)
		}

		if last {
			return nil
		}
		pos = end
	}
}

// RecvData reads DT TPDUs until one with EOT=1 arrives and returns the
// concatenated user data.
func (c *Connection) RecvData(ctx context.Context) ([]byte, error) {
	var out []byte
	for {
		frame, err := c.tp.Recv(ctx)
		if err != nil {
			return nil, err
		}
		if len(frame) < 1 {
			return nil, fmt.Errorf("cotp: empty TPDU")
		}

		li := int(frame[0])
		if li+1 > len(frame) {
			return nil, fmt.Errorf("cotp: TPDU length-indicator exceeds frame")
		}
		header := frame[1 : li+1]
		userData := frame[li+1:]

		if len(header) < 2 {
			return nil, fmt.Errorf("cotp: TPDU header too short")
		}

		switch header[0] {
		case tpduDT:
			eot := header[1]&0x80 != 0
			out = append(out, userData...)
			if eot {
				return out, nil
			}
		case tpduDR:
			return nil, ErrPeerDisconnect
		default:
			return nil, fmt.Errorf("%w: unexpected TPDU type 0x%02x", ErrPeerDisconnect, header[0])
		}
	}
}

func (c *Connection) LocalRef() uint16  { return c.localRef }
func (c *Connection) RemoteRef() uint16 { return c.remoteRef }
