package mms

import "github.com/slonegd/mmsreportd/internal/ber"

// serviceIdentify is the Identify service choice tag, nested inside a
// confirmed-RequestPDU's content. It shares the numeric value 0xA2 with
// tagConfirmedError, but that tag lives in the top-level PDU CHOICE, a
// different nesting level, so there is no collision on the wire.
const serviceIdentify = 0xA2

// EncodeIdentify builds a confirmed-RequestPDU for the Identify service,
// which carries no parameters. Used as an idle-connection keep-alive: a
// server that is still alive always answers it, regardless of what domain
// or RCBs this client has open.
func EncodeIdentify(invokeID uint32) []byte {
	content := buildIdentifyContent(invokeID)
	buffer := make([]byte, len(content)+8)
	pos := ber.EncodeTL(tagConfirmedRequest, uint32(len(content)), buffer, 0)
	copy(buffer[pos:], content)
	return buffer[:pos+len(content)]
}

func buildIdentifyContent(invokeID uint32) []byte {
	buffer := make([]byte, 16)
	pos := 0

	tmp := make([]byte, 8)
	n := ber.EncodeUInt32(invokeID, tmp, 0)
	pos = ber.EncodeTL(byte(ber.Integer), uint32(n), buffer, pos)
	copy(buffer[pos:], tmp[:n])
	pos += n

	pos = ber.EncodeTL(serviceIdentify, 0, buffer, pos)
	return buffer[:pos]
}
