package mms

import (
	"github.com/slonegd/mmsreportd/internal/ber"
)

// EncodeRead builds a confirmed-RequestPDU for the Read service against one
// or more named variables: { invokeID, read [4] { variableAccessSpecification:
// listOfVariable [0] SEQUENCE OF { variableSpecification: name [0] ObjectName } } }.
func EncodeRead(invokeID uint32, names ...ObjectName) []byte {
	content := buildReadContent(invokeID, names)
	buffer := make([]byte, len(content)+8)
	pos := ber.EncodeTL(tagConfirmedRequest, uint32(len(content)), buffer, 0)
	copy(buffer[pos:], content)
	return buffer[:pos+len(content)]
}

func buildReadContent(invokeID uint32, names []ObjectName) []byte {
	buffer := make([]byte, 1024)
	pos := 0

	tmp := make([]byte, 8)
	n := ber.EncodeUInt32(invokeID, tmp, 0)
	pos = ber.EncodeTL(byte(ber.Integer), uint32(n), buffer, pos)
	copy(buffer[pos:], tmp[:n])
	pos += n

	readBody := buildReadServiceBody(names)
	pos = ber.EncodeTL(serviceRead, uint32(len(readBody)), buffer, pos)
	copy(buffer[pos:], readBody)
	pos += len(readBody)

	return buffer[:pos]
}

func buildReadServiceBody(names []ObjectName) []byte {
	list := make([]byte, 1024)
	listPos := 0
	for _, name := range names {
		member := make([]byte, 512)
		memberPos := EncodeObjectName(name, member, 0)
		listPos = ber.EncodeTL(byte(ber.Context0Constructed), uint32(memberPos), list, listPos)
		copy(list[listPos:], member[:memberPos])
		listPos += memberPos
	}

	sequence := make([]byte, listPos+6)
	seqPos := ber.EncodeTL(byte(ber.SequenceConstructed), uint32(listPos), sequence, 0)
	copy(sequence[seqPos:], list[:listPos])
	seqPos += listPos

	variableAccess := make([]byte, seqPos+6)
	vaPos := ber.EncodeTL(byte(ber.Context0Constructed), uint32(seqPos), variableAccess, 0)
	copy(variableAccess[vaPos:], sequence[:seqPos])
	vaPos += seqPos

	out := make([]byte, vaPos+6)
	outPos := ber.EncodeTL(byte(ber.Context1Constructed), uint32(vaPos), out, 0)
	copy(out[outPos:], variableAccess[:vaPos])
	return out[:outPos+vaPos]
}
