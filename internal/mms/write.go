package mms

import (
	"github.com/slonegd/mmsreportd/internal/ber"
	"github.com/slonegd/mmsreportd/internal/mmsvalue"
)

// EncodeWrite builds a confirmed-RequestPDU for the Write service against a
// single named variable: { invokeID, write [5] { variableAccessSpecification:
// listOfVariable [0] SEQUENCE OF ObjectName, listOfData [1] SEQUENCE OF Data } }.
func EncodeWrite(invokeID uint32, name ObjectName, value mmsvalue.Value) []byte {
	content := buildWriteContent(invokeID, name, value)
	buffer := make([]byte, len(content)+8)
	pos := ber.EncodeTL(tagConfirmedRequest, uint32(len(content)), buffer, 0)
	copy(buffer[pos:], content)
	return buffer[:pos+len(content)]
}

func buildWriteContent(invokeID uint32, name ObjectName, value mmsvalue.Value) []byte {
	buffer := make([]byte, 1024)
	pos := 0

	tmp := make([]byte, 8)
	n := ber.EncodeUInt32(invokeID, tmp, 0)
	pos = ber.EncodeTL(byte(ber.Integer), uint32(n), buffer, pos)
	copy(buffer[pos:], tmp[:n])
	pos += n

	writeBody := buildWriteServiceBody(name, value)
	pos = ber.EncodeTL(serviceWrite, uint32(len(writeBody)), buffer, pos)
	copy(buffer[pos:], writeBody)
	pos += len(writeBody)

	return buffer[:pos]
}

// buildWriteServiceBody encodes the Write-Request body directly (there is no
// intermediate [1] wrapper the way Read has one; Write-Request's two members
// sit straight inside the service choice).
func buildWriteServiceBody(name ObjectName, value mmsvalue.Value) []byte {
	buffer := make([]byte, 1024)
	pos := 0

	member := make([]byte, 512)
	memberPos := EncodeObjectName(name, member, 0)
	nameTagged := make([]byte, memberPos+6)
	nameTaggedPos := ber.EncodeTL(byte(ber.Context0Constructed), uint32(memberPos), nameTagged, 0)
	copy(nameTagged[nameTaggedPos:], member[:memberPos])
	nameTaggedPos += memberPos

	sequence := make([]byte, nameTaggedPos+6)
	seqPos := ber.EncodeTL(byte(ber.SequenceConstructed), uint32(nameTaggedPos), sequence, 0)
	copy(sequence[seqPos:], nameTagged[:nameTaggedPos])
	seqPos += nameTaggedPos

	pos = ber.EncodeTL(byte(ber.Context0Constructed), uint32(seqPos), buffer, pos)
	copy(buffer[pos:], sequence[:seqPos])
	pos += seqPos

	dataBuf := make([]byte, 512)
	dataEnd := mmsvalue.EncodeData(value, dataBuf, 0)

	dataSeq := make([]byte, dataEnd+6)
	dataSeqPos := ber.EncodeTL(byte(ber.SequenceConstructed), uint32(dataEnd), dataSeq, 0)
	copy(dataSeq[dataSeqPos:], dataBuf[:dataEnd])
	dataSeqPos += dataEnd

	pos = ber.EncodeTL(byte(ber.Context1Constructed), uint32(dataSeqPos), buffer, pos)
	copy(buffer[pos:], dataSeq[:dataSeqPos])
	pos += dataSeqPos

	return buffer[:pos]
}
