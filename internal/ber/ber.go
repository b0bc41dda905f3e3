// Package ber implements the subset of ASN.1 Basic Encoding Rules (X.690)
// needed by the MMS codec: tag/length/value primitives for INTEGER, BOOLEAN,
// BIT STRING, OCTET/VISIBLE STRING and the MMS FLOATING POINT convention.
//
// Encoders write into a caller-supplied buffer starting at a position and
// return the position just past what they wrote; decoders read from a buffer
// at a given position (ReadTLV and DecodeLength also return the advanced
// position). Definite-length encoding only; decode
// accepts definite and indefinite length per X.690 §8.1.3.6.
package ber

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrBufferOverflow    = errors.New("ber: buffer overflow")
	ErrInvalidLength     = errors.New("ber: invalid length")
	ErrInvalidIndefinite = errors.New("ber: invalid indefinite length")
	ErrMaxDepthExceeded  = errors.New("ber: maximum nesting depth exceeded")
)

const maxDepth = 50

// TLV is a decoded tag-length-value triple; Content is a subslice of the
// original buffer, not a copy.
type TLV struct {
	Tag      byte
	Content  []byte
	NextPos  int
}

// ReadTLV decodes one TLV starting at pos and returns it along with the
// position just past its content.
func ReadTLV(buf []byte, pos int) (TLV, error) {
	if pos >= len(buf) {
		return TLV{}, ErrBufferOverflow
	}
	tag := buf[pos]
	pos++
	newPos, length, err := DecodeLength(buf, pos, len(buf))
	if err != nil {
		return TLV{}, fmt.Errorf("ber: tag 0x%02x: %w", tag, err)
	}
	return TLV{Tag: tag, Content: buf[newPos : newPos+length], NextPos: newPos + length}, nil
}

// DecodeLength decodes a BER length field starting at bufPos, bounded by
// maxBufPos, and returns the position right after the length octets plus the
// decoded length.
func DecodeLength(buffer []byte, bufPos, maxBufPos int) (newPos int, length int, err error) {
	return decodeLengthRecursive(buffer, bufPos, maxBufPos, 0)
}

func decodeLengthRecursive(buffer []byte, bufPos, maxBufPos, depth int) (newPos int, length int, err error) {
	if bufPos >= maxBufPos {
		return -1, 0, ErrBufferOverflow
	}

	len1 := buffer[bufPos]
	bufPos++

	if len1&0x80 != 0 {
		lenLength := int(len1 & 0x7f)

		if lenLength == 0 {
			indefLength, err := getIndefiniteLength(buffer, bufPos, maxBufPos, depth)
			if err != nil {
				return -1, 0, err
			}
			length = indefLength
		} else {
			length = 0
			for i := 0; i < lenLength; i++ {
				if bufPos >= maxBufPos {
					return -1, 0, ErrBufferOverflow
				}
				length = (length << 8) | int(buffer[bufPos])
				bufPos++
			}
		}
	} else {
		length = int(len1)
	}

	if length < 0 {
		return -1, 0, ErrInvalidLength
	}
	if bufPos+length > maxBufPos {
		return -1, 0, ErrBufferOverflow
	}

	return bufPos, length, nil
}

// getIndefiniteLength scans forward over nested TLVs until it finds the
// end-of-contents octets 0x00 0x00, per X.690 §8.1.5. Some MMS stacks emit
// indefinite-length constructed values in the wild even though nothing here
// produces them on encode.
func getIndefiniteLength(buffer []byte, bufPos, maxBufPos, depth int) (int, error) {
	depth++
	if depth > maxDepth {
		return -1, ErrMaxDepthExceeded
	}

	length := 0
	for bufPos < maxBufPos {
		if bufPos+1 < maxBufPos && buffer[bufPos] == 0 && buffer[bufPos+1] == 0 {
			return length + 2, nil
		}

		length++
		if (buffer[bufPos] & 0x1f) == 0x1f {
			bufPos++
			length++
		}

		newBufPos, subLength, err := decodeLengthRecursive(buffer, bufPos, maxBufPos, depth)
		if err != nil {
			return -1, err
		}

		length += subLength + (newBufPos - bufPos)
		bufPos = newBufPos + subLength
	}

	return -1, ErrInvalidIndefinite
}

// DecodeUint32 interprets intLen octets starting at bufPos as a big-endian
// unsigned integer.
func DecodeUint32(buffer []byte, intLen, bufPos int) uint32 {
	value := uint32(0)
	for i := 0; i < intLen; i++ {
		value = (value << 8) | uint32(buffer[bufPos+i])
	}
	return value
}

// DecodeInt32 interprets intLen octets starting at bufPos as a minimal
// two's-complement big-endian signed integer.
func DecodeInt32(buffer []byte, intLen, bufPos int) int32 {
	var value int32
	if buffer[bufPos]&0x80 == 0x80 {
		value = -1
	}
	for i := 0; i < intLen; i++ {
		value = (value << 8) | int32(buffer[bufPos+i])
	}
	return value
}

// DecodeInt64 is DecodeInt32's 64-bit counterpart, used for MMS Integer
// values wider than 32 bits.
func DecodeInt64(buffer []byte, intLen, bufPos int) int64 {
	var value int64
	if buffer[bufPos]&0x80 == 0x80 {
		value = -1
	}
	for i := 0; i < intLen; i++ {
		value = (value << 8) | int64(buffer[bufPos+i])
	}
	return value
}

func DecodeUint64(buffer []byte, intLen, bufPos int) uint64 {
	value := uint64(0)
	for i := 0; i < intLen; i++ {
		value = (value << 8) | uint64(buffer[bufPos+i])
	}
	return value
}

// DecodeFloat decodes the MMS FLOATING POINT convention for IEEE-754
// binary32: one exponent-width byte (ignored beyond validation by the
// caller) followed by 4 big-endian bytes.
func DecodeFloat(buffer []byte, bufPos int) float32 {
	bufPos++ // exponent-width octet
	bits := binary.BigEndian.Uint32(buffer[bufPos : bufPos+4])
	return math.Float32frombits(bits)
}

// DecodeDouble is DecodeFloat for IEEE-754 binary64 (8 bytes after the
// exponent-width octet).
func DecodeDouble(buffer []byte, bufPos int) float64 {
	bufPos++
	bits := binary.BigEndian.Uint64(buffer[bufPos : bufPos+8])
	return math.Float64frombits(bits)
}

func DecodeBoolean(buffer []byte, bufPos int) bool {
	return buffer[bufPos] != 0
}

// DecodeBitString unpacks a BER BIT STRING content (padding octet + packed
// bits) into a bool slice, MSB-first.
func DecodeBitString(content []byte) []bool {
	if len(content) == 0 {
		return nil
	}
	padding := int(content[0])
	data := content[1:]
	total := len(data)*8 - padding
	if total < 0 {
		total = 0
	}
	bits := make([]bool, total)
	for i := 0; i < total; i++ {
		byteIdx := i / 8
		bitIdx := 7 - uint(i%8)
		bits[i] = data[byteIdx]&(1<<bitIdx) != 0
	}
	return bits
}

// EncodeLength appends a BER length field (minimal encoding) to buffer.
func EncodeLength(length uint32, buffer []byte, bufPos int) int {
	switch {
	case length < 128:
		buffer[bufPos] = byte(length)
		bufPos++
	case length < 256:
		buffer[bufPos] = 0x81
		buffer[bufPos+1] = byte(length)
		bufPos += 2
	case length < 65536:
		buffer[bufPos] = 0x82
		buffer[bufPos+1] = byte(length / 256)
		buffer[bufPos+2] = byte(length % 256)
		bufPos += 3
	default:
		buffer[bufPos] = 0x83
		buffer[bufPos+1] = byte(length / 0x10000)
		buffer[bufPos+2] = byte((length & 0xffff) / 0x100)
		buffer[bufPos+3] = byte(length % 256)
		bufPos += 4
	}
	return bufPos
}

func EncodeTL(tag byte, length uint32, buffer []byte, bufPos int) int {
	buffer[bufPos] = tag
	bufPos++
	return EncodeLength(length, buffer, bufPos)
}

func EncodeBoolean(tag byte, value bool, buffer []byte, bufPos int) int {
	buffer[bufPos] = tag
	buffer[bufPos+1] = 1
	if value {
		buffer[bufPos+2] = 0xFF
	} else {
		buffer[bufPos+2] = 0x00
	}
	return bufPos + 3
}

func EncodeStringWithTag(tag byte, str string, buffer []byte, bufPos int) int {
	bufPos = EncodeTL(tag, uint32(len(str)), buffer, bufPos)
	return bufPos + copy(buffer[bufPos:], str)
}

func EncodeOctetString(tag byte, octetString []byte, buffer []byte, bufPos int) int {
	bufPos = EncodeTL(tag, uint32(len(octetString)), buffer, bufPos)
	return bufPos + copy(buffer[bufPos:], octetString)
}

// EncodeBitString packs bitStringSize bits (MSB-first) from bitString into a
// BER BIT STRING with the given tag, zeroing the unused tail bits per
// X.690 §8.6.2.3.
func EncodeBitString(tag byte, bitStringSize int, bitString []byte, buffer []byte, bufPos int) int {
	byteSize := (bitStringSize + 7) / 8
	padding := byteSize*8 - bitStringSize

	bufPos = EncodeTL(tag, uint32(byteSize+1), buffer, bufPos)
	buffer[bufPos] = byte(padding)
	bufPos++
	bufPos += copy(buffer[bufPos:], bitString[:byteSize])

	if padding > 0 {
		mask := byte(0xFF << uint(padding))
		buffer[bufPos-1] &= mask
	}
	return bufPos
}

// RevertByteOrder reverses octets in place. Nothing in this package calls it:
// the integer and float encoders build big-endian bytes with encoding/binary.
func RevertByteOrder(octets []byte) {
	for i, j := 0, len(octets)-1; i < j; i, j = i+1, j-1 {
		octets[i], octets[j] = octets[j], octets[i]
	}
}

// CompressInteger trims a big-endian two's-complement buffer down to its
// minimal encoded form (drops redundant leading 0x00 or 0xFF bytes) and
// returns the new length.
func CompressInteger(integer []byte) int {
	originalSize := len(integer)
	end := originalSize - 1
	pos := 0

	for pos < end {
		if integer[pos] == 0x00 && integer[pos+1]&0x80 == 0 {
			pos++
			continue
		}
		if integer[pos] == 0xff && integer[pos+1]&0x80 == 0x80 {
			pos++
			continue
		}
		break
	}

	if pos == 0 {
		return originalSize
	}
	copy(integer, integer[pos:])
	return originalSize - pos
}

func EncodeUInt32(value uint32, buffer []byte, bufPos int) int {
	scratch := make([]byte, 5)
	binary.BigEndian.PutUint32(scratch[1:], value)
	size := CompressInteger(scratch)
	return bufPos + copy(buffer[bufPos:], scratch[:size])
}

func EncodeInt32(value int32, buffer []byte, bufPos int) int {
	scratch := make([]byte, 4)
	binary.BigEndian.PutUint32(scratch, uint32(value))
	size := CompressInteger(scratch)
	return bufPos + copy(buffer[bufPos:], scratch[:size])
}

func EncodeInt64(value int64, buffer []byte, bufPos int) int {
	scratch := make([]byte, 8)
	binary.BigEndian.PutUint64(scratch, uint64(value))
	size := CompressInteger(scratch)
	return bufPos + copy(buffer[bufPos:], scratch[:size])
}

func EncodeUInt32WithTL(tag byte, value uint32, buffer []byte, bufPos int) int {
	scratch := make([]byte, 5)
	binary.BigEndian.PutUint32(scratch[1:], value)
	size := CompressInteger(scratch)
	bufPos = EncodeTL(tag, uint32(size), buffer, bufPos)
	return bufPos + copy(buffer[bufPos:], scratch[:size])
}

func EncodeInt32WithTL(tag byte, value int32, buffer []byte, bufPos int) int {
	scratch := make([]byte, 4)
	binary.BigEndian.PutUint32(scratch, uint32(value))
	size := CompressInteger(scratch)
	bufPos = EncodeTL(tag, uint32(size), buffer, bufPos)
	return bufPos + copy(buffer[bufPos:], scratch[:size])
}

// EncodeFloat32 writes the MMS FLOATING POINT convention for an IEEE-754
// binary32 value: exponent-width octet (8) followed by the 4 big-endian
// mantissa/exponent bytes.
func EncodeFloat32(tag byte, value float32, buffer []byte, bufPos int) int {
	bufPos = EncodeTL(tag, 5, buffer, bufPos)
	buffer[bufPos] = 8
	binary.BigEndian.PutUint32(buffer[bufPos+1:], math.Float32bits(value))
	return bufPos + 5
}

// EncodeFloat64 is EncodeFloat32 for binary64 (exponent width 11, 8 bytes).
func EncodeFloat64(tag byte, value float64, buffer []byte, bufPos int) int {
	bufPos = EncodeTL(tag, 9, buffer, bufPos)
	buffer[bufPos] = 11
	binary.BigEndian.PutUint64(buffer[bufPos+1:], math.Float64bits(value))
	return bufPos + 9
}

func UInt32DetermineEncodedSize(value uint32) int {
	scratch := make([]byte, 5)
	binary.BigEndian.PutUint32(scratch[1:], value)
	return CompressInteger(scratch)
}

func Int32DetermineEncodedSize(value int32) int {
	scratch := make([]byte, 4)
	binary.BigEndian.PutUint32(scratch, uint32(value))
	return CompressInteger(scratch)
}

func DetermineLengthSize(length uint32) int {
	switch {
	case length < 128:
		return 1
	case length < 256:
		return 2
	case length < 65536:
		return 3
	default:
		return 4
	}
}

func DetermineEncodedStringSize(str string) int {
	return 1 + DetermineLengthSize(uint32(len(str))) + len(str)
}

func DetermineEncodedBitStringSize(bitStringSize int) int {
	byteSize := (bitStringSize + 7) / 8
	return 2 + DetermineLengthSize(uint32(byteSize)) + byteSize
}
