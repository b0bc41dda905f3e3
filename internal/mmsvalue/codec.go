package mmsvalue

import (
	"fmt"
	"time"

	"github.com/slonegd/mmsreportd/internal/ber"
)

// Data CHOICE context tags, ISO/IEC 9506-2 §6.1 (unconstrained in this
// client to the variants the codec actually needs).
const (
	TagArray         = 1
	TagStructure     = 2
	TagBoolean       = 3
	TagBitString     = 4
	TagInteger       = 5
	TagUnsigned      = 6
	TagFloatingPoint = 7
	TagOctetString   = 9
	TagVisibleString = 10
	TagBinaryTime    = 12
	TagBCD           = 13
	TagBooleanArray  = 14
	TagUTCTime       = 17
)

// DecodeData decodes one MMS Data element from a context-tagged TLV whose
// tag/content have already been split by ber.ReadTLV.
func DecodeData(tag byte, content []byte) (Value, error) {
	num := int(ber.NumberOf(tag))
	switch num {
	case TagBoolean:
		if len(content) < 1 {
			return Value{}, fmt.Errorf("mmsvalue: boolean: empty content")
		}
		return Bool(ber.DecodeBoolean(content, 0)), nil

	case TagInteger:
		if len(content) > 8 {
			return Value{}, fmt.Errorf("mmsvalue: integer too wide: %d bytes", len(content))
		}
		return Int(ber.DecodeInt64(content, len(content), 0)), nil

	case TagUnsigned:
		if len(content) > 8 {
			return Value{}, fmt.Errorf("mmsvalue: unsigned too wide: %d bytes", len(content))
		}
		return Uint(ber.DecodeUint64(content, len(content), 0)), nil

	case TagFloatingPoint:
		if len(content) < 1 {
			return Value{}, fmt.Errorf("mmsvalue: floating-point: empty content")
		}
		exponentWidth := content[0]
		switch exponentWidth {
		case 8:
			if len(content) < 5 {
				return Value{}, fmt.Errorf("mmsvalue: binary32: need 5 bytes, got %d", len(content))
			}
			return Float32(ber.DecodeFloat(content, 0)), nil
		case 11:
			if len(content) < 9 {
				return Value{}, fmt.Errorf("mmsvalue: binary64: need 9 bytes, got %d", len(content))
			}
			return Float64(ber.DecodeDouble(content, 0)), nil
		default:
			return Value{}, fmt.Errorf("mmsvalue: unsupported exponent width %d", exponentWidth)
		}

	case TagBitString:
		return Bits(ber.DecodeBitString(content)), nil

	case TagOctetString:
		return Octets(append([]byte(nil), content...)), nil

	case TagVisibleString:
		return VisibleString(string(content)), nil

	case TagBinaryTime:
		return BinaryTime(append([]byte(nil), content...)), nil

	case TagUTCTime:
		utc, err := DecodeUTCTime(content)
		if err != nil {
			return Value{}, err
		}
		return UTC(utc), nil

	case TagStructure, TagArray:
		elems, err := decodeSequence(content)
		if err != nil {
			return Value{}, err
		}
		if num == TagStructure {
			return Structure(elems), nil
		}
		return Array(elems), nil

	default:
		return Value{}, fmt.Errorf("mmsvalue: unsupported Data tag %d (0x%02x)", num, tag)
	}
}

func decodeSequence(content []byte) ([]Value, error) {
	var elems []Value
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return nil, fmt.Errorf("mmsvalue: sequence member: %w", err)
		}
		v, err := DecodeData(tlv.Tag, tlv.Content)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
		pos = tlv.NextPos
	}
	return elems, nil
}

// DecodeUTCTime decodes the 8-octet MMS UtcTime convention: 4-byte
// big-endian seconds since 1970-01-01 UTC, 3-byte fraction-of-second
// (numerator over 2^24), 1-byte quality flags.
func DecodeUTCTime(content []byte) (UTCTime, error) {
	if len(content) < 8 {
		return UTCTime{}, fmt.Errorf("mmsvalue: utc-time: need 8 bytes, got %d", len(content))
	}
	seconds := ber.DecodeUint32(content, 4, 0)
	fraction := ber.DecodeUint32(content, 3, 4)
	quality := content[7]

	nanos := int64(float64(fraction) / float64(1<<24) * 1e9)
	t := time.Unix(int64(seconds), nanos).UTC()

	return UTCTime{
		Time:         t,
		LeapSecond:   quality&0x80 != 0,
		ClockFailure: quality&0x40 != 0,
		NotSynced:    quality&0x20 != 0,
		Accuracy:     quality & 0x1F,
	}, nil
}

// DecodeBinaryTime8 decodes the 8-octet BinaryTime form: BinaryTime(6)'s
// 4-byte milliseconds-since-midnight and 2-byte days-since-1984-01-01 fields,
// unchanged, followed by 2 more bytes giving the sub-millisecond remainder as
// ticks over 2^16. A plain BinaryTime(6) only has millisecond resolution;
// this client's IEDs stamp report entries with sub-millisecond timestamps, so
// the extra 2 bytes carry that remainder rather than widening the day count
// (which BinaryTime(6)'s 2 bytes already cover for 179 years).
func DecodeBinaryTime8(raw []byte) (time.Time, error) {
	if len(raw) != 8 {
		return time.Time{}, fmt.Errorf("mmsvalue: binary-time(8): need 8 bytes, got %d", len(raw))
	}
	msSinceMidnight := ber.DecodeUint32(raw, 4, 0)
	daysSince1984 := ber.DecodeUint32(raw, 2, 4)
	subMsTicks := ber.DecodeUint32(raw, 2, 6)

	epoch := time.Date(1984, 1, 1, 0, 0, 0, 0, time.UTC)
	day := epoch.AddDate(0, 0, int(daysSince1984))
	subMsNanos := int64(subMsTicks) * int64(time.Millisecond) / (1 << 16)
	return day.Add(time.Duration(msSinceMidnight) * time.Millisecond).Add(time.Duration(subMsNanos)), nil
}

// DecodeBinaryTime6 decodes the 6-octet BinaryTime form: a 4-byte
// milliseconds-since-midnight field followed by a 2-byte days-since-1984-01-01
// field, both big-endian.
func DecodeBinaryTime6(raw []byte) (time.Time, error) {
	if len(raw) != 6 {
		return time.Time{}, fmt.Errorf("mmsvalue: binary-time(6): need 6 bytes, got %d", len(raw))
	}
	msSinceMidnight := ber.DecodeUint32(raw, 4, 0)
	daysSince1984 := ber.DecodeUint32(raw, 2, 4)

	epoch := time.Date(1984, 1, 1, 0, 0, 0, 0, time.UTC)
	day := epoch.AddDate(0, 0, int(daysSince1984))
	return day.Add(time.Duration(msSinceMidnight) * time.Millisecond), nil
}

// DecodeBinaryTime dispatches on the raw length (6 or 8 octets), the two
// forms an IED may send for a report's TimeOfEntry.
func DecodeBinaryTime(raw []byte) (time.Time, error) {
	switch len(raw) {
	case 6:
		return DecodeBinaryTime6(raw)
	case 8:
		return DecodeBinaryTime8(raw)
	default:
		return time.Time{}, fmt.Errorf("mmsvalue: binary-time: unsupported length %d", len(raw))
	}
}

// EncodeBinaryTime8 is the inverse of DecodeBinaryTime8.
func EncodeBinaryTime8(t time.Time) []byte {
	epoch := time.Date(1984, 1, 1, 0, 0, 0, 0, time.UTC)
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := uint32(midnight.Sub(epoch).Hours() / 24)
	sinceMidnight := t.Sub(midnight)
	ms := uint32(sinceMidnight.Milliseconds())
	subMsNanos := sinceMidnight - time.Duration(ms)*time.Millisecond
	subMsTicks := uint32(int64(subMsNanos) * (1 << 16) / int64(time.Millisecond))

	out := make([]byte, 8)
	out[0], out[1], out[2], out[3] = byte(ms>>24), byte(ms>>16), byte(ms>>8), byte(ms)
	out[4], out[5] = byte(days>>8), byte(days)
	out[6], out[7] = byte(subMsTicks>>8), byte(subMsTicks)
	return out
}

// EncodeData writes the BER encoding of v to buffer at bufPos and returns the
// new position. The tag is always the Data CHOICE context tag for v's kind;
// there is no way to override it.
func EncodeData(v Value, buffer []byte, bufPos int) int {
	switch v.kind {
	case KindBool:
		return ber.EncodeBoolean(byte(ber.Context3Primitive), v.b, buffer, bufPos)
	case KindInt:
		return ber.EncodeInt32WithTL(byte(ber.Context5Primitive), int32(v.i), buffer, bufPos)
	case KindUint:
		return ber.EncodeUInt32WithTL(byte(ber.Context6Primitive), uint32(v.u), buffer, bufPos)
	case KindFloat32:
		return ber.EncodeFloat32(byte(ber.Context7Primitive), v.f32, buffer, bufPos)
	case KindFloat64:
		return ber.EncodeFloat64(byte(ber.Context7Primitive), v.f64, buffer, bufPos)
	case KindOctetString:
		return ber.EncodeOctetString(byte(ber.Context9Primitive), v.octets, buffer, bufPos)
	case KindVisibleString:
		return ber.EncodeStringWithTag(byte(ber.Context10Primitive), v.str, buffer, bufPos)
	case KindBitString:
		packed := packBits(v.bits.Bits)
		return ber.EncodeBitString(byte(ber.Context4Primitive), len(v.bits.Bits), packed, buffer, bufPos)
	default:
		// structure/array/time variants are never written by this client;
		// only RCB scalar attributes are set.
		return bufPos
	}
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}
