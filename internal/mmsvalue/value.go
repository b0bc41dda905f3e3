// Package mmsvalue implements the MmsValue tagged union: the dynamic value
// model MMS Data decodes into, and the encoders that go the other way for
// RCB attribute writes.
package mmsvalue

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/constraints"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindFloat32
	KindFloat64
	KindBitString
	KindOctetString
	KindVisibleString
	KindBinaryTime
	KindUTCTime
	KindStructure
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBitString:
		return "bit-string"
	case KindOctetString:
		return "octet-string"
	case KindVisibleString:
		return "visible-string"
	case KindBinaryTime:
		return "binary-time"
	case KindUTCTime:
		return "utc-time"
	case KindStructure:
		return "structure"
	case KindArray:
		return "array"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// BitString is a padded bit vector: Bits holds one bool per significant bit,
// MSB first.
type BitString struct {
	Bits []bool
}

// UTCTime is the decoded form of the MMS 8-octet UtcTime convention.
type UTCTime struct {
	Time         time.Time
	LeapSecond   bool
	ClockFailure bool
	NotSynced    bool
	Accuracy     uint8 // 0-24, or 31 if unspecified
}

// Value is a tagged union over every MMS Data variant this codec decodes or
// encodes. The zero Value has Kind KindBool/false.
type Value struct {
	kind Kind

	b         bool
	i         int64
	u         uint64
	f32       float32
	f64       float64
	bits    BitString
	octets  []byte
	str     string
	binTime []byte // raw BinaryTime(6) or BinaryTime(8) octets
	utc     UTCTime
	elems   []Value // structure members or array elements
}

func (v Value) Kind() Kind { return v.kind }

func Bool(b bool) Value                { return Value{kind: KindBool, b: b} }
func Int(i int64) Value                { return Value{kind: KindInt, i: i} }
func Uint(u uint64) Value              { return Value{kind: KindUint, u: u} }
func Float32(f float32) Value          { return Value{kind: KindFloat32, f32: f} }
func Float64(f float64) Value          { return Value{kind: KindFloat64, f64: f} }
func Bits(bits []bool) Value           { return Value{kind: KindBitString, bits: BitString{Bits: bits}} }
func Octets(o []byte) Value            { return Value{kind: KindOctetString, octets: o} }
func VisibleString(s string) Value     { return Value{kind: KindVisibleString, str: s} }
func BinaryTime(raw []byte) Value      { return Value{kind: KindBinaryTime, binTime: raw} }
func UTC(t UTCTime) Value              { return Value{kind: KindUTCTime, utc: t} }
func Structure(elems []Value) Value    { return Value{kind: KindStructure, elems: elems} }
func Array(elems []Value) Value        { return Value{kind: KindArray, elems: elems} }

func (v Value) AsBool() bool { return v.b }

func (v Value) AsOctets() []byte { return v.octets }

func (v Value) AsString() string { return v.str }

func (v Value) AsBitString() BitString { return v.bits }

func (v Value) AsUTCTime() UTCTime { return v.utc }

func (v Value) AsBinaryTime() []byte { return v.binTime }

func (v Value) Elements() []Value { return v.elems }

// AsInt coerces numeric kinds to int64, matching the teacher's permissive
// zero-value-on-mismatch accessor style rather than panicking.
func (v Value) AsInt() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindUint:
		return int64(v.u)
	case KindFloat32:
		return int64(v.f32)
	case KindFloat64:
		return int64(v.f64)
	default:
		return 0
	}
}

func (v Value) AsUint() uint64 {
	switch v.kind {
	case KindUint:
		return v.u
	case KindInt:
		return uint64(v.i)
	default:
		return 0
	}
}

func (v Value) AsFloat64() float64 {
	switch v.kind {
	case KindFloat64:
		return v.f64
	case KindFloat32:
		return float64(v.f32)
	case KindInt:
		return float64(v.i)
	case KindUint:
		return float64(v.u)
	default:
		return 0
	}
}

// Numeric narrows any numeric Value kind to T, converting through float64;
// a non-numeric kind yields zero.
func Numeric[T constraints.Integer | constraints.Float](v Value) T {
	return T(v.AsFloat64())
}

// String renders a Value for debug logging, grouped the way the teacher
// groups BIT STRING output (4-bit clusters, least-significant first).
func (v Value) String() string {
	var b strings.Builder
	b.WriteString(v.kind.String())
	b.WriteByte('(')
	switch v.kind {
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindUint:
		b.WriteString(strconv.FormatUint(v.u, 10))
	case KindFloat32:
		b.WriteString(strconv.FormatFloat(float64(v.f32), 'g', -1, 32))
	case KindFloat64:
		b.WriteString(strconv.FormatFloat(v.f64, 'g', -1, 64))
	case KindVisibleString:
		b.WriteString(v.str)
	case KindOctetString:
		b.WriteString(strconv.Itoa(len(v.octets)))
		b.WriteString(" bytes")
	case KindUTCTime:
		b.WriteString(v.utc.Time.Format(time.RFC3339Nano))
	case KindBitString:
		writeBits(&b, v.bits.Bits)
	case KindStructure, KindArray:
		b.WriteString(strconv.Itoa(len(v.elems)))
		b.WriteString(" elements")
	default:
		b.WriteString("<unknown>")
	}
	b.WriteByte(')')
	return b.String()
}

func writeBits(b *strings.Builder, bits []bool) {
	b.WriteString("0b")
	if len(bits) == 0 {
		b.WriteByte('0')
		return
	}
	for i, bit := range bits {
		if i > 0 && (len(bits)-i)%4 == 0 {
			b.WriteByte('_')
		}
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
}
