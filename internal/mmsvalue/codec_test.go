package mmsvalue

import (
	"testing"
	"time"

	"github.com/slonegd/mmsreportd/internal/ber"
)

func TestDecodeDataBoolean(t *testing.T) {
	v, err := DecodeData(0x83, []byte{0x01})
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if v.Kind() != KindBool || !v.AsBool() {
		t.Errorf("got %v, want bool(true)", v)
	}
}

func TestDecodeDataIntegerNegative(t *testing.T) {
	v, err := DecodeData(0x85, []byte{0xFF})
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if v.AsInt() != -1 {
		t.Errorf("AsInt() = %d, want -1", v.AsInt())
	}
}

func TestDecodeDataFloat32(t *testing.T) {
	content := []byte{8, 0x42, 0x48, 0x00, 0x00} // 50.0
	v, err := DecodeData(0x87, content)
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if v.Kind() != KindFloat32 || v.AsFloat64() != 50.0 {
		t.Errorf("got %v, want float32(50.0)", v)
	}
}

func TestDecodeDataStructureRecurses(t *testing.T) {
	// structure { boolean(true), integer(-1) }, built by hand to keep this
	// test independent of EncodeData.
	member1 := []byte{0x83, 0x01, 0x01} // boolean true
	member2 := []byte{0x85, 0x01, 0xFF} // integer -1
	content := append(append([]byte{}, member1...), member2...)

	v, err := DecodeData(0xA2, content) // structure tag = context 2 constructed
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	elems := v.Elements()
	if len(elems) != 2 {
		t.Fatalf("got %d elements, want 2", len(elems))
	}
	if !elems[0].AsBool() {
		t.Errorf("elems[0] = %v, want true", elems[0])
	}
	if elems[1].AsInt() != -1 {
		t.Errorf("elems[1].AsInt() = %d, want -1", elems[1].AsInt())
	}
}

func TestDecodeUTCTime(t *testing.T) {
	content := []byte{0x3B, 0x9A, 0xCA, 0x00, 0x00, 0x00, 0x00, 0x00}

	utc, err := DecodeUTCTime(content)
	if err != nil {
		t.Fatalf("DecodeUTCTime: %v", err)
	}
	want := time.Unix(0x3B9ACA00, 0).UTC()
	if !utc.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", utc.Time, want)
	}
	if utc.LeapSecond || utc.ClockFailure || utc.NotSynced {
		t.Errorf("unexpected quality flags set: %+v", utc)
	}
}

func TestDecodeUTCTimeQualityFlags(t *testing.T) {
	content := []byte{0, 0, 0, 0, 0, 0, 0, 0xE0} // leap + clock-failure + not-synced
	utc, err := DecodeUTCTime(content)
	if err != nil {
		t.Fatalf("DecodeUTCTime: %v", err)
	}
	if !utc.LeapSecond || !utc.ClockFailure || !utc.NotSynced {
		t.Errorf("quality flags not decoded: %+v", utc)
	}
}

func TestBinaryTime8RoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 15, 13, 45, 30, 500*1e6, time.UTC)
	raw := EncodeBinaryTime8(want)
	got, err := DecodeBinaryTime8(raw)
	if err != nil {
		t.Fatalf("DecodeBinaryTime8: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestBinaryTime8RoundTripSubMillisecond(t *testing.T) {
	want := time.Date(1984, 12, 4, 4, 8, 33, 234_970_000, time.UTC)
	raw := EncodeBinaryTime8(want)
	got, err := DecodeBinaryTime8(raw)
	if err != nil {
		t.Fatalf("DecodeBinaryTime8: %v", err)
	}
	if diff := got.Sub(want); diff < -time.Microsecond || diff > time.Microsecond {
		t.Errorf("round trip = %v, want %v (diff %v)", got, want, diff)
	}
}

func TestEncodeDataBoolean(t *testing.T) {
	buf := make([]byte, 16)
	end := EncodeData(Bool(true), buf, 0)
	want := []byte{byte(ber.Context3Primitive), 0x01, 0xFF}
	if string(buf[:end]) != string(want) {
		t.Errorf("encoded = % X, want % X", buf[:end], want)
	}
}

func TestEncodeDataInteger(t *testing.T) {
	buf := make([]byte, 16)
	end := EncodeData(Int(42), buf, 0)
	want := []byte{byte(ber.Context5Primitive), 0x01, 0x2A}
	if string(buf[:end]) != string(want) {
		t.Errorf("encoded = % X, want % X", buf[:end], want)
	}
}

func TestEncodeDataBitString(t *testing.T) {
	buf := make([]byte, 16)
	bits := []bool{true, true, false, false, false, false, false, false, true, false}
	end := EncodeData(Bits(bits), buf, 0)
	v, err := DecodeData(buf[0], buf[2:end])
	if err != nil {
		t.Fatalf("round-trip decode: %v", err)
	}
	got := v.AsBitString().Bits
	if len(got) != len(bits) {
		t.Fatalf("got %d bits, want %d", len(got), len(bits))
	}
	for i := range bits {
		if got[i] != bits[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], bits[i])
		}
	}
}
