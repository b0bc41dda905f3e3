package mmsvalue

import "testing"

func TestAsIntCoercion(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want int64
	}{
		{"int", Int(-7), -7},
		{"uint", Uint(42), 42},
		{"float32", Float32(3.9), 3},
		{"float64", Float64(-3.9), -3},
		{"bool has no numeric reading", Bool(true), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.AsInt(); got != c.want {
				t.Errorf("AsInt() = %d, want %d", got, c.want)
			}
		})
	}
}

func TestNumericMergesIntAndFloat(t *testing.T) {
	if got := Numeric[float64](Int(5)); got != 5.0 {
		t.Errorf("Numeric[float64](Int(5)) = %v, want 5.0", got)
	}
	if got := Numeric[int](Float32(5.0)); got != 5 {
		t.Errorf("Numeric[int](Float32(5.0)) = %v, want 5", got)
	}
}

func TestBitStringStringRendering(t *testing.T) {
	v := Bits([]bool{true, false, true, true, false, false, true, false, true, true})
	got := v.String()
	want := "bit-string(0b10_1100_1011)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKindString(t *testing.T) {
	if KindUTCTime.String() != "utc-time" {
		t.Errorf("KindUTCTime.String() = %q", KindUTCTime.String())
	}
	if Kind(99).String() != "unknown(99)" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
}
