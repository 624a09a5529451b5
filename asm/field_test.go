package asm

import (
	"errors"
	"testing"
)

func TestFieldRoundTrip(t *testing.T) {
	for _, w := range []uint{11, 12, 13, 16, 20, 21} {
		lo := -(int64(1) << (w - 1))
		hi := int64(1)<<(w-1) - 1
		for _, v := range []int64{lo, lo + 1, -1, 0, 1, hi - 1, hi} {
			bits, err := LowBits(v, w)
			if err != nil {
				t.Fatalf("LowBits(%d, %d): %v", v, w, err)
			}
			if bits>>w != 0 {
				t.Errorf("LowBits(%d, %d) = %#x has bits above the field", v, w, bits)
			}
			if got := SignExtend(uint64(bits), w); got != v {
				t.Errorf("SignExtend(LowBits(%d, %d)) = %d", v, w, got)
			}
		}
	}
}

func TestFieldExhaustive12(t *testing.T) {
	for v := int64(-2048); v <= 2047; v++ {
		bits, err := LowBits(v, 12)
		if err != nil {
			t.Fatalf("LowBits(%d, 12): %v", v, err)
		}
		if got := SignExtend(uint64(bits), 12); got != v {
			t.Fatalf("round trip %d -> %d", v, got)
		}
	}
}

func TestFieldOutOfRange(t *testing.T) {
	tests := []struct {
		v int64
		w uint
	}{
		{2048, 12},
		{-2049, 12},
		{1 << 20, 21},
		{-(1 << 20) - 1, 21},
		{1024, 11},
	}
	for _, tt := range tests {
		if _, err := LowBits(tt.v, tt.w); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("LowBits(%d, %d) error = %v, want ErrOutOfRange", tt.v, tt.w, err)
		}
	}
	if _, err := LowBits(1, 0); err == nil {
		t.Error("LowBits with width 0 should fail")
	}
	if _, err := LowBits(1, 33); err == nil {
		t.Error("LowBits with width 33 should fail")
	}
}

func TestFits(t *testing.T) {
	if !FitsSigned(-2048, 12) || FitsSigned(2048, 12) {
		t.Error("FitsSigned 12-bit boundaries wrong")
	}
	if !FitsUnsigned(2047, 11) || FitsUnsigned(2048, 11) || FitsUnsigned(-1, 11) {
		t.Error("FitsUnsigned 11-bit boundaries wrong")
	}
	if !FitsSigned(-1<<63, 64) {
		t.Error("every value fits 64 bits")
	}
}
