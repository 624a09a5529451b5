package asm

import (
	"math"
	"math/rand"
	"testing"
)

func liValues() []int64 {
	vals := []int64{
		0, 1, -1, 2047, -2048, 2048, -2049, 4095, 4096,
		math.MaxInt64, math.MinInt64, math.MaxInt32, math.MinInt32,
		0x7ffff800, 0x7fffffff, 0x80000000, 0xffffffff, 0x100000000,
		0x7f00_0000_0000, 0x40000000, 0x1234_5678_9abc_def0,
		-0x1234_5678_9abc_def0, 2048 + 1<<40,
	}
	for n := 0; n < 63; n++ {
		p := int64(1) << n
		vals = append(vals, p, p-1, p+1, -p, -p-1)
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		vals = append(vals, int64(rng.Uint64()))
		vals = append(vals, int64(rng.Uint32()))
		vals = append(vals, rng.Int63n(1<<40)-1<<39)
	}
	return vals
}

func TestLiMaterializesExactly(t *testing.T) {
	for _, v := range liValues() {
		a := New(0)
		a.Li(A0, v)
		n := a.Len()
		m := run(t, a, nil)
		if int64(m.X[A0]) != v {
			t.Errorf("li %#x produced %#x in %d instructions", v, m.X[A0], n)
		}
		if n != LoadConstantLength(v) {
			t.Errorf("li %#x: emitted %d, LoadConstantLength says %d", v, n, LoadConstantLength(v))
		}
	}
}

func TestLiSingleInstructionForImmediates(t *testing.T) {
	for v := int64(-2048); v <= 2047; v++ {
		if n := LoadConstantLength(v); n != 1 {
			t.Fatalf("li %d takes %d instructions, want 1", v, n)
		}
	}
	a := New(0)
	a.Li(T0, 0)
	w := a.Word(0)
	if Opcode(w) != opImm || Rs1(w) != Zero || IImm(w) != 0 {
		t.Errorf("li 0 = %#08x, want mv from the zero register", w)
	}
}

func TestLiCounts(t *testing.T) {
	tests := []struct {
		v    int64
		want int
	}{
		{2048, 2},                  // addi 2; slli 10
		{math.MinInt64, 2},         // addi 1024; slli 53
		{math.MaxInt64, 3},         // li MinInt64; xori -1
		{0x7fffffff, 2},            // lui; addiw
		{0x12345000, 1},            // lui
		{-4096, 1},                 // lui
		{0x7f00_0000_0000, 4},      // addi; slli; addi; slli
		{^0x7f00_0000_0000, 5},     // li 0x7f00_0000_0000; xori -1
		{0x7fff_ffff_ffff_f000, 6}, // li 0x8000_0000_0000_0fff; xori -1
	}
	for _, tt := range tests {
		if got := LoadConstantLength(tt.v); got != tt.want {
			t.Errorf("LoadConstantLength(%#x) = %d, want %d", tt.v, got, tt.want)
		}
	}
	if LoadConstantLength(2048) >= LoadConstantLength(2048+1<<40) {
		t.Errorf("small values should take fewer instructions than wide ones: %d vs %d",
			LoadConstantLength(2048), LoadConstantLength(2048+1<<40))
	}
}

func TestLiNeverExceedsWorstCase(t *testing.T) {
	// Six chunks, each a shift and an add, less the first shift.
	for _, v := range liValues() {
		if n := LoadConstantLength(v); n > 11 {
			t.Errorf("li %#x takes %d instructions", v, n)
		}
	}
}

func TestLiZeroRegister(t *testing.T) {
	a := New(0)
	expectInvariant(t, func() { a.Li(Zero, 5) })
}
