package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/rvgen/internal/rvsim"
)

// expectInvariant runs fn and returns the invariant error it raised.
func expectInvariant(t *testing.T, fn func()) *InvariantError {
	t.Helper()
	var err error
	func() {
		defer Recover(&err)
		fn()
	}()
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("expected an invariant failure, got %v", err)
	}
	return ie
}

// run executes the assembler's code until ebreak.
func run(t *testing.T, a *Assembler, setup func(m *rvsim.Machine)) *rvsim.Machine {
	t.Helper()
	const base = 0x10000
	a.Ebreak()
	m := rvsim.New()
	m.Mem.WriteWords(base, a.Words())
	if setup != nil {
		setup(m)
	}
	if err := m.Run(base); !errors.Is(err, rvsim.ErrBreak) {
		t.Fatalf("run: %v", err)
	}
	return m
}

// ---------------------------------------------------------------------------
// Encodings
// ---------------------------------------------------------------------------

func TestEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(a *Assembler)
		want uint32
	}{
		{"addi a0, zero, 1", func(a *Assembler) { a.Addi(A0, Zero, 1) }, 0x00100513},
		{"ret", func(a *Assembler) { a.Ret() }, 0x00008067},
		{"ld a0, 8(sp)", func(a *Assembler) { a.Ld(A0, SP, 8) }, 0x00813503},
		{"sd ra, 8(sp)", func(a *Assembler) { a.Sd(RA, SP, 8) }, 0x00113423},
		{"lui a0, 0x12345", func(a *Assembler) { a.Lui(A0, 0x12345) }, 0x12345537},
		{"fence rw,rw", func(a *Assembler) { a.Fence(FenceRW, FenceRW) }, 0x0330000f},
		{"fence rw,w", func(a *Assembler) { a.Fence(FenceRW, FenceW) }, 0x0310000f},
		{"ebreak", func(a *Assembler) { a.Ebreak() }, 0x00100073},
		{"mv a1, a0", func(a *Assembler) { a.Mv(A1, A0) }, 0x00050593},
		{"sh3add a0, a1, a2", func(a *Assembler) { a.Sh3add(A0, A1, A2) }, 0x20c5e533},
		{"addi sp, sp, -16", func(a *Assembler) { a.Addi(SP, SP, -16) }, 0xff010113},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(AllFeatures)
			tt.emit(a)
			if a.Len() != 1 {
				t.Fatalf("emitted %d words, want 1", a.Len())
			}
			if got := a.Word(0); got != tt.want {
				t.Errorf("word = %#08x, want %#08x", got, tt.want)
			}
		})
	}
}

func TestOneWordPerInstruction(t *testing.T) {
	a := New(AllFeatures)
	ops := []func(){
		func() { a.Addiw(T0, T1, -5) },
		func() { a.Andi(T0, T1, 0xff) },
		func() { a.Srai(T0, T1, 63) },
		func() { a.Sub(T0, T1, T2) },
		func() { a.Lwu(T0, SP, -2048) },
		func() { a.Sw(T0, SP, 2047) },
		func() { a.Fld(FA0, SP, 0) },
		func() { a.FsqrtD(FA0, FA0) },
		func() { a.SextB(A0, A0) },
		func() { a.ZextH(A0, A0) },
		func() { a.Auipc(T0, 0) },
	}
	for i, op := range ops {
		op()
		if a.Len() != i+1 {
			t.Fatalf("op %d: length %d, want %d", i, a.Len(), i+1)
		}
	}
}

func TestImmediateOutOfRange(t *testing.T) {
	a := New(0)
	ie := expectInvariant(t, func() { a.Addi(A0, A0, 2048) })
	if !strings.Contains(ie.Error(), "addi") {
		t.Errorf("diagnostic %q should name the instruction", ie.Error())
	}
	expectInvariant(t, func() { a.Sd(A0, SP, -2049) })
	expectInvariant(t, func() { a.Slli(A0, A0, 64) })
	expectInvariant(t, func() { a.Lui(A0, 1<<20) })
	if a.Len() != 0 {
		t.Errorf("failed encodings must not emit, got %d words", a.Len())
	}
}

func TestExtensionGating(t *testing.T) {
	a := New(0)
	expectInvariant(t, func() { a.Sh3add(A0, A1, A2) })
	expectInvariant(t, func() { a.SextH(A0, A0) })
	expectInvariant(t, func() { a.FsqrtD(FA0, FA0) })

	a = New(Features(FeatureZba))
	a.Sh3add(A0, A1, A2)
	expectInvariant(t, func() { a.ZextH(A0, A0) })
}

func TestFinalize(t *testing.T) {
	a := New(0)
	a.Li(A0, 42)
	a.Ret()
	code, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("len(code) = %d, want 8", len(code))
	}
	if code[0] != 0x13 || code[4] != 0x67 {
		t.Errorf("code is not little-endian: % x", code)
	}
	expectInvariant(t, func() { a.Nop() })
}

func TestArithmeticExecutes(t *testing.T) {
	a := New(AllFeatures)
	a.Li(T0, 0x1234)
	a.Li(T1, 3)
	a.Sh3add(A0, T1, T0) // a0 = t0 + t1<<3
	a.Li(T2, -1)
	a.ZextH(A1, T2)
	a.SextB(A2, T0) // 0x34
	a.Srai(A3, T2, 4)
	a.Srli(A4, T2, 60)
	a.Snez(A5, T0)
	a.Seqz(A6, Zero)
	m := run(t, a, nil)
	want := map[int]uint64{
		10: 0x1234 + 24,
		11: 0xffff,
		12: 0x34,
		13: ^uint64(0),
		14: 0xf,
		15: 1,
		16: 1,
	}
	for r, v := range want {
		if m.X[r] != v {
			t.Errorf("x%d = %#x, want %#x", r, m.X[r], v)
		}
	}
}
