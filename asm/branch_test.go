package asm

import (
	"errors"
	"testing"
)

func TestForwardLabelPatchedOnBind(t *testing.T) {
	a := New(0)
	done := a.NewLabel()
	a.Beqz(A0, done)
	a.J(done)
	a.Nop()
	a.Bind(done)
	if got := BranchDestination(a.Word(0), 0); got != 12 {
		t.Errorf("beqz destination = %d, want 12", got)
	}
	if got := BranchDestination(a.Word(4), 4); got != 12 {
		t.Errorf("j destination = %d, want 12", got)
	}
	if _, err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestBackwardLabel(t *testing.T) {
	a := New(0)
	loop := a.NewLabel()
	a.Nop()
	a.Bind(loop)
	a.Addi(A0, A0, -1)
	a.Bnez(A0, loop)
	a.Call(loop)
	if got := BranchDestination(a.Word(8), 8); got != 4 {
		t.Errorf("bnez destination = %d, want 4", got)
	}
	if got := BranchDestination(a.Word(12), 12); got != 4 {
		t.Errorf("jal destination = %d, want 4", got)
	}
	if Rd(a.Word(12)) != RA {
		t.Errorf("call links through %s, want ra", Rd(a.Word(12)))
	}
}

func TestLabelBoundTwice(t *testing.T) {
	a := New(0)
	l := a.NewLabel()
	a.Bind(l)
	a.Nop()
	expectInvariant(t, func() { a.Bind(l) })
}

func TestFinalizeUnboundLabel(t *testing.T) {
	a := New(0)
	used := a.NewLabel()
	_ = a.NewLabel() // never referenced, never bound
	a.Bnez(A0, used)
	_, err := a.Finalize()
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("Finalize error = %v, want invariant failure", err)
	}
}

func TestInvalidLabel(t *testing.T) {
	a := New(0)
	expectInvariant(t, func() { a.J(Label(0)) })
	expectInvariant(t, func() { a.J(Label(7)) })
}

func TestLoopExecutes(t *testing.T) {
	a := New(0)
	loop := a.NewLabel()
	a.Li(A0, 10)
	a.Li(A1, 0)
	a.Bind(loop)
	a.Addi(A1, A1, 3)
	a.Addi(A0, A0, -1)
	a.Bnez(A0, loop)
	m := run(t, a, nil)
	if m.X[A1] != 30 {
		t.Errorf("a1 = %d, want 30", m.X[A1])
	}
}

func TestPatchedBranchRoundTrip(t *testing.T) {
	type emitter func(a *Assembler, target int)
	classes := []struct {
		name  string
		emit  emitter
		mask  uint32
		dests []int
	}{
		{
			name:  "bltu",
			emit:  func(a *Assembler, target int) { a.BranchTo(LTU, T0, T1, target) },
			mask:  bTypeMask,
			dests: []int{0, 2, -2, 4094, -4096, 2048, -2050, 100},
		},
		{
			name:  "jal",
			emit:  func(a *Assembler, target int) { a.JalTo(RA, target) },
			mask:  jTypeMask,
			dests: []int{0, 2, -2, 1<<20 - 2, -(1 << 20), 4096, -123456},
		},
	}
	for _, c := range classes {
		t.Run(c.name, func(t *testing.T) {
			a := New(0)
			c.emit(a, 64)
			orig := a.Word(0)
			if BranchDestination(orig, 0) != 64 {
				t.Fatalf("initial destination = %d", BranchDestination(orig, 0))
			}
			for _, p2 := range c.dests {
				patched := PatchedBranch(p2, orig, 0)
				if got := BranchDestination(patched, 0); got != p2 {
					t.Errorf("patched to %d, decoded %d", p2, got)
				}
				if patched&^c.mask != orig&^c.mask {
					t.Errorf("patching to %d changed non-displacement bits: %#08x -> %#08x", p2, orig, patched)
				}
			}
		})
	}
}

func TestBranchOutOfRange(t *testing.T) {
	a := New(0)
	expectInvariant(t, func() { a.BranchTo(EQ, A0, A1, 4096) })
	expectInvariant(t, func() { a.JalTo(Zero, 1<<20) })
	expectInvariant(t, func() { PatchedBranch(-4098, 0x00000063, 0) })
}

func TestBranchDestinationOfNonBranch(t *testing.T) {
	ie := expectInvariant(t, func() { BranchDestination(0x00100513, 0) })
	if ie.Invariant != "should not reach here" {
		t.Errorf("invariant = %q", ie.Invariant)
	}
}

func TestConditionInvert(t *testing.T) {
	pairs := [][2]Condition{{EQ, NE}, {LT, GE}, {LTU, GEU}}
	for _, p := range pairs {
		if p[0].Invert() != p[1] || p[1].Invert() != p[0] {
			t.Errorf("%s and %s should invert each other", p[0], p[1])
		}
	}
}
