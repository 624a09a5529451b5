package asm

import "fmt"

// Label names a position in the code buffer. It is an index into the
// assembler's label table; the zero Label is never valid.
type Label int32

type labelState struct {
	bound   bool
	pos     int
	pending []int // positions of branches waiting for this label
}

// NewLabel allocates an unbound label.
func (a *Assembler) NewLabel() Label {
	a.labels = append(a.labels, labelState{})
	return Label(len(a.labels) - 1)
}

func (a *Assembler) label(l Label) *labelState {
	if l <= 0 || int(l) >= len(a.labels) {
		fatalf("label belongs to this assembler", "label %d", l)
	}
	return &a.labels[l]
}

// Bind binds l to the current position and patches every branch that
// referenced it so far.
func (a *Assembler) Bind(l Label) {
	if a.finalized {
		fatalf("no emission after flush", "bind label %d", l)
	}
	st := a.label(l)
	if st.bound {
		fatalf("label bound once", "label %d already bound at %d", l, st.pos)
	}
	st.bound = true
	st.pos = a.Pos()
	for _, p := range st.pending {
		i := a.index(p)
		a.insts[i] = PatchedBranch(st.pos, a.insts[i], p)
	}
	st.pending = nil
}

// IsBound reports whether l has been bound.
func (a *Assembler) IsBound(l Label) bool { return a.label(l).bound }

// Target returns the position l is bound to.
func (a *Assembler) Target(l Label) int {
	st := a.label(l)
	if !st.bound {
		fatalf("label is bound", "label %d", l)
	}
	return st.pos
}

// refer returns the displacement to encode for a branch at the current
// position targeting l. Unbound labels record a pending patch and encode
// a zero displacement.
func (a *Assembler) refer(l Label) int64 {
	st := a.label(l)
	pos := a.Pos()
	if st.bound {
		return int64(st.pos - pos)
	}
	st.pending = append(st.pending, pos)
	return 0
}

func (l Label) String() string { return fmt.Sprintf("L%d", int32(l)) }
