package asm

import "fmt"

// InvariantError reports a code generation precondition that was violated.
// It is raised by panicking and is never expected at runtime: generated code
// layout is decided statically.
type InvariantError struct {
	Invariant string // the violated invariant, e.g. "label bound once"
	Detail    string
}

func (e *InvariantError) Error() string {
	if e.Detail == "" {
		return "asm: " + e.Invariant
	}
	return fmt.Sprintf("asm: %s: %s", e.Invariant, e.Detail)
}

func fatalf(invariant, format string, args ...any) {
	panic(&InvariantError{Invariant: invariant, Detail: fmt.Sprintf(format, args...)})
}

// Unimplemented aborts generation for a path that has not been ported.
// No partial encoding is ever emitted in its place.
func Unimplemented(what string) {
	panic(&InvariantError{Invariant: "not implemented", Detail: what})
}

// ShouldNotReachHere aborts generation on a path that is structurally
// impossible.
func ShouldNotReachHere(what string) {
	panic(&InvariantError{Invariant: "should not reach here", Detail: what})
}

// Recover converts an *InvariantError panic into an error. It must be
// deferred directly:
//
//	defer asm.Recover(&err)
//
// Any other panic is re-raised.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InvariantError); ok {
		*err = ie
		return
	}
	panic(r)
}
