package interp

import (
	"fmt"

	"github.com/chazu/rvgen/vm"
)

// MethodKind selects an interpreter entry.
type MethodKind int

// Entry kinds.
const (
	Normal MethodKind = iota
	NormalSynchronized
	Native
	NativeSynchronized
	Abstract
	MathSqrt
	MathAbs
	MathSin
	MathCos
	MathTan
	MathLog
	MathLog10
	MathExp
	MathPow

	numKinds
)

var kindNames = [numKinds]string{
	Normal:             "normal",
	NormalSynchronized: "normal_synchronized",
	Native:             "native",
	NativeSynchronized: "native_synchronized",
	Abstract:           "abstract",
	MathSqrt:           "java_lang_math_sqrt",
	MathAbs:            "java_lang_math_abs",
	MathSin:            "java_lang_math_sin",
	MathCos:            "java_lang_math_cos",
	MathTan:            "java_lang_math_tan",
	MathLog:            "java_lang_math_log",
	MathLog10:          "java_lang_math_log10",
	MathExp:            "java_lang_math_exp",
	MathPow:            "java_lang_math_pow",
}

func (k MethodKind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds returns every entry kind in generation order.
func Kinds() []MethodKind {
	out := make([]MethodKind, numKinds)
	for i := range out {
		out[i] = MethodKind(i)
	}
	return out
}

// IsMath reports whether k is a math intrinsic entry.
func (k MethodKind) IsMath() bool { return k >= MathSqrt && k <= MathPow }

var intrinsicKinds = map[string]MethodKind{
	"sqrt":  MathSqrt,
	"abs":   MathAbs,
	"sin":   MathSin,
	"cos":   MathCos,
	"tan":   MathTan,
	"log":   MathLog,
	"log10": MathLog10,
	"exp":   MathExp,
	"pow":   MathPow,
}

// KindFor returns the entry kind for m, ignoring whether that entry was
// generated.
func KindFor(m *vm.Method) MethodKind {
	switch {
	case m.Flags.IsAbstract():
		return Abstract
	case m.Flags.IsNative() && m.Flags.IsSynchronized():
		return NativeSynchronized
	case m.Flags.IsNative():
		return Native
	}
	if k, ok := intrinsicKinds[m.Intrinsic]; ok {
		return k
	}
	if m.Flags.IsSynchronized() {
		return NormalSynchronized
	}
	return Normal
}
