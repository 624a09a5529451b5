package interp

import (
	"fmt"
	"sync"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/frame"
	"github.com/chazu/rvgen/vm"
)

// SignatureHandlerLibrary generates and caches the argument marshalling
// routines of native calls, one per normalized signature. Lookup is safe
// for concurrent use.
//
// A handler is called by the native entry with xlocals pointing at local 0
// and sp at the outgoing argument area. It loads every argument into its C
// convention location and returns the result handler address in a0.
type SignatureHandlerLibrary struct {
	interp *Interpreter
	sink   CodeSink

	mu       sync.Mutex
	handlers map[string]uint64
}

// NewSignatureHandlerLibrary creates a library whose handlers return the
// result handlers of in and are installed through sink.
func NewSignatureHandlerLibrary(in *Interpreter, sink CodeSink) *SignatureHandlerLibrary {
	return &SignatureHandlerLibrary{
		interp:   in,
		sink:     sink,
		handlers: make(map[string]uint64),
	}
}

// Lookup returns the handler for sig, generating it on first use.
func (l *SignatureHandlerLibrary) Lookup(sig vm.Signature, static bool) (uint64, error) {
	key := sig.Key(static)
	l.mu.Lock()
	defer l.mu.Unlock()
	if addr, ok := l.handlers[key]; ok {
		return addr, nil
	}
	var size int
	addr, err := l.sink.Emit(func(base uint64) ([]byte, error) {
		code, err := GenerateSignatureHandler(sig, static, l.interp.ResultHandler(sig.Result), l.interp.Features)
		size = len(code)
		return code, err
	})
	if err != nil {
		return 0, fmt.Errorf("signature handler %s: %w", key, err)
	}
	log.Debugf("signature handler %s: %d bytes at %#x", key, size, addr)
	l.handlers[key] = addr
	return addr, nil
}

// LookupMethod returns the handler for m's signature.
func (l *SignatureHandlerLibrary) LookupMethod(m *vm.Method) (uint64, error) {
	sig, err := m.ParsedSignature()
	if err != nil {
		return 0, err
	}
	return l.Lookup(sig, m.Flags.IsStatic())
}

// Len returns the number of cached handlers.
func (l *SignatureHandlerLibrary) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handlers)
}

// argLocation is where the calling convention puts one argument.
type argLocation struct {
	ireg  asm.Register      // integer register, or NoReg
	freg  asm.FloatRegister // float register, valid when isF
	isF   bool
	stack int64 // byte offset from sp, when both registers are absent
}

// assigner hands out C convention argument locations in order.
type assigner struct {
	nextI, nextF int
	stack        int64
}

func (s *assigner) next(floating bool) argLocation {
	if floating && s.nextF < len(asm.FloatArgRegisters) {
		r := asm.FloatArgRegisters[s.nextF]
		s.nextF++
		return argLocation{ireg: asm.NoReg, freg: r, isF: true}
	}
	if s.nextI < len(asm.IntArgRegisters) {
		r := asm.IntArgRegisters[s.nextI]
		s.nextI++
		return argLocation{ireg: r}
	}
	loc := argLocation{ireg: asm.NoReg, stack: s.stack}
	s.stack += frame.WordSize
	return loc
}

// GenerateSignatureHandler emits the marshalling routine for sig. a0 is
// reserved for the environment, a1 for the mirror handle of static
// methods; the receiver of instance methods is the first object argument.
func GenerateSignatureHandler(sig vm.Signature, static bool, resultHandler uint64, features asm.Features) (code []byte, err error) {
	defer asm.Recover(&err)

	a := asm.New(features)
	a.Comment("signature handler %s", sig.Key(static))
	alloc := assigner{nextI: 1}
	args := sig.Params
	if static {
		alloc.nextI = 2
	} else {
		args = append([]vm.BasicType{vm.TObject}, args...)
	}

	local := 0
	for _, t := range args {
		slot := local
		if t.Slots() == 2 {
			slot = local + 1
		}
		off := -int64(slot) * frame.WordSize
		passArgument(a, t, off, alloc.next(t.IsFloating()))
		local += t.Slots()
	}
	a.LiAddress(asm.A0, resultHandler)
	a.Ret()
	return a.Finalize()
}

// passArgument moves the local at xlocals+off into loc.
func passArgument(a *asm.Assembler, t vm.BasicType, off int64, loc argLocation) {
	dst := loc.ireg
	if dst == asm.NoReg && !loc.isF {
		dst = asm.T0
	}
	src := asm.C(off)

	switch t {
	case vm.TFloat, vm.TDouble:
		if loc.isF {
			base, imm := xlocals, off
			if !asm.FitsSigned(off, 12) {
				a.AddConstant(asm.T1, xlocals, off, asm.T2)
				base, imm = asm.T1, 0
			}
			if t == vm.TFloat {
				a.Flw(loc.freg, base, imm)
			} else {
				a.Fld(loc.freg, base, imm)
			}
			return
		}
		// out of float registers: raw bits in an integer location
		if t == vm.TFloat {
			a.LoadWU(dst, xlocals, src, asm.T2)
		} else {
			a.LoadD(dst, xlocals, src, asm.T2)
		}
	case vm.TBoolean:
		a.LoadBU(dst, xlocals, src, asm.T2)
	case vm.TByte:
		a.LoadB(dst, xlocals, src, asm.T2)
	case vm.TChar:
		a.LoadHU(dst, xlocals, src, asm.T2)
	case vm.TShort:
		a.LoadH(dst, xlocals, src, asm.T2)
	case vm.TInt:
		a.LoadW(dst, xlocals, src, asm.T2)
	case vm.TLong:
		a.LoadD(dst, xlocals, src, asm.T2)
	case vm.TObject:
		// pass the address of the slot, or null when the slot holds null
		done := a.NewLabel()
		a.LoadD(asm.T1, xlocals, src, asm.T2)
		a.AddConstant(dst, xlocals, off, asm.T2)
		a.Bnez(asm.T1, done)
		a.Mv(dst, asm.Zero)
		a.Bind(done)
	default:
		asm.ShouldNotReachHere("argument of type " + t.String())
	}
	if loc.ireg == asm.NoReg {
		a.StoreD(dst, asm.SP, asm.C(loc.stack), asm.T1)
	}
}
