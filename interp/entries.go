package interp

import (
	"fmt"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/frame"
	"github.com/chazu/rvgen/vm"
)

// Entry contract for every entry:
//
//	xmethod   method metadata
//	esp       last parameter on the caller's expression stack
//	senderSP  caller's sp, restored on return
//	xthread   current thread
//	ra        return address
//
// Results come back in a0 or fa0.

// generateNormalEntry emits the entry for interpreted methods. It ends by
// dispatching to the first bytecode.
func (g *Generator) generateNormalEntry(synchronized bool) {
	a, ml := g.a, g.cfg.Method

	g.computeLocals()
	a.Lhu(asm.T0, xmethod, ml.MaxLocals)
	a.Sub(asm.T0, asm.T0, asm.T2) // extra locals
	g.generateStackOverflowCheck(asm.T0)

	a.Comment("zero extra locals")
	zeroed := a.NewLabel()
	loop := a.NewLabel()
	a.Beqz(asm.T0, zeroed)
	a.Bind(loop)
	a.Addi(esp, esp, -frame.WordSize)
	a.Sd(asm.Zero, esp, 0)
	a.Addi(asm.T0, asm.T0, -1)
	a.Bnez(asm.T0, loop)
	a.Bind(zeroed)
	a.Andi(asm.SP, esp, -frame.StackAlignment)

	g.generateFixedFrame(false, synchronized)

	overflow := a.NewLabel()
	cont := a.NewLabel()
	if g.cfg.countInvocations() {
		g.generateCounterIncrement(overflow)
	}
	a.Bind(cont)
	if g.cfg.ProfileInterpreter {
		g.generateProfileMethod()
	}
	if synchronized {
		g.generateLockMethod()
	}
	g.generateDispatch()

	if g.cfg.countInvocations() && g.cfg.UseCompiler {
		g.generateCounterOverflow(overflow, cont)
	}
}

// generateNativeEntry emits the entry for native methods: build a frame,
// marshal arguments through the signature handler, run the thread state
// protocol around the call and convert the result.
func (g *Generator) generateNativeEntry(synchronized bool) {
	a, ml, th := g.a, g.cfg.Method, g.cfg.Thread

	g.computeLocals()
	a.Andi(asm.SP, esp, -frame.StackAlignment)
	g.generateFixedFrame(true, synchronized)

	overflow := a.NewLabel()
	cont := a.NewLabel()
	if g.cfg.countInvocations() {
		g.generateCounterIncrement(overflow)
	}
	a.Bind(cont)
	if synchronized {
		g.generateLockMethod()
	}

	a.Comment("outgoing argument area")
	a.Lhu(asm.T1, xmethod, ml.SizeOfParameters)
	a.Addi(asm.T1, asm.T1, 2) // env and mirror
	a.Slli(asm.T1, asm.T1, 3)
	a.Sub(asm.T1, esp, asm.T1)
	a.Andi(asm.SP, asm.T1, -frame.StackAlignment)

	prepared := a.NewLabel()
	prepare := a.NewLabel()
	a.Ld(asm.T0, xmethod, ml.SignatureHandler)
	a.Beqz(asm.T0, prepare)
	a.Ld(asm.T0, xmethod, ml.NativeFunction)
	a.Bnez(asm.T0, prepared)
	a.Bind(prepare)
	a.Mv(asm.A1, xmethod)
	g.callVM(g.cfg.Runtime.PrepareNativeCall, "prepare_native_call")
	a.Bind(prepared)

	a.Comment("marshal arguments")
	a.Ld(asm.T0, xmethod, ml.SignatureHandler)
	a.Jalr(asm.RA, asm.T0, 0)
	a.Sd(asm.A0, asm.FP, frame.ResultHandler.Offset())
	a.Ld(xmethod, asm.FP, frame.Method.Offset())

	notStatic := a.NewLabel()
	g.loadAccessBits(asm.T0, xmethod, int64(vm.AccStatic))
	a.Beqz(asm.T0, notStatic)
	a.Ld(asm.T0, asm.FP, frame.Mirror.Offset())
	a.Sd(asm.T0, asm.FP, frame.OopTemp.Offset())
	a.Addi(asm.A1, asm.FP, frame.OopTemp.Offset())
	a.Bind(notStatic)
	a.Addi(asm.A0, xthread, th.JNIEnvironment)

	g.setLastJavaFrame()
	a.Ld(asm.T1, xmethod, ml.NativeFunction)
	a.Comment("thread state in_native")
	g.publishState(uint32(vm.ThreadInNative), true)
	a.Jalr(asm.RA, asm.T1, 0)

	g.pushResult()
	a.Comment("thread state in_native_trans")
	g.publishState(uint32(vm.ThreadInNativeTrans), false)
	a.Fence(asm.FenceRW, asm.FenceRW)

	noSpecial := a.NewLabel()
	a.Ld(asm.T0, xthread, th.PollingWord)
	a.Andi(asm.T0, asm.T0, 1)
	a.Lwu(asm.T1, xthread, th.SuspendFlags)
	a.Or(asm.T0, asm.T0, asm.T1)
	a.Beqz(asm.T0, noSpecial)
	a.Mv(asm.A0, xthread)
	g.leafCall(g.cfg.Runtime.CheckSpecialCondition, "check_special_condition")
	a.Bind(noSpecial)

	a.Comment("thread state in_java")
	g.publishState(uint32(vm.ThreadInJava), true)
	g.resetLastJavaFrame()
	a.Ld(asm.T0, xthread, th.ActiveHandles)
	a.Sw(asm.Zero, asm.T0, th.HandleBlockTop)
	g.popResult()

	g.checkPendingException(g.removeActivationExc)
	a.Ld(asm.T0, asm.FP, frame.ResultHandler.Offset())
	a.Jalr(asm.RA, asm.T0, 0)
	a.J(g.removeActivation)

	if g.cfg.countInvocations() && g.cfg.UseCompiler {
		g.generateCounterOverflow(overflow, cont)
	}
}

// generateAbstractEntry throws AbstractMethodError without building a
// frame.
func (g *Generator) generateAbstractEntry() {
	a := g.a
	a.Mv(asm.SP, senderSP)
	g.pushRA()
	a.Mv(asm.A0, xthread)
	a.Mv(asm.A1, xmethod)
	g.leafCall(g.cfg.Runtime.ThrowAbstractMethod, "throw_AbstractMethodError")
	g.popRA()
	a.J(g.forwardException)
}

func (g *Generator) mathRuntime(k MethodKind) uint64 {
	r := g.cfg.Runtime
	switch k {
	case MathSqrt:
		return r.Sqrt
	case MathAbs:
		return r.Abs
	case MathSin:
		return r.Sin
	case MathCos:
		return r.Cos
	case MathTan:
		return r.Tan
	case MathLog:
		return r.Log
	case MathLog10:
		return r.Log10
	case MathExp:
		return r.Exp
	case MathPow:
		return r.Pow
	}
	asm.ShouldNotReachHere(fmt.Sprintf("math runtime for %s", k))
	return 0
}

func (g *Generator) mathAvailable(k MethodKind) bool {
	switch {
	case k == MathSqrt && g.v.hardSqrt, k == MathAbs && g.v.hardAbs:
		return true
	}
	return g.mathRuntime(k) != 0
}

// generateMathEntry computes a math intrinsic directly from the caller's
// expression stack, without a frame. Doubles occupy two slots with the
// value in the higher-numbered one, so the last argument is at 0(esp).
func (g *Generator) generateMathEntry(k MethodKind) {
	a := g.a
	if k == MathPow {
		a.Fld(asm.FA0, esp, 2*frame.WordSize)
		a.Fld(asm.FA1, esp, 0)
	} else {
		a.Fld(asm.FA0, esp, 0)
	}
	switch {
	case k == MathSqrt && g.v.hardSqrt:
		a.FsqrtD(asm.FA0, asm.FA0)
	case k == MathAbs && g.v.hardAbs:
		a.FabsD(asm.FA0, asm.FA0)
	default:
		addr := g.mathRuntime(k)
		if addr == 0 {
			asm.Unimplemented(k.String() + " without hardware support or runtime routine")
		}
		g.pushRA()
		g.leafCall(addr, k.String())
		g.popRA()
	}
	a.Mv(asm.SP, senderSP)
	a.Ret()
}
