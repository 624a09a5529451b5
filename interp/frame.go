package interp

import (
	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/frame"
	"github.com/chazu/rvgen/vm"
)

// computeLocals sets xlocals from the incoming expression stack. esp
// points at the last parameter, so local 0 is (params-1) words above it.
// Leaves the parameter count in t2.
func (g *Generator) computeLocals() {
	a := g.a
	a.Lhu(asm.T2, xmethod, g.cfg.Method.SizeOfParameters)
	g.v.shadd(a, xlocals, asm.T2, esp, asm.T1, 3)
	a.Addi(xlocals, xlocals, -frame.WordSize)
}

// generateStackOverflowCheck compares the lowest sp the new frame can
// reach against the thread's stack limit. extra holds the number of
// non-parameter locals. Clobbers t1 and t2.
func (g *Generator) generateStackOverflowCheck(extra asm.Register) {
	a := g.a
	a.Comment("stack overflow check")
	ok := a.NewLabel()
	a.Lhu(asm.T1, xmethod, g.cfg.Method.MaxStack)
	a.Add(asm.T1, asm.T1, extra)
	// fixed frame, one monitor and alignment slack
	a.Addi(asm.T1, asm.T1, frame.FixedWords+frame.MonitorWords+frame.StackAlignment/frame.WordSize)
	a.Slli(asm.T1, asm.T1, 3)
	a.Sub(asm.T1, esp, asm.T1)
	a.Ld(asm.T2, xthread, g.cfg.Thread.StackLimit)
	a.Bgeu(asm.T1, asm.T2, ok)
	a.J(g.throwStackOverflow)
	a.Bind(ok)
}

// generateFixedFrame pushes the fixed part of an interpreter frame below
// sp. For synchronized methods it also reserves the monitor with a null
// object, so exits taken before the lock is acquired find nothing to
// release. Leaves esp at the empty expression stack.
func (g *Generator) generateFixedFrame(native, synchronized bool) {
	a, ml := g.a, g.cfg.Method
	a.Comment("fixed frame")
	a.Addi(asm.SP, asm.SP, -frame.FixedSize)
	a.Sd(asm.RA, asm.SP, frame.FixedSize+frame.ReturnAddr.Offset())
	a.Sd(asm.FP, asm.SP, frame.FixedSize+frame.SavedFP.Offset())
	a.Addi(asm.FP, asm.SP, frame.FixedSize)

	a.Sd(senderSP, asm.FP, frame.SenderSP.Offset())
	a.Sd(asm.Zero, asm.FP, frame.LastSP.Offset())
	a.Sd(xmethod, asm.FP, frame.Method.Offset())
	a.Ld(asm.T0, xmethod, ml.HolderMirror)
	a.Sd(asm.T0, asm.FP, frame.Mirror.Offset())

	a.Sd(asm.Zero, asm.FP, frame.MDP.Offset())
	if g.cfg.ProfileInterpreter && !native {
		g.setMethodDataPointer()
	}

	a.Ld(asm.T0, xmethod, ml.CPCache)
	a.Sd(asm.T0, asm.FP, frame.CPCache.Offset())
	a.Sd(xlocals, asm.FP, frame.Locals.Offset())
	if native {
		a.Mv(xbcp, asm.Zero)
	} else {
		a.Ld(asm.T0, xmethod, ml.ConstMethod)
		a.Addi(xbcp, asm.T0, ml.CodesOffset)
	}
	a.Sd(xbcp, asm.FP, frame.BCP.Offset())
	a.Sd(asm.Zero, asm.FP, frame.ResultHandler.Offset())
	a.Sd(asm.Zero, asm.FP, frame.OopTemp.Offset())
	a.Sd(asm.Zero, asm.FP, frame.Padding.Offset())

	a.Addi(esp, asm.FP, -frame.FixedSize)
	if synchronized {
		a.Addi(esp, esp, -frame.MonitorSize)
	}
	a.Sd(esp, asm.FP, frame.MonitorBlockTop.Offset())

	if native {
		a.Mv(asm.SP, esp)
	} else {
		a.Lhu(asm.T0, xmethod, ml.MaxStack)
		a.Slli(asm.T0, asm.T0, 3)
		a.Sub(asm.T0, esp, asm.T0)
		a.Andi(asm.SP, asm.T0, -frame.StackAlignment)
	}
	if synchronized {
		a.Sd(asm.Zero, esp, frame.MonitorLock)
		a.Sd(asm.Zero, esp, frame.MonitorObj)
	}
}

// setMethodDataPointer stores the first profile cell of the method's data
// in the frame, if the method has data. Clobbers t0.
func (g *Generator) setMethodDataPointer() {
	a, ml := g.a, g.cfg.Method
	none := a.NewLabel()
	a.Ld(asm.T0, xmethod, ml.MethodData)
	a.Beqz(asm.T0, none)
	a.Addi(asm.T0, asm.T0, ml.MDPDataOffset)
	a.Sd(asm.T0, asm.FP, frame.MDP.Offset())
	a.Bind(none)
}

// generateCounterIncrement bumps the invocation counter, saturating at the
// limit. Once the counter has reached the limit every invocation takes
// overflow; without a compiler there is no overflow path and the counter
// simply stops. Clobbers t0 and t1.
func (g *Generator) generateCounterIncrement(overflow asm.Label) {
	a, ml := g.a, g.cfg.Method
	a.Comment("invocation counter")
	limit := g.cfg.ProfileLimit
	if g.cfg.UseCompiler {
		limit = g.cfg.InvocationLimit
	}
	done := a.NewLabel()
	a.Lwu(asm.T0, xmethod, ml.InvocationCounter)
	a.Li(asm.T1, int64(limit))
	if g.cfg.UseCompiler {
		a.Bgeu(asm.T0, asm.T1, overflow)
	} else {
		a.Bgeu(asm.T0, asm.T1, done)
	}
	a.Addi(asm.T0, asm.T0, 1)
	a.Sw(asm.T0, xmethod, ml.InvocationCounter)
	if g.cfg.UseCompiler {
		a.Bgeu(asm.T0, asm.T1, overflow)
	}
	a.Bind(done)
}

// generateCounterOverflow emits the out-of-line call to the compilation
// trigger, resuming at cont.
func (g *Generator) generateCounterOverflow(overflow, cont asm.Label) {
	a := g.a
	a.Bind(overflow)
	a.Mv(asm.A1, asm.Zero) // not a backward branch
	g.callVM(g.cfg.Runtime.FrequencyCounterOverflow, "frequency_counter_overflow")
	a.J(cont)
}

// generateProfileMethod asks the runtime for method data once the counter
// reaches the profile limit, then sets the frame's mdp.
func (g *Generator) generateProfileMethod() {
	a, ml := g.a, g.cfg.Method
	a.Comment("profile method")
	done := a.NewLabel()
	a.Ld(asm.T0, xmethod, ml.MethodData)
	a.Bnez(asm.T0, done)
	a.Lwu(asm.T0, xmethod, ml.InvocationCounter)
	a.Li(asm.T1, int64(g.cfg.ProfileLimit))
	a.Bltu(asm.T0, asm.T1, done)
	g.callVM(g.cfg.Runtime.ProfileMethod, "profile_method")
	g.setMethodDataPointer()
	a.Bind(done)
}

// generateLockMethod stores the lock object in the reserved monitor and
// enters it: the holder mirror for static methods, the receiver
// otherwise. The object is stored before the call, so a monitorenter that
// throws must clear the monitor's object slot or the exit path unlocks it.
func (g *Generator) generateLockMethod() {
	a := g.a
	a.Comment("lock method")
	have := a.NewLabel()
	g.loadAccessBits(asm.T1, xmethod, int64(vm.AccStatic))
	a.Ld(asm.T0, xlocals, 0)
	a.Beqz(asm.T1, have)
	a.Ld(asm.T0, asm.FP, frame.Mirror.Offset())
	a.Bind(have)
	a.Addi(asm.A1, asm.FP, frame.FirstMonitor)
	a.Sd(asm.T0, asm.A1, frame.MonitorObj)
	g.callVM(g.cfg.Runtime.MonitorEnter, "monitorenter")
}

// generateDispatch jumps to the template of the bytecode at xbcp.
func (g *Generator) generateDispatch() {
	a := g.a
	a.Comment("dispatch")
	a.Lbu(asm.T0, xbcp, 0)
	a.LiAddress(xdispatch, g.cfg.Dispatch.Base)
	g.v.shadd(a, asm.T0, asm.T0, xdispatch, asm.T1, 3)
	a.Ld(asm.T0, asm.T0, 0)
	a.Jr(asm.T0)
}
