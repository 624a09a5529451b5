package interp

import (
	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/frame"
	"github.com/chazu/rvgen/vm"
)

// generateForwardException emits the frameless exception exit. On entry
// the activation is gone, sp is the caller's and ra is the return address
// into the caller, which becomes the issuing pc.
//
//	a0 = pending exception; pending = 0; a1 = ra; goto exception dispatch
func (g *Generator) generateForwardException() {
	a, th := g.a, g.cfg.Thread
	g.begin(RoutineForwardException)
	a.Bind(g.forwardException)

	present := a.NewLabel()
	a.Ld(asm.A0, xthread, th.PendingException)
	a.Bnez(asm.A0, present)
	a.Ebreak() // forwarding without an exception
	a.Bind(present)
	a.Sd(asm.Zero, xthread, th.PendingException)
	a.Mv(asm.A1, asm.RA)
	a.JumpAddress(g.cfg.Runtime.ExceptionDispatch, asm.T0)
}

// generateRemoveActivation emits the single exit sequence shared by normal
// and exceptional returns of interpreted and native frames. It releases
// the method's monitor if one is held, pops the frame and either returns
// or forwards the pending exception.
func (g *Generator) generateRemoveActivation() {
	a := g.a
	common := a.NewLabel()

	g.begin(RoutineRemoveActivationExc)
	a.Bind(g.removeActivationExc)
	a.Li(asm.T2, 1)
	a.J(common)

	g.begin(RoutineRemoveActivation)
	a.Bind(g.removeActivation)
	a.Li(asm.T2, 0)

	a.Bind(common)
	a.Addi(asm.SP, asm.SP, -2*frame.StackAlignment)
	a.Sd(asm.A0, asm.SP, 0)
	a.Fsd(asm.FA0, asm.SP, frame.WordSize)
	a.Sd(asm.T2, asm.SP, 2*frame.WordSize)

	unlocked := a.NewLabel()
	a.Comment("unlock if synchronized and still held")
	a.Ld(asm.T0, asm.FP, frame.Method.Offset())
	g.loadAccessBits(asm.T0, asm.T0, int64(vm.AccSynchronized))
	a.Beqz(asm.T0, unlocked)
	a.Addi(asm.A0, asm.FP, frame.FirstMonitor)
	a.Ld(asm.T0, asm.A0, frame.MonitorObj)
	a.Beqz(asm.T0, unlocked)
	a.Mv(asm.A1, xthread)
	g.leafCall(g.cfg.Runtime.MonitorExit, "monitorexit")
	a.Sd(asm.Zero, asm.FP, frame.FirstMonitor+frame.MonitorObj)
	a.Bind(unlocked)

	a.Ld(asm.A0, asm.SP, 0)
	a.Fld(asm.FA0, asm.SP, frame.WordSize)
	a.Ld(asm.T2, asm.SP, 2*frame.WordSize)
	a.Addi(asm.SP, asm.SP, 2*frame.StackAlignment)

	a.Comment("pop frame")
	a.Ld(asm.RA, asm.FP, frame.ReturnAddr.Offset())
	a.Ld(asm.T1, asm.FP, frame.SenderSP.Offset())
	a.Ld(asm.FP, asm.FP, frame.SavedFP.Offset())
	a.Mv(asm.SP, asm.T1)

	returning := a.NewLabel()
	a.Beqz(asm.T2, returning)
	a.J(g.forwardException)
	a.Bind(returning)
	a.Ret()
}

// generateThrowStackOverflow emits the handler the stack overflow guard
// jumps to before any frame has been built.
func (g *Generator) generateThrowStackOverflow() {
	a := g.a
	g.begin(RoutineThrowStackOverflowError)
	a.Bind(g.throwStackOverflow)
	a.Mv(asm.SP, senderSP)
	g.pushRA()
	a.Mv(asm.A0, xthread)
	g.leafCall(g.cfg.Runtime.ThrowStackOverflow, "throw_StackOverflowError")
	g.popRA()
	a.J(g.forwardException)
}

// generateResultHandlers emits one routine per basic type that converts
// the raw native return registers into the interpreter's representation.
func (g *Generator) generateResultHandlers() {
	a := g.a
	for _, t := range vm.BasicTypes {
		g.begin("result_handler_" + t.String())
		l := a.NewLabel()
		a.Bind(l)
		g.resultHandlers[t] = l
		switch t {
		case vm.TBoolean:
			a.Andi(asm.A0, asm.A0, 0xff)
			a.Snez(asm.A0, asm.A0)
		case vm.TChar:
			g.v.zext16(a, asm.A0, asm.A0)
		case vm.TByte:
			g.v.sext8(a, asm.A0, asm.A0)
		case vm.TShort:
			g.v.sext16(a, asm.A0, asm.A0)
		case vm.TInt:
			a.SextW(asm.A0, asm.A0)
		case vm.TObject:
			null := a.NewLabel()
			a.Beqz(asm.A0, null)
			a.Ld(asm.A0, asm.A0, 0) // resolve the handle
			a.Bind(null)
		case vm.TLong, vm.TFloat, vm.TDouble, vm.TVoid:
		default:
			asm.ShouldNotReachHere("result handler for " + t.String())
		}
		a.Ret()
	}
}
