package interp

import (
	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/frame"
)

// setLastJavaFrame publishes sp, fp and the current pc in the thread so
// stack walkers can find the interpreted frame during a call-out.
func (g *Generator) setLastJavaFrame() {
	a, th := g.a, g.cfg.Thread
	a.Sd(asm.SP, xthread, th.LastJavaSP)
	a.Sd(asm.FP, xthread, th.LastJavaFP)
	a.Auipc(asm.T0, 0)
	a.Sd(asm.T0, xthread, th.LastJavaPC)
}

func (g *Generator) resetLastJavaFrame() {
	a, th := g.a, g.cfg.Thread
	a.Sd(asm.Zero, xthread, th.LastJavaSP)
	a.Sd(asm.Zero, xthread, th.LastJavaFP)
	a.Sd(asm.Zero, xthread, th.LastJavaPC)
}

// callVM calls a runtime entry from inside a built frame with a0 = thread.
// Arguments in a1.. are set by the caller. A pending exception afterwards
// unwinds through remove_activation_exception.
func (g *Generator) callVM(entry uint64, what string) {
	a := g.a
	a.Comment("call_VM %s", what)
	a.Mv(asm.A0, xthread)
	a.Sd(xbcp, asm.FP, frame.BCP.Offset())
	g.setLastJavaFrame()
	a.CallAddress(entry, asm.T0)
	g.resetLastJavaFrame()
	a.Ld(xmethod, asm.FP, frame.Method.Offset())
	a.Ld(xbcp, asm.FP, frame.BCP.Offset())
	g.checkPendingException(g.removeActivationExc)
}

// checkPendingException jumps to target when the thread has a pending
// exception. The jump is a jal so the target may be anywhere in the blob.
func (g *Generator) checkPendingException(target asm.Label) {
	a := g.a
	ok := a.NewLabel()
	a.Ld(asm.T0, xthread, g.cfg.Thread.PendingException)
	a.Beqz(asm.T0, ok)
	a.J(target)
	a.Bind(ok)
}

// leafCall calls a C routine that neither walks the stack nor throws.
func (g *Generator) leafCall(entry uint64, what string) {
	g.a.Comment("call_leaf %s", what)
	g.a.CallAddress(entry, asm.T0)
}

// pushRA saves ra below sp around a call made without a frame.
func (g *Generator) pushRA() {
	g.a.Addi(asm.SP, asm.SP, -frame.StackAlignment)
	g.a.Sd(asm.RA, asm.SP, frame.WordSize)
}

func (g *Generator) popRA() {
	g.a.Ld(asm.RA, asm.SP, frame.WordSize)
	g.a.Addi(asm.SP, asm.SP, frame.StackAlignment)
}

// pushResult saves the raw result registers a0 and fa0.
func (g *Generator) pushResult() {
	g.a.Addi(asm.SP, asm.SP, -frame.StackAlignment)
	g.a.Sd(asm.A0, asm.SP, 0)
	g.a.Fsd(asm.FA0, asm.SP, frame.WordSize)
}

func (g *Generator) popResult() {
	g.a.Ld(asm.A0, asm.SP, 0)
	g.a.Fld(asm.FA0, asm.SP, frame.WordSize)
	g.a.Addi(asm.SP, asm.SP, frame.StackAlignment)
}

// loadAccessBits leaves the access flags of the method in m, masked, in dst.
func (g *Generator) loadAccessBits(dst, m asm.Register, mask int64) {
	g.a.Lwu(dst, m, g.cfg.Method.AccessFlags)
	g.a.Andi(dst, dst, mask)
}

// publishState stores a thread state. fenceBefore orders every earlier
// access before the store becomes visible.
func (g *Generator) publishState(state uint32, fenceBefore bool) {
	a := g.a
	a.Li(asm.T0, int64(state))
	if fenceBefore {
		a.Fence(asm.FenceRW, asm.FenceW)
	}
	a.Sw(asm.T0, xthread, g.cfg.Thread.State)
}
