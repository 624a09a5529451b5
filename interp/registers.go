package interp

import "github.com/chazu/rvgen/asm"

// Fixed register assignment of interpreted frames. Everything except
// xmethod is callee-saved in the C convention and survives native calls;
// xmethod is reloaded from the frame after every call-out.
const (
	xthread   = asm.S7 // current thread record
	xmethod   = asm.T6 // current method metadata
	xbcp      = asm.S6 // bytecode pointer
	xlocals   = asm.S8 // address of local 0; local i is at xlocals - 8i
	xdispatch = asm.S5 // dispatch table base
	esp       = asm.S4 // expression stack top element
	senderSP  = asm.S3 // caller's sp, restored on return
)

// Entry register contract, for the runtime glue that calls entries.
var (
	ThreadRegister   = xthread
	MethodRegister   = xmethod
	BCPRegister      = xbcp
	LocalsRegister   = xlocals
	DispatchRegister = xdispatch
	StackRegister    = esp
	SenderSPRegister = senderSP
)
