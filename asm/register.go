package asm

import "fmt"

// Register names an integer register x0..x31.
type Register uint8

// Integer registers.
const (
	X0 Register = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	X31
)

// NoReg marks an absent optional register operand.
const NoReg Register = 0xff

// ABI aliases.
const (
	Zero = X0
	RA   = X1
	SP   = X2
	GP   = X3
	TP   = X4
	T0   = X5
	T1   = X6
	T2   = X7
	FP   = X8
	S1   = X9
	A0   = X10
	A1   = X11
	A2   = X12
	A3   = X13
	A4   = X14
	A5   = X15
	A6   = X16
	A7   = X17
	S2   = X18
	S3   = X19
	S4   = X20
	S5   = X21
	S6   = X22
	S7   = X23
	S8   = X24
	S9   = X25
	S10  = X26
	S11  = X27
	T3   = X28
	T4   = X29
	T5   = X30
	T6   = X31
)

var intNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// IsValid reports whether r names a real register.
func (r Register) IsValid() bool { return r < 32 }

func (r Register) String() string {
	if r == NoReg {
		return "noreg"
	}
	if !r.IsValid() {
		return fmt.Sprintf("x?%d", uint8(r))
	}
	return intNames[r]
}

// FloatRegister names a floating-point register f0..f31.
type FloatRegister uint8

// Floating-point registers by ABI name.
const (
	FT0 FloatRegister = iota
	FT1
	FT2
	FT3
	FT4
	FT5
	FT6
	FT7
	FS0
	FS1
	FA0
	FA1
	FA2
	FA3
	FA4
	FA5
	FA6
	FA7
)

var floatNames = [32]string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5",
	"fa6", "fa7", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7",
	"fs8", "fs9", "fs10", "fs11", "ft8", "ft9", "ft10", "ft11",
}

// IsValid reports whether f names a real register.
func (f FloatRegister) IsValid() bool { return f < 32 }

func (f FloatRegister) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("f?%d", uint8(f))
	}
	return floatNames[f]
}

// IntArgRegisters are the integer argument registers of the C calling
// convention, in order.
var IntArgRegisters = []Register{A0, A1, A2, A3, A4, A5, A6, A7}

// FloatArgRegisters are the floating-point argument registers of the C
// calling convention, in order.
var FloatArgRegisters = []FloatRegister{FA0, FA1, FA2, FA3, FA4, FA5, FA6, FA7}

// Distinct reports whether no register appears twice. NoReg entries are
// ignored.
func Distinct(regs ...Register) bool {
	var seen uint32
	for _, r := range regs {
		if r == NoReg {
			continue
		}
		bit := uint32(1) << (r & 31)
		if seen&bit != 0 {
			return false
		}
		seen |= bit
	}
	return true
}

func ireg(r Register) uint32 {
	if !r.IsValid() {
		fatalf("register operand is valid", "%v", r)
	}
	return uint32(r)
}

func freg(f FloatRegister) uint32 {
	if !f.IsValid() {
		fatalf("register operand is valid", "%v", f)
	}
	return uint32(f)
}
