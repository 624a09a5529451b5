package asm

import "fmt"

// RegisterOrConstant is either a register or a known integer constant.
type RegisterOrConstant struct {
	reg   Register
	value int64
	isReg bool
}

// R wraps a register operand.
func R(r Register) RegisterOrConstant { return RegisterOrConstant{reg: r, isReg: true} }

// C wraps a constant operand.
func C(v int64) RegisterOrConstant { return RegisterOrConstant{value: v, reg: NoReg} }

// IsRegister reports whether the operand is a register.
func (o RegisterOrConstant) IsRegister() bool { return o.isReg }

// IsConstant reports whether the operand is a constant.
func (o RegisterOrConstant) IsConstant() bool { return !o.isReg }

// Register returns the register operand.
func (o RegisterOrConstant) Register() Register {
	if !o.isReg {
		fatalf("operand is a register", "%s", o)
	}
	return o.reg
}

// Constant returns the constant operand.
func (o RegisterOrConstant) Constant() int64 {
	if o.isReg {
		fatalf("operand is a constant", "%s", o)
	}
	return o.value
}

func (o RegisterOrConstant) String() string {
	if o.isReg {
		return o.reg.String()
	}
	return fmt.Sprintf("%d", o.value)
}

// resolveAddress turns base+off into a (register, 12-bit offset) pair,
// emitting whatever is needed to get there. tmp may be NoReg. Loads without
// a temp build the address in dst; stores must supply one.
func (a *Assembler) resolveAddress(base Register, off RegisterOrConstant, dst, tmp Register, store bool, what string) (Register, int64) {
	if off.IsConstant() && FitsSigned(off.value, 12) {
		return base, off.value
	}
	scratch := tmp
	switch {
	case tmp != NoReg:
		if !Distinct(dst, base, tmp) {
			fatalf("destination, base and temp are distinct", "%s %s, %s(%s) tmp %s", what, dst, off, base, tmp)
		}
	case store:
		fatalf("store with a wide offset has a temp", "%s %s, %s(%s)", what, dst, off, base)
	default:
		if dst == base || dst == Zero {
			fatalf("load destination may hold the address", "%s %s, %s(%s)", what, dst, off, base)
		}
		scratch = dst
	}
	if off.IsRegister() {
		a.Add(scratch, base, off.reg)
	} else {
		a.Li(scratch, off.value)
		a.Add(scratch, scratch, base)
	}
	return scratch, 0
}

func (a *Assembler) loadVia(op func(rd, base Register, off int64), what string, dst, base Register, off RegisterOrConstant, tmp Register) {
	r, imm := a.resolveAddress(base, off, dst, tmp, false, what)
	op(dst, r, imm)
}

func (a *Assembler) storeVia(op func(src, base Register, off int64), what string, src, base Register, off RegisterOrConstant, tmp Register) {
	r, imm := a.resolveAddress(base, off, src, tmp, true, what)
	op(src, r, imm)
}

// LoadB loads a sign-extended byte from base+off.
func (a *Assembler) LoadB(dst, base Register, off RegisterOrConstant, tmp Register) {
	a.loadVia(a.Lb, "lb", dst, base, off, tmp)
}

// LoadBU loads a zero-extended byte from base+off.
func (a *Assembler) LoadBU(dst, base Register, off RegisterOrConstant, tmp Register) {
	a.loadVia(a.Lbu, "lbu", dst, base, off, tmp)
}

// LoadH loads a sign-extended halfword from base+off.
func (a *Assembler) LoadH(dst, base Register, off RegisterOrConstant, tmp Register) {
	a.loadVia(a.Lh, "lh", dst, base, off, tmp)
}

// LoadHU loads a zero-extended halfword from base+off.
func (a *Assembler) LoadHU(dst, base Register, off RegisterOrConstant, tmp Register) {
	a.loadVia(a.Lhu, "lhu", dst, base, off, tmp)
}

// LoadW loads a sign-extended word from base+off.
func (a *Assembler) LoadW(dst, base Register, off RegisterOrConstant, tmp Register) {
	a.loadVia(a.Lw, "lw", dst, base, off, tmp)
}

// LoadWU loads a zero-extended word from base+off.
func (a *Assembler) LoadWU(dst, base Register, off RegisterOrConstant, tmp Register) {
	a.loadVia(a.Lwu, "lwu", dst, base, off, tmp)
}

// LoadD loads a doubleword from base+off.
func (a *Assembler) LoadD(dst, base Register, off RegisterOrConstant, tmp Register) {
	a.loadVia(a.Ld, "ld", dst, base, off, tmp)
}

// StoreB stores the low byte of src at base+off.
func (a *Assembler) StoreB(src, base Register, off RegisterOrConstant, tmp Register) {
	a.storeVia(a.Sb, "sb", src, base, off, tmp)
}

// StoreH stores the low halfword of src at base+off.
func (a *Assembler) StoreH(src, base Register, off RegisterOrConstant, tmp Register) {
	a.storeVia(a.Sh, "sh", src, base, off, tmp)
}

// StoreW stores the low word of src at base+off.
func (a *Assembler) StoreW(src, base Register, off RegisterOrConstant, tmp Register) {
	a.storeVia(a.Sw, "sw", src, base, off, tmp)
}

// StoreD stores src at base+off.
func (a *Assembler) StoreD(src, base Register, off RegisterOrConstant, tmp Register) {
	a.storeVia(a.Sd, "sd", src, base, off, tmp)
}
