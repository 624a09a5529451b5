package asm

// Pseudo-instructions. Each emits a single word unless noted.

// Nop emits addi zero, zero, 0.
func (a *Assembler) Nop() { a.Addi(Zero, Zero, 0) }

// Mv copies rs into rd.
func (a *Assembler) Mv(rd, rs Register) { a.Addi(rd, rs, 0) }

// Not emits rd = ^rs.
func (a *Assembler) Not(rd, rs Register) { a.Xori(rd, rs, -1) }

// Neg emits rd = -rs.
func (a *Assembler) Neg(rd, rs Register) { a.Sub(rd, Zero, rs) }

// Snez sets rd to 1 if rs is nonzero, else 0.
func (a *Assembler) Snez(rd, rs Register) { a.Sltu(rd, Zero, rs) }

// Seqz sets rd to 1 if rs is zero, else 0.
func (a *Assembler) Seqz(rd, rs Register) { a.Sltiu(rd, rs, 1) }

// SextW sign-extends the low 32 bits of rs into rd.
func (a *Assembler) SextW(rd, rs Register) { a.Addiw(rd, rs, 0) }

// Ret returns through ra.
func (a *Assembler) Ret() { a.Jalr(Zero, RA, 0) }

// Jr jumps to the address in rs.
func (a *Assembler) Jr(rs Register) { a.Jalr(Zero, rs, 0) }

// FabsD emits fabs.d fd, fs.
func (a *Assembler) FabsD(fd, fs FloatRegister) { a.FsgnjxD(fd, fs, fs) }

// CallAddress calls the absolute address addr through tmp. Several words.
func (a *Assembler) CallAddress(addr uint64, tmp Register) {
	a.LiAddress(tmp, addr)
	a.Jalr(RA, tmp, 0)
}

// JumpAddress jumps to the absolute address addr through tmp. Several words.
func (a *Assembler) JumpAddress(addr uint64, tmp Register) {
	a.LiAddress(tmp, addr)
	a.Jalr(Zero, tmp, 0)
}

// AddConstant emits rd = rs + v, going through tmp when v does not fit an
// immediate. Several words.
func (a *Assembler) AddConstant(rd, rs Register, v int64, tmp Register) {
	if FitsSigned(v, 12) {
		a.Addi(rd, rs, v)
		return
	}
	if tmp == NoReg || tmp == rs {
		fatalf("wide add has a temp distinct from its source", "%s = %s + %d", rd, rs, v)
	}
	a.Li(tmp, v)
	a.Add(rd, rs, tmp)
}
