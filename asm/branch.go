package asm

// Condition selects the comparison of a conditional branch. Its value is
// the funct3 field of the B-type encoding.
type Condition uint32

// Branch conditions.
const (
	EQ  Condition = 0
	NE  Condition = 1
	LT  Condition = 4
	GE  Condition = 5
	LTU Condition = 6
	GEU Condition = 7
)

var conditionNames = map[Condition]string{
	EQ: "eq", NE: "ne", LT: "lt", GE: "ge", LTU: "ltu", GEU: "geu",
}

func (c Condition) String() string {
	if s, ok := conditionNames[c]; ok {
		return s
	}
	return "cond?"
}

// Invert returns the condition that holds exactly when c does not.
func (c Condition) Invert() Condition { return c ^ 1 }

func (c Condition) valid() bool {
	_, ok := conditionNames[c]
	return ok
}

// Branch emits a conditional branch to l.
func (a *Assembler) Branch(c Condition, rs1, rs2 Register, l Label) {
	if !c.valid() {
		fatalf("branch condition is encodable", "%d", c)
	}
	disp := a.refer(l)
	a.emit(opBranch | uint32(c)<<12 | ireg(rs1)<<15 | ireg(rs2)<<20 | bTypeImm(disp))
}

// BranchTo emits a conditional branch to the byte position target.
func (a *Assembler) BranchTo(c Condition, rs1, rs2 Register, target int) {
	if !c.valid() {
		fatalf("branch condition is encodable", "%d", c)
	}
	disp := int64(target - a.Pos())
	a.emit(opBranch | uint32(c)<<12 | ireg(rs1)<<15 | ireg(rs2)<<20 | bTypeImm(disp))
}

// Beq branches to l if rs1 == rs2.
func (a *Assembler) Beq(rs1, rs2 Register, l Label) { a.Branch(EQ, rs1, rs2, l) }

// Bne branches to l if rs1 != rs2.
func (a *Assembler) Bne(rs1, rs2 Register, l Label) { a.Branch(NE, rs1, rs2, l) }

// Blt branches to l if rs1 < rs2, signed.
func (a *Assembler) Blt(rs1, rs2 Register, l Label) { a.Branch(LT, rs1, rs2, l) }

// Bge branches to l if rs1 >= rs2, signed.
func (a *Assembler) Bge(rs1, rs2 Register, l Label) { a.Branch(GE, rs1, rs2, l) }

// Bltu branches to l if rs1 < rs2, unsigned.
func (a *Assembler) Bltu(rs1, rs2 Register, l Label) { a.Branch(LTU, rs1, rs2, l) }

// Bgeu branches to l if rs1 >= rs2, unsigned.
func (a *Assembler) Bgeu(rs1, rs2 Register, l Label) { a.Branch(GEU, rs1, rs2, l) }

// Beqz branches to l if rs == 0.
func (a *Assembler) Beqz(rs Register, l Label) { a.Branch(EQ, rs, Zero, l) }

// Bnez branches to l if rs != 0.
func (a *Assembler) Bnez(rs Register, l Label) { a.Branch(NE, rs, Zero, l) }

// Jal emits jal rd, l.
func (a *Assembler) Jal(rd Register, l Label) {
	disp := a.refer(l)
	a.emit(opJal | ireg(rd)<<7 | jTypeImm(disp))
}

// JalTo emits jal rd to the byte position target.
func (a *Assembler) JalTo(rd Register, target int) {
	disp := int64(target - a.Pos())
	a.emit(opJal | ireg(rd)<<7 | jTypeImm(disp))
}

// J jumps to l.
func (a *Assembler) J(l Label) { a.Jal(Zero, l) }

// Call jumps to l, leaving the return address in ra.
func (a *Assembler) Call(l Label) { a.Jal(RA, l) }

// BranchDestination decodes the target position of the branch or jump inst
// emitted at pos.
func BranchDestination(inst uint32, pos int) int {
	switch Opcode(inst) {
	case opBranch:
		return pos + int(bTypeDisp(inst))
	case opJal:
		return pos + int(jTypeDisp(inst))
	}
	ShouldNotReachHere("branch destination of a non-branch instruction")
	return 0
}

// PatchedBranch returns inst, emitted at pos, retargeted to dest. Only the
// displacement bits change.
func PatchedBranch(dest int, inst uint32, pos int) uint32 {
	disp := int64(dest - pos)
	switch Opcode(inst) {
	case opBranch:
		return inst&^bTypeMask | bTypeImm(disp)
	case opJal:
		return inst&^jTypeMask | jTypeImm(disp)
	}
	ShouldNotReachHere("patching a non-branch instruction")
	return 0
}
