package asm

// ---------------------------------------------------------------------------
// Major opcodes (bits 6..0)
// ---------------------------------------------------------------------------

const (
	opLoad    uint32 = 0x03
	opLoadFP  uint32 = 0x07
	opMiscMem uint32 = 0x0f
	opImm     uint32 = 0x13
	opAuipc   uint32 = 0x17
	opImm32   uint32 = 0x1b
	opStore   uint32 = 0x23
	opStoreFP uint32 = 0x27
	opReg     uint32 = 0x33
	opLui     uint32 = 0x37
	opReg32   uint32 = 0x3b
	opFP      uint32 = 0x53
	opBranch  uint32 = 0x63
	opJalr    uint32 = 0x67
	opJal     uint32 = 0x6f
	opSystem  uint32 = 0x73
)

// Load and store widths (funct3).
const (
	widthB  uint32 = 0
	widthH  uint32 = 1
	widthW  uint32 = 2
	widthD  uint32 = 3
	widthBU uint32 = 4
	widthHU uint32 = 5
	widthWU uint32 = 6
)

// Displacement masks of the two branch classes: everything outside the
// mask is opcode, funct3 and register fields.
const (
	bTypeMask uint32 = 0xfe000f80
	jTypeMask uint32 = 0xfffff000
)

// ---------------------------------------------------------------------------
// Format encoders
// ---------------------------------------------------------------------------

// R-type: funct7[31:25] | rs2[24:20] | rs1[19:15] | funct3[14:12] | rd[11:7] | opcode
func rType(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return opcode | rd<<7 | funct3<<12 | rs1<<15 | rs2<<20 | funct7<<25
}

// I-type: imm[31:20] | rs1 | funct3 | rd | opcode
func iType(opcode, funct3, rd, rs1 uint32, imm int64, what string) uint32 {
	return opcode | rd<<7 | funct3<<12 | rs1<<15 | mustLowBits(imm, 12, what)<<20
}

// S-type: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
func sType(opcode, funct3, rs1, rs2 uint32, imm int64, what string) uint32 {
	u := mustLowBits(imm, 12, what)
	return opcode | (u&0x1f)<<7 | funct3<<12 | rs1<<15 | rs2<<20 | (u>>5)<<25
}

// U-type: imm[31:12] | rd | opcode. imm is the 20-bit upper immediate.
func uType(opcode, rd uint32, imm int64, what string) uint32 {
	if !FitsSigned(imm, 20) && !FitsUnsigned(imm, 20) {
		fatalf("immediate fits its field", "%s: %d does not fit 20 bits", what, imm)
	}
	return opcode | rd<<7 | (uint32(imm)&0xfffff)<<12
}

// bTypeImm scatters a 13-bit even displacement into imm[12|10:5] and
// imm[4:1|11].
func bTypeImm(disp int64) uint32 {
	if disp&1 != 0 {
		fatalf("branch displacement is even", "%d", disp)
	}
	u := mustLowBits(disp, 13, "conditional branch displacement")
	return (u>>12&1)<<31 | (u>>5&0x3f)<<25 | (u>>1&0xf)<<8 | (u>>11&1)<<7
}

func bTypeDisp(inst uint32) int64 {
	u := (inst>>31&1)<<12 | (inst>>7&1)<<11 | (inst>>25&0x3f)<<5 | (inst>>8&0xf)<<1
	return SignExtend(uint64(u), 13)
}

// jTypeImm scatters a 21-bit even displacement into imm[20|10:1|11|19:12].
func jTypeImm(disp int64) uint32 {
	if disp&1 != 0 {
		fatalf("branch displacement is even", "%d", disp)
	}
	u := mustLowBits(disp, 21, "jump displacement")
	return (u>>20&1)<<31 | (u>>1&0x3ff)<<21 | (u>>11&1)<<20 | (u>>12&0xff)<<12
}

func jTypeDisp(inst uint32) int64 {
	u := (inst>>31&1)<<20 | (inst>>12&0xff)<<12 | (inst>>20&1)<<11 | (inst>>21&0x3ff)<<1
	return SignExtend(uint64(u), 21)
}

// ---------------------------------------------------------------------------
// Field accessors
// ---------------------------------------------------------------------------

// Opcode returns the major opcode of an instruction word.
func Opcode(inst uint32) uint32 { return inst & 0x7f }

// Funct3 returns bits 14..12.
func Funct3(inst uint32) uint32 { return inst >> 12 & 7 }

// Rd returns the destination register field.
func Rd(inst uint32) Register { return Register(inst >> 7 & 0x1f) }

// Rs1 returns the first source register field.
func Rs1(inst uint32) Register { return Register(inst >> 15 & 0x1f) }

// Rs2 returns the second source register field.
func Rs2(inst uint32) Register { return Register(inst >> 20 & 0x1f) }

// IImm returns the sign-extended immediate of an I-type word.
func IImm(inst uint32) int64 { return SignExtend(uint64(inst>>20), 12) }

// SImm returns the sign-extended immediate of an S-type word.
func SImm(inst uint32) int64 {
	return SignExtend(uint64(inst>>25<<5|inst>>7&0x1f), 12)
}

// IsLoad reports whether inst is an integer load.
func IsLoad(inst uint32) bool { return Opcode(inst) == opLoad }

// IsStore reports whether inst is an integer store.
func IsStore(inst uint32) bool { return Opcode(inst) == opStore }

// IsFence reports whether inst is a FENCE and returns its predecessor and
// successor sets.
func IsFence(inst uint32) (pred, succ FenceSet, ok bool) {
	if Opcode(inst) != opMiscMem || Funct3(inst) != 0 {
		return 0, 0, false
	}
	return FenceSet(inst >> 24 & 0xf), FenceSet(inst >> 20 & 0xf), true
}

// IsBranch reports whether inst carries a PC-relative displacement that
// BranchDestination understands.
func IsBranch(inst uint32) bool {
	op := Opcode(inst)
	return op == opBranch || op == opJal
}

// FenceSet is the set of memory operation kinds ordered by a FENCE.
type FenceSet uint32

// Fence sets.
const (
	FenceW  FenceSet = 1
	FenceR  FenceSet = 2
	FenceO  FenceSet = 4
	FenceI  FenceSet = 8
	FenceRW          = FenceR | FenceW
)

func (s FenceSet) String() string {
	out := ""
	for _, k := range []struct {
		bit  FenceSet
		name string
	}{{FenceI, "i"}, {FenceO, "o"}, {FenceR, "r"}, {FenceW, "w"}} {
		if s&k.bit != 0 {
			out += k.name
		}
	}
	return out
}
