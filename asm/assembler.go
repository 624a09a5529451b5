package asm

import (
	"encoding/binary"
	"fmt"
)

// InstructionSize is the width of every instruction word in bytes.
const InstructionSize = 4

// Assembler accumulates instruction words in a growable code buffer.
// Positions are byte offsets from the start of the buffer.
type Assembler struct {
	insts     []uint32
	labels    []labelState
	comments  map[int][]string
	features  Features
	finalized bool
}

// New creates an assembler that may emit instructions from the given
// extensions.
func New(features Features) *Assembler {
	return &Assembler{
		insts:    make([]uint32, 0, 256),
		labels:   make([]labelState, 1, 16), // index 0 is never a valid label
		comments: make(map[int][]string),
		features: features,
	}
}

// Features returns the extensions this assembler may use.
func (a *Assembler) Features() Features { return a.features }

// Pos returns the byte position of the next instruction.
func (a *Assembler) Pos() int { return len(a.insts) * InstructionSize }

// Len returns the number of instruction words emitted so far.
func (a *Assembler) Len() int { return len(a.insts) }

// Word returns the instruction word at byte position pos.
func (a *Assembler) Word(pos int) uint32 {
	return a.insts[a.index(pos)]
}

// Words returns a copy of the emitted instruction words.
func (a *Assembler) Words() []uint32 {
	out := make([]uint32, len(a.insts))
	copy(out, a.insts)
	return out
}

// Comment attaches a note to the current position for listings.
func (a *Assembler) Comment(format string, args ...any) {
	pos := a.Pos()
	a.comments[pos] = append(a.comments[pos], fmt.Sprintf(format, args...))
}

// Comments returns the notes attached to positions.
func (a *Assembler) Comments() map[int][]string { return a.comments }

// Finalize checks that every referenced label is bound and returns the
// little-endian code bytes. The buffer cannot be modified afterwards.
func (a *Assembler) Finalize() ([]byte, error) {
	for i := 1; i < len(a.labels); i++ {
		l := &a.labels[i]
		if !l.bound && len(l.pending) > 0 {
			return nil, &InvariantError{
				Invariant: "referenced labels are bound before flush",
				Detail:    fmt.Sprintf("label %d referenced from %d site(s), first at %d", i, len(l.pending), l.pending[0]),
			}
		}
	}
	a.finalized = true
	out := make([]byte, len(a.insts)*InstructionSize)
	for i, w := range a.insts {
		binary.LittleEndian.PutUint32(out[i*InstructionSize:], w)
	}
	return out, nil
}

func (a *Assembler) index(pos int) int {
	if pos < 0 || pos%InstructionSize != 0 || pos/InstructionSize >= len(a.insts) {
		fatalf("position names an emitted instruction", "%d", pos)
	}
	return pos / InstructionSize
}

func (a *Assembler) emit(inst uint32) {
	if a.finalized {
		fatalf("no emission after flush", "%#08x", inst)
	}
	a.insts = append(a.insts, inst)
}

func (a *Assembler) require(f Feature, what string) {
	if !a.features.Has(f) {
		fatalf("instruction requires extension", "%s needs %v", what, f)
	}
}

// ---------------------------------------------------------------------------
// Integer immediate arithmetic
// ---------------------------------------------------------------------------

// Addi emits addi rd, rs1, imm (imm is sign-extended 12-bit).
func (a *Assembler) Addi(rd, rs1 Register, imm int64) {
	a.emit(iType(opImm, 0, ireg(rd), ireg(rs1), imm, "addi"))
}

// Addiw emits addiw rd, rs1, imm: 32-bit add, result sign-extended.
func (a *Assembler) Addiw(rd, rs1 Register, imm int64) {
	a.emit(iType(opImm32, 0, ireg(rd), ireg(rs1), imm, "addiw"))
}

// Andi emits andi rd, rs1, imm.
func (a *Assembler) Andi(rd, rs1 Register, imm int64) {
	a.emit(iType(opImm, 7, ireg(rd), ireg(rs1), imm, "andi"))
}

// Ori emits ori rd, rs1, imm.
func (a *Assembler) Ori(rd, rs1 Register, imm int64) {
	a.emit(iType(opImm, 6, ireg(rd), ireg(rs1), imm, "ori"))
}

// Xori emits xori rd, rs1, imm.
func (a *Assembler) Xori(rd, rs1 Register, imm int64) {
	a.emit(iType(opImm, 4, ireg(rd), ireg(rs1), imm, "xori"))
}

// Sltiu emits sltiu rd, rs1, imm.
func (a *Assembler) Sltiu(rd, rs1 Register, imm int64) {
	a.emit(iType(opImm, 3, ireg(rd), ireg(rs1), imm, "sltiu"))
}

func shamt(n int64, what string) int64 {
	if n < 0 || n > 63 {
		fatalf("shift amount fits 6 bits", "%s by %d", what, n)
	}
	return n
}

// Slli emits slli rd, rs1, n.
func (a *Assembler) Slli(rd, rs1 Register, n int64) {
	a.emit(iType(opImm, 1, ireg(rd), ireg(rs1), shamt(n, "slli"), "slli"))
}

// Srli emits srli rd, rs1, n.
func (a *Assembler) Srli(rd, rs1 Register, n int64) {
	a.emit(iType(opImm, 5, ireg(rd), ireg(rs1), shamt(n, "srli"), "srli"))
}

// Srai emits srai rd, rs1, n.
func (a *Assembler) Srai(rd, rs1 Register, n int64) {
	a.emit(iType(opImm, 5, ireg(rd), ireg(rs1), 0x400|shamt(n, "srai"), "srai"))
}

// Lui emits lui rd, imm20: rd = sign-extended imm20<<12, low 12 bits zero.
func (a *Assembler) Lui(rd Register, imm20 int64) {
	a.emit(uType(opLui, ireg(rd), imm20, "lui"))
}

// Auipc emits auipc rd, imm20: rd = pc + imm20<<12.
func (a *Assembler) Auipc(rd Register, imm20 int64) {
	a.emit(uType(opAuipc, ireg(rd), imm20, "auipc"))
}

// ---------------------------------------------------------------------------
// Register-register arithmetic
// ---------------------------------------------------------------------------

func (a *Assembler) reg3(funct3, funct7 uint32, rd, rs1, rs2 Register) {
	a.emit(rType(opReg, funct3, funct7, ireg(rd), ireg(rs1), ireg(rs2)))
}

// Add emits add rd, rs1, rs2.
func (a *Assembler) Add(rd, rs1, rs2 Register) { a.reg3(0, 0x00, rd, rs1, rs2) }

// Sub emits sub rd, rs1, rs2.
func (a *Assembler) Sub(rd, rs1, rs2 Register) { a.reg3(0, 0x20, rd, rs1, rs2) }

// Sltu emits sltu rd, rs1, rs2.
func (a *Assembler) Sltu(rd, rs1, rs2 Register) { a.reg3(3, 0x00, rd, rs1, rs2) }

// Xor emits xor rd, rs1, rs2.
func (a *Assembler) Xor(rd, rs1, rs2 Register) { a.reg3(4, 0x00, rd, rs1, rs2) }

// Or emits or rd, rs1, rs2.
func (a *Assembler) Or(rd, rs1, rs2 Register) { a.reg3(6, 0x00, rd, rs1, rs2) }

// And emits and rd, rs1, rs2.
func (a *Assembler) And(rd, rs1, rs2 Register) { a.reg3(7, 0x00, rd, rs1, rs2) }

// Sh3add emits sh3add rd, rs1, rs2: rd = rs2 + rs1<<3. Requires Zba.
func (a *Assembler) Sh3add(rd, rs1, rs2 Register) {
	a.require(FeatureZba, "sh3add")
	a.reg3(6, 0x10, rd, rs1, rs2)
}

// SextB emits sext.b rd, rs. Requires Zbb.
func (a *Assembler) SextB(rd, rs Register) {
	a.require(FeatureZbb, "sext.b")
	a.emit(iType(opImm, 1, ireg(rd), ireg(rs), 0x604, "sext.b"))
}

// SextH emits sext.h rd, rs. Requires Zbb.
func (a *Assembler) SextH(rd, rs Register) {
	a.require(FeatureZbb, "sext.h")
	a.emit(iType(opImm, 1, ireg(rd), ireg(rs), 0x605, "sext.h"))
}

// ZextH emits zext.h rd, rs. Requires Zbb.
func (a *Assembler) ZextH(rd, rs Register) {
	a.require(FeatureZbb, "zext.h")
	a.emit(rType(opReg32, 4, 0x04, ireg(rd), ireg(rs), 0))
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

func (a *Assembler) load(width uint32, what string, rd, base Register, off int64) {
	a.emit(iType(opLoad, width, ireg(rd), ireg(base), off, what))
}

func (a *Assembler) store(width uint32, what string, src, base Register, off int64) {
	a.emit(sType(opStore, width, ireg(base), ireg(src), off, what))
}

// Lb emits lb rd, off(base).
func (a *Assembler) Lb(rd, base Register, off int64) { a.load(widthB, "lb", rd, base, off) }

// Lh emits lh rd, off(base).
func (a *Assembler) Lh(rd, base Register, off int64) { a.load(widthH, "lh", rd, base, off) }

// Lw emits lw rd, off(base).
func (a *Assembler) Lw(rd, base Register, off int64) { a.load(widthW, "lw", rd, base, off) }

// Ld emits ld rd, off(base).
func (a *Assembler) Ld(rd, base Register, off int64) { a.load(widthD, "ld", rd, base, off) }

// Lbu emits lbu rd, off(base).
func (a *Assembler) Lbu(rd, base Register, off int64) { a.load(widthBU, "lbu", rd, base, off) }

// Lhu emits lhu rd, off(base).
func (a *Assembler) Lhu(rd, base Register, off int64) { a.load(widthHU, "lhu", rd, base, off) }

// Lwu emits lwu rd, off(base).
func (a *Assembler) Lwu(rd, base Register, off int64) { a.load(widthWU, "lwu", rd, base, off) }

// Sb emits sb src, off(base).
func (a *Assembler) Sb(src, base Register, off int64) { a.store(widthB, "sb", src, base, off) }

// Sh emits sh src, off(base).
func (a *Assembler) Sh(src, base Register, off int64) { a.store(widthH, "sh", src, base, off) }

// Sw emits sw src, off(base).
func (a *Assembler) Sw(src, base Register, off int64) { a.store(widthW, "sw", src, base, off) }

// Sd emits sd src, off(base).
func (a *Assembler) Sd(src, base Register, off int64) { a.store(widthD, "sd", src, base, off) }

// Flw emits flw fd, off(base).
func (a *Assembler) Flw(fd FloatRegister, base Register, off int64) {
	a.emit(iType(opLoadFP, widthW, freg(fd), ireg(base), off, "flw"))
}

// Fld emits fld fd, off(base).
func (a *Assembler) Fld(fd FloatRegister, base Register, off int64) {
	a.emit(iType(opLoadFP, widthD, freg(fd), ireg(base), off, "fld"))
}

// Fsw emits fsw fs, off(base).
func (a *Assembler) Fsw(fs FloatRegister, base Register, off int64) {
	a.emit(sType(opStoreFP, widthW, ireg(base), freg(fs), off, "fsw"))
}

// Fsd emits fsd fs, off(base).
func (a *Assembler) Fsd(fs FloatRegister, base Register, off int64) {
	a.emit(sType(opStoreFP, widthD, ireg(base), freg(fs), off, "fsd"))
}

// Fence emits fence pred, succ.
func (a *Assembler) Fence(pred, succ FenceSet) {
	a.emit(opMiscMem | uint32(pred&0xf)<<24 | uint32(succ&0xf)<<20)
}

// ---------------------------------------------------------------------------
// Floating point (D extension)
// ---------------------------------------------------------------------------

// FsqrtD emits fsqrt.d fd, fs with dynamic rounding.
func (a *Assembler) FsqrtD(fd, fs FloatRegister) {
	a.require(FeatureD, "fsqrt.d")
	a.emit(rType(opFP, 7, 0x2d, freg(fd), freg(fs), 0))
}

// FsgnjxD emits fsgnjx.d fd, fs1, fs2; with fs1 == fs2 it is fabs.d.
func (a *Assembler) FsgnjxD(fd, fs1, fs2 FloatRegister) {
	a.require(FeatureD, "fsgnjx.d")
	a.emit(rType(opFP, 2, 0x11, freg(fd), freg(fs1), freg(fs2)))
}

// FmvXD emits fmv.x.d rd, fs: move the raw bits of fs into rd.
func (a *Assembler) FmvXD(rd Register, fs FloatRegister) {
	a.require(FeatureD, "fmv.x.d")
	a.emit(rType(opFP, 0, 0x71, ireg(rd), freg(fs), 0))
}

// ---------------------------------------------------------------------------
// Control transfer
// ---------------------------------------------------------------------------

// Jalr emits jalr rd, off(rs1).
func (a *Assembler) Jalr(rd, rs1 Register, off int64) {
	a.emit(iType(opJalr, 0, ireg(rd), ireg(rs1), off, "jalr"))
}

// Ebreak emits ebreak. Generated code uses it as a trap for paths that
// must never execute.
func (a *Assembler) Ebreak() { a.emit(0x00100073) }
