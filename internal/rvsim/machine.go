// Package rvsim executes the RV64 subset that generated interpreter code
// uses, so tests can run generated routines on any host.
//
// Addresses may be registered as traps: when control reaches a trap the Go
// function runs instead of memory, standing in for runtime entry points
// and native functions.
package rvsim

import (
	"errors"
	"fmt"
	"math"
)

// Register numbers used by trap functions.
const (
	RA = 1
	SP = 2
	A0 = 10
	A1 = 11
	A2 = 12
)

// Action tells the machine what to do after a trap function returns.
type Action int

const (
	// Return continues at the address in ra.
	Return Action = iota
	// Stop ends Run successfully.
	Stop
	// Jump continues at the pc the trap function set.
	Jump
)

// TrapFunc runs when control reaches its address.
type TrapFunc func(m *Machine) Action

// ErrBreak is returned when the machine executes ebreak.
var ErrBreak = errors.New("rvsim: ebreak")

// ErrStepLimit is returned when Run exceeds MaxSteps.
var ErrStepLimit = errors.New("rvsim: step limit exceeded")

// Fault describes an instruction the machine cannot execute.
type Fault struct {
	PC   uint64
	Word uint32
	Msg  string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("rvsim: %s at %#x (%08x)", f.Msg, f.PC, f.Word)
}

// Machine is a single RV64 hart.
type Machine struct {
	X  [32]uint64
	F  [32]uint64 // raw IEEE bits
	PC uint64

	Mem   *Memory
	traps map[uint64]TrapFunc

	MaxSteps int
	Steps    int

	// OnStore, if set, observes every store.
	OnStore func(addr uint64, size int, val uint64)
	// OnFence, if set, observes every executed fence.
	OnFence func(pred, succ uint32)
}

// New creates a machine with empty memory.
func New() *Machine {
	return &Machine{
		Mem:      NewMemory(),
		traps:    make(map[uint64]TrapFunc),
		MaxSteps: 1 << 20,
	}
}

// Trap registers fn at addr.
func (m *Machine) Trap(addr uint64, fn TrapFunc) { m.traps[addr] = fn }

// FloatReg returns f[i] as a float64.
func (m *Machine) FloatReg(i int) float64 { return math.Float64frombits(m.F[i]) }

// SetFloatReg sets f[i] from a float64.
func (m *Machine) SetFloatReg(i int, v float64) { m.F[i] = math.Float64bits(v) }

// Run executes from entry until a trap returns Stop or an error occurs.
func (m *Machine) Run(entry uint64) error {
	m.PC = entry
	for {
		if fn, ok := m.traps[m.PC]; ok {
			switch fn(m) {
			case Stop:
				return nil
			case Return:
				m.PC = m.X[RA]
			case Jump:
			}
			continue
		}
		if m.Steps >= m.MaxSteps {
			return ErrStepLimit
		}
		m.Steps++
		word := uint32(m.Mem.Load(m.PC, 4))
		if err := m.step(word); err != nil {
			return err
		}
		m.X[0] = 0
	}
}

func (m *Machine) fault(word uint32, msg string) error {
	return &Fault{PC: m.PC, Word: word, Msg: msg}
}

func sext(v uint64, bits uint) uint64 {
	s := 64 - bits
	return uint64(int64(v<<s) >> s)
}

func (m *Machine) step(w uint32) error {
	op := w & 0x7f
	rd := w >> 7 & 0x1f
	f3 := w >> 12 & 7
	rs1 := w >> 15 & 0x1f
	rs2 := w >> 20 & 0x1f
	f7 := w >> 25
	iimm := sext(uint64(w>>20), 12)
	simm := sext(uint64(w>>25<<5|w>>7&0x1f), 12)
	a, b := m.X[rs1], m.X[rs2]
	next := m.PC + 4

	switch op {
	case 0x37: // lui
		m.X[rd] = sext(uint64(w&0xfffff000), 32)
	case 0x17: // auipc
		m.X[rd] = m.PC + sext(uint64(w&0xfffff000), 32)
	case 0x13:
		switch f3 {
		case 0:
			m.X[rd] = a + iimm
		case 3:
			m.X[rd] = b2u(a < iimm)
		case 4:
			m.X[rd] = a ^ iimm
		case 6:
			m.X[rd] = a | iimm
		case 7:
			m.X[rd] = a & iimm
		case 1:
			switch w >> 20 {
			case 0x604:
				m.X[rd] = sext(a, 8)
			case 0x605:
				m.X[rd] = sext(a, 16)
			default:
				if w>>26 != 0 {
					return m.fault(w, "unsupported op-imm")
				}
				m.X[rd] = a << (w >> 20 & 0x3f)
			}
		case 5:
			sh := w >> 20 & 0x3f
			switch w >> 26 {
			case 0:
				m.X[rd] = a >> sh
			case 0x10:
				m.X[rd] = uint64(int64(a) >> sh)
			default:
				return m.fault(w, "unsupported shift")
			}
		default:
			return m.fault(w, "unsupported op-imm")
		}
	case 0x1b:
		if f3 != 0 {
			return m.fault(w, "unsupported op-imm-32")
		}
		m.X[rd] = sext(uint64(uint32(a+iimm)), 32)
	case 0x33:
		switch {
		case f7 == 0 && f3 == 0:
			m.X[rd] = a + b
		case f7 == 0x20 && f3 == 0:
			m.X[rd] = a - b
		case f7 == 0 && f3 == 3:
			m.X[rd] = b2u(a < b)
		case f7 == 0 && f3 == 4:
			m.X[rd] = a ^ b
		case f7 == 0 && f3 == 6:
			m.X[rd] = a | b
		case f7 == 0 && f3 == 7:
			m.X[rd] = a & b
		case f7 == 0x10 && f3 == 6:
			m.X[rd] = b + a<<3
		default:
			return m.fault(w, "unsupported op")
		}
	case 0x3b:
		if f7 == 0x04 && f3 == 4 && rs2 == 0 {
			m.X[rd] = a & 0xffff
			break
		}
		return m.fault(w, "unsupported op-32")
	case 0x03:
		addr := a + iimm
		switch f3 {
		case 0:
			m.X[rd] = sext(m.Mem.Load(addr, 1), 8)
		case 1:
			m.X[rd] = sext(m.Mem.Load(addr, 2), 16)
		case 2:
			m.X[rd] = sext(m.Mem.Load(addr, 4), 32)
		case 3:
			m.X[rd] = m.Mem.Load(addr, 8)
		case 4:
			m.X[rd] = m.Mem.Load(addr, 1)
		case 5:
			m.X[rd] = m.Mem.Load(addr, 2)
		case 6:
			m.X[rd] = m.Mem.Load(addr, 4)
		default:
			return m.fault(w, "unsupported load")
		}
	case 0x23:
		if f3 > 3 {
			return m.fault(w, "unsupported store")
		}
		m.store(a+simm, 1<<f3, b)
	case 0x07:
		addr := a + iimm
		switch f3 {
		case 2:
			m.F[rd] = 0xffffffff00000000 | m.Mem.Load(addr, 4) // NaN-boxed
		case 3:
			m.F[rd] = m.Mem.Load(addr, 8)
		default:
			return m.fault(w, "unsupported fp load")
		}
	case 0x27:
		switch f3 {
		case 2:
			m.store(a+simm, 4, m.F[rs2]&0xffffffff)
		case 3:
			m.store(a+simm, 8, m.F[rs2])
		default:
			return m.fault(w, "unsupported fp store")
		}
	case 0x53:
		if err := m.fp(w, rd, f3, rs1, rs2, f7); err != nil {
			return err
		}
	case 0x63:
		var taken bool
		switch f3 {
		case 0:
			taken = a == b
		case 1:
			taken = a != b
		case 4:
			taken = int64(a) < int64(b)
		case 5:
			taken = int64(a) >= int64(b)
		case 6:
			taken = a < b
		case 7:
			taken = a >= b
		default:
			return m.fault(w, "unsupported branch")
		}
		if taken {
			d := uint64(w>>31&1)<<12 | uint64(w>>7&1)<<11 | uint64(w>>25&0x3f)<<5 | uint64(w>>8&0xf)<<1
			next = m.PC + sext(d, 13)
		}
	case 0x6f:
		d := uint64(w>>31&1)<<20 | uint64(w>>12&0xff)<<12 | uint64(w>>20&1)<<11 | uint64(w>>21&0x3ff)<<1
		m.X[rd] = m.PC + 4
		next = m.PC + sext(d, 21)
	case 0x67:
		target := (a + iimm) &^ 1
		m.X[rd] = m.PC + 4
		next = target
	case 0x0f:
		if m.OnFence != nil {
			m.OnFence(w>>24&0xf, w>>20&0xf)
		}
	case 0x73:
		if w == 0x00100073 {
			return ErrBreak
		}
		return m.fault(w, "unsupported system instruction")
	default:
		return m.fault(w, "unsupported opcode")
	}
	m.PC = next
	return nil
}

func (m *Machine) fp(w, rd, f3, rs1, rs2, f7 uint32) error {
	switch {
	case f7 == 0x2d && rs2 == 0: // fsqrt.d
		m.SetFloatReg(int(rd), math.Sqrt(m.FloatReg(int(rs1))))
	case f7 == 0x11:
		sign := m.F[rs2] & (1 << 63)
		mag := m.F[rs1] &^ (1 << 63)
		switch f3 {
		case 0: // fsgnj.d
			m.F[rd] = mag | sign
		case 1: // fsgnjn.d
			m.F[rd] = mag | (sign ^ 1<<63)
		case 2: // fsgnjx.d
			m.F[rd] = m.F[rs1] ^ sign
		default:
			return m.fault(w, "unsupported sign injection")
		}
	case f7 == 0x71 && f3 == 0 && rs2 == 0: // fmv.x.d
		m.X[rd] = m.F[rs1]
	case f7 == 0x79 && f3 == 0 && rs2 == 0: // fmv.d.x
		m.F[rd] = m.X[rs1]
	default:
		return m.fault(w, "unsupported fp op")
	}
	return nil
}

func (m *Machine) store(addr uint64, size int, val uint64) {
	if m.OnStore != nil {
		m.OnStore(addr, size, val)
	}
	m.Mem.Store(addr, size, val)
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
