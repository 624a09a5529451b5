// Package frame describes the interpreter frame built by the generated
// entry routines. Every slot is an 8-byte word at a fixed offset below the
// frame pointer:
//
//	fp -  8  return address
//	fp - 16  saved fp
//	fp - 24  sender sp
//	fp - 32  last sp
//	fp - 40  method
//	fp - 48  holder mirror
//	fp - 56  method data pointer
//	fp - 64  constant pool cache
//	fp - 72  locals pointer
//	fp - 80  bytecode pointer
//	fp - 88  monitor block top
//	fp - 96  result handler (native frames)
//	fp -104  oop temp (native frames)
//	fp -112  padding
//	fp -128  first monitor (lock word, object), growing down
//	...      expression stack, growing down
//
// The fixed part and each monitor are multiples of the 16-byte stack
// alignment, so sp stays aligned while monitors are pushed.
package frame

import "fmt"

// WordSize is the size of a frame slot in bytes.
const WordSize = 8

// StackAlignment is the ABI alignment of sp at calls.
const StackAlignment = 16

// Slot is a frame slot index in words relative to fp.
type Slot int

// Frame slots.
const (
	ReturnAddr      Slot = -1
	SavedFP         Slot = -2
	SenderSP        Slot = -3
	LastSP          Slot = -4
	Method          Slot = -5
	Mirror          Slot = -6
	MDP             Slot = -7
	CPCache         Slot = -8
	Locals          Slot = -9
	BCP             Slot = -10
	MonitorBlockTop Slot = -11
	ResultHandler   Slot = -12
	OopTemp         Slot = -13
	Padding         Slot = -14
)

// FixedWords is the number of words in the fixed part of a frame.
const FixedWords = 14

// FixedSize is the fixed part in bytes.
const FixedSize = FixedWords * WordSize

// Monitor record layout.
const (
	MonitorWords = 2
	MonitorSize  = MonitorWords * WordSize

	// Offsets within a monitor record, in bytes.
	MonitorLock = 0
	MonitorObj  = WordSize
)

// FirstMonitor is the byte offset from fp of the first monitor record.
const FirstMonitor = -(FixedSize + MonitorSize)

var slotNames = map[Slot]string{
	ReturnAddr:      "return address",
	SavedFP:         "saved fp",
	SenderSP:        "sender sp",
	LastSP:          "last sp",
	Method:          "method",
	Mirror:          "mirror",
	MDP:             "mdp",
	CPCache:         "cp cache",
	Locals:          "locals",
	BCP:             "bcp",
	MonitorBlockTop: "monitor block top",
	ResultHandler:   "result handler",
	OopTemp:         "oop temp",
	Padding:         "padding",
}

// Offset returns the slot's byte offset from fp.
func (s Slot) Offset() int64 { return int64(s) * WordSize }

func (s Slot) String() string {
	if n, ok := slotNames[s]; ok {
		return n
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Slots returns every fixed slot, nearest fp first.
func Slots() []Slot {
	out := make([]Slot, 0, FixedWords)
	for s := ReturnAddr; s >= Padding; s-- {
		out = append(out, s)
	}
	return out
}

// AlignDown rounds v down to the stack alignment.
func AlignDown(v int64) int64 { return v &^ (StackAlignment - 1) }

// AlignUp rounds v up to the stack alignment.
func AlignUp(v int64) int64 { return AlignDown(v + StackAlignment - 1) }

// Validate checks the alignment invariants of the layout.
func Validate() error {
	if FixedSize%StackAlignment != 0 {
		return fmt.Errorf("frame: fixed part %d bytes is not %d-aligned", FixedSize, StackAlignment)
	}
	if MonitorSize%StackAlignment != 0 {
		return fmt.Errorf("frame: monitor %d bytes is not %d-aligned", MonitorSize, StackAlignment)
	}
	if len(slotNames) != FixedWords || Padding != -FixedWords {
		return fmt.Errorf("frame: %d named slots, fixed part has %d words", len(slotNames), FixedWords)
	}
	return nil
}

// Size returns the bytes a frame needs below fp for the given number of
// monitors and expression stack words, aligned.
func Size(monitors, stackWords int) int64 {
	return AlignUp(int64(FixedSize + monitors*MonitorSize + stackWords*WordSize))
}
