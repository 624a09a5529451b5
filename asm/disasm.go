package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// Line is one disassembled instruction.
type Line struct {
	Pos      int
	Word     uint32
	Text     string
	Comments []string
}

// Disassemble decodes code into one line per instruction word. Words the
// decoder does not know are shown as .word directives.
func Disassemble(code []byte, comments map[int][]string) []Line {
	lines := make([]Line, 0, len(code)/InstructionSize)
	for pos := 0; pos+InstructionSize <= len(code); pos += InstructionSize {
		word := binary.LittleEndian.Uint32(code[pos:])
		lines = append(lines, Line{
			Pos:      pos,
			Word:     word,
			Text:     decodeWord(code[pos : pos+InstructionSize]),
			Comments: comments[pos],
		})
	}
	return lines
}

func decodeWord(b []byte) string {
	inst, err := riscv64asm.Decode(b)
	if err != nil || inst.Len != InstructionSize {
		return fmt.Sprintf(".word %#08x", binary.LittleEndian.Uint32(b))
	}
	return riscv64asm.GNUSyntax(inst)
}

// WriteListing prints lines as an address-annotated listing.
func WriteListing(w io.Writer, base uint64, lines []Line) error {
	for _, l := range lines {
		for _, c := range l.Comments {
			if _, err := fmt.Fprintf(w, "%28s; %s\n", "", c); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  0x%08x  %08x  %s\n", base+uint64(l.Pos), l.Word, l.Text); err != nil {
			return err
		}
	}
	return nil
}

// Listing disassembles the assembler's buffer.
func (a *Assembler) Listing(base uint64) string {
	code := make([]byte, len(a.insts)*InstructionSize)
	for i, w := range a.insts {
		binary.LittleEndian.PutUint32(code[i*InstructionSize:], w)
	}
	var sb strings.Builder
	_ = WriteListing(&sb, base, Disassemble(code, a.comments))
	return sb.String()
}
