package asm

type liOp uint8

const (
	liAddi liOp = iota // addi rd, src, imm
	liSlli             // slli rd, rd, imm
	liLui              // lui rd, imm
	liAddiw            // addiw rd, rd, imm
	liXori             // xori rd, rd, imm
)

type liStep struct {
	op       liOp
	imm      int64
	fromZero bool // source is the zero register rather than rd
}

const (
	chunkBits   = 11
	wideStart   = 53 // first chunk position for values wider than 32 bits
	narrowStart = 21
)

// planConstant picks the shortest instruction sequence that leaves v in a
// register.
func planConstant(v int64) []liStep {
	best := directPlan(v)
	if len(best) == 1 {
		return best
	}
	if alt := append(directPlan(^v), liStep{op: liXori, imm: -1}); len(alt) < len(best) {
		best = alt
	}
	return best
}

// directPlan builds v without the complement form.
func directPlan(v int64) []liStep {
	if FitsSigned(v, 12) {
		return []liStep{{op: liAddi, imm: v, fromZero: true}}
	}
	best := chunkedPlan(uint64(v))
	if FitsSigned(v, 32) {
		if alt := luiPlan(v); len(alt) < len(best) {
			best = alt
		}
	}
	return best
}

// chunkedPlan splits u into 11-bit chunks, most significant first, and
// rebuilds it with shifts and adds. Shifts across zero chunks are merged.
func chunkedPlan(u uint64) []liStep {
	start := narrowStart
	if u>>32 != 0 {
		start = wideStart
	}
	var steps []liStep
	established := false
	pending := 0
	prev := start + chunkBits
	for pos := start; ; pos -= chunkBits {
		if pos < 0 {
			pos = 0
		}
		width := prev - pos
		chunk := int64(u >> uint(pos) & (1<<uint(width) - 1))
		switch {
		case !established:
			if chunk != 0 {
				steps = append(steps, liStep{op: liAddi, imm: chunk, fromZero: true})
				established = true
			}
		default:
			pending += width
			if chunk != 0 {
				steps = append(steps,
					liStep{op: liSlli, imm: int64(pending)},
					liStep{op: liAddi, imm: chunk})
				pending = 0
			}
		}
		prev = pos
		if pos == 0 {
			break
		}
	}
	if !established {
		fatalf("load constant establishes a base", "value %#x produced no chunks", u)
	}
	if pending > 0 {
		steps = append(steps, liStep{op: liSlli, imm: int64(pending)})
	}
	return steps
}

// luiPlan materializes a signed 32-bit value with lui and addiw.
func luiPlan(v int64) []liStep {
	hi := (v + 0x800) >> 12
	lo := v - hi<<12
	steps := []liStep{{op: liLui, imm: hi & 0xfffff}}
	if lo != 0 {
		steps = append(steps, liStep{op: liAddiw, imm: lo})
	}
	return steps
}

// Li loads the constant v into rd using the fewest instructions.
func (a *Assembler) Li(rd Register, v int64) {
	if rd == Zero {
		fatalf("load constant targets a writable register", "li zero, %d", v)
	}
	for _, s := range planConstant(v) {
		switch s.op {
		case liAddi:
			src := rd
			if s.fromZero {
				src = Zero
			}
			a.Addi(rd, src, s.imm)
		case liSlli:
			a.Slli(rd, rd, s.imm)
		case liLui:
			a.Lui(rd, s.imm)
		case liAddiw:
			a.Addiw(rd, rd, s.imm)
		case liXori:
			a.Xori(rd, rd, s.imm)
		}
	}
}

// LiAddress loads an absolute address into rd.
func (a *Assembler) LiAddress(rd Register, addr uint64) { a.Li(rd, int64(addr)) }

// LoadConstantLength returns the number of instructions Li emits for v.
func LoadConstantLength(v int64) int { return len(planConstant(v)) }
