package interp

import "github.com/chazu/rvgen/asm"

// variants holds the instruction sequences that depend on optional
// extensions. It is chosen once, when the generator is built.
type variants struct {
	name string

	// shadd emits rd = base + index<<shift, clobbering tmp.
	shadd func(a *asm.Assembler, rd, index, base, tmp asm.Register, shift int64)

	sext8  func(a *asm.Assembler, rd, rs asm.Register)
	sext16 func(a *asm.Assembler, rd, rs asm.Register)
	zext16 func(a *asm.Assembler, rd, rs asm.Register)

	hardSqrt bool
	hardAbs  bool
}

func selectVariants(f asm.Features) variants {
	v := variants{
		name:   f.String(),
		shadd:  shaddShift,
		sext8:  func(a *asm.Assembler, rd, rs asm.Register) { a.Slli(rd, rs, 56); a.Srai(rd, rd, 56) },
		sext16: func(a *asm.Assembler, rd, rs asm.Register) { a.Slli(rd, rs, 48); a.Srai(rd, rd, 48) },
		zext16: func(a *asm.Assembler, rd, rs asm.Register) { a.Slli(rd, rs, 48); a.Srli(rd, rd, 48) },
	}
	if f.Has(asm.FeatureZba) {
		v.shadd = func(a *asm.Assembler, rd, index, base, tmp asm.Register, shift int64) {
			if shift == 3 {
				a.Sh3add(rd, index, base)
				return
			}
			shaddShift(a, rd, index, base, tmp, shift)
		}
	}
	if f.Has(asm.FeatureZbb) {
		v.sext8 = (*asm.Assembler).SextB
		v.sext16 = (*asm.Assembler).SextH
		v.zext16 = (*asm.Assembler).ZextH
	}
	if f.Has(asm.FeatureD) {
		v.hardSqrt = true
		v.hardAbs = true
	}
	return v
}

func shaddShift(a *asm.Assembler, rd, index, base, tmp asm.Register, shift int64) {
	a.Slli(tmp, index, shift)
	a.Add(rd, base, tmp)
}
