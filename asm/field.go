package asm

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a value needs more bits than its field.
var ErrOutOfRange = errors.New("value out of range for field")

// FitsSigned reports whether v is representable as a w-bit two's-complement
// integer.
func FitsSigned(v int64, w uint) bool {
	if w == 0 {
		return false
	}
	if w >= 64 {
		return true
	}
	lo := -(int64(1) << (w - 1))
	hi := int64(1)<<(w-1) - 1
	return v >= lo && v <= hi
}

// FitsUnsigned reports whether v is representable as a w-bit unsigned integer.
func FitsUnsigned(v int64, w uint) bool {
	if v < 0 || w == 0 {
		return false
	}
	if w >= 63 {
		return true
	}
	return v < int64(1)<<w
}

// LowBits returns the low w bits of v. v must fit w bits signed.
func LowBits(v int64, w uint) (uint32, error) {
	if w == 0 || w > 32 {
		return 0, fmt.Errorf("field width %d not in 1..32", w)
	}
	if !FitsSigned(v, w) {
		return 0, fmt.Errorf("%w: %d does not fit %d bits", ErrOutOfRange, v, w)
	}
	return uint32(uint64(v) & (uint64(1)<<w - 1)), nil
}

// SignExtend reconstructs the value of a w-bit field.
func SignExtend(field uint64, w uint) int64 {
	shift := 64 - w
	return int64(field<<shift) >> shift
}

func mustLowBits(v int64, w uint, what string) uint32 {
	bits, err := LowBits(v, w)
	if err != nil {
		fatalf("immediate fits its field", "%s: %v", what, err)
	}
	return bits
}
