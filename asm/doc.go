// Package asm is a RISC-V (RV64) assembler for hand-written code templates.
//
// The assembler appends fixed-width 32-bit instruction words to a growable
// code buffer. It provides:
//   - An immediate field codec (LowBits, SignExtend) used by every encoder
//   - One method per machine instruction, each appending exactly one word
//   - Arena-indexed labels with forward references patched at Bind time
//   - BranchDestination and PatchedBranch for retargeting emitted branches
//   - Li, the variable-length load-constant strategy
//   - RegisterOrConstant address resolution for loads and stores
//   - A feature context selecting optional extensions (D, Zba, Zbb)
//
// Violated preconditions (aliased registers, immediates that do not fit,
// labels bound twice) are programming errors in the generator. They panic
// with an *InvariantError, which generator entry points convert back into an
// error with Recover.
package asm
