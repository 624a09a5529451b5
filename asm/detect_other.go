//go:build !riscv64

package asm

// HostFeatures returns the extensions of the machine we are running on.
// Off RISC-V there are none; generated code is only inspected or cached.
func HostFeatures() Features { return 0 }
