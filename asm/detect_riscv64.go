//go:build riscv64

package asm

import "golang.org/x/sys/cpu"

// HostFeatures returns the extensions of the machine we are running on.
// Go requires RV64GC, so D and C are always present.
func HostFeatures() Features {
	s := Features(FeatureD | FeatureC)
	if cpu.RISCV64.HasZba {
		s = s.With(FeatureZba)
	}
	if cpu.RISCV64.HasZbb {
		s = s.With(FeatureZbb)
	}
	if cpu.RISCV64.HasV {
		s = s.With(FeatureV)
	}
	return s
}
