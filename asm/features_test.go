package asm

import (
	"runtime"
	"strings"
	"testing"
)

func TestParseFeatures(t *testing.T) {
	s, err := ParseFeatures([]string{"D", " zba", "zbb"})
	if err != nil {
		t.Fatalf("ParseFeatures: %v", err)
	}
	if !s.Has(FeatureD) || !s.Has(FeatureZba) || !s.Has(FeatureZbb) || s.Has(FeatureV) {
		t.Errorf("features = %s", s)
	}
	if got := s.String(); got != "rv64i+d+zba+zbb" {
		t.Errorf("String() = %q", got)
	}
	if _, err := ParseFeatures([]string{"zfh"}); err == nil || !strings.Contains(err.Error(), "zfh") {
		t.Errorf("unknown extension error = %v", err)
	}
	if Features(0).String() != "rv64i" {
		t.Error("empty set should print as the base ISA")
	}
}

func TestFeatureOverrideScoped(t *testing.T) {
	ctx := NewFeatureContext(Features(FeatureD))

	revertAll := ctx.AllowAll()
	if ctx.Current() != AllFeatures {
		t.Fatalf("AllowAll: current = %s", ctx.Current())
	}

	revertNone := ctx.Override(0)
	if ctx.Current() != 0 {
		t.Fatalf("Override(0): current = %s", ctx.Current())
	}
	a := ctx.NewAssembler()
	expectInvariant(t, func() { a.FsqrtD(FA0, FA0) })

	revertNone()
	revertNone() // second call is a no-op
	if ctx.Current() != AllFeatures {
		t.Errorf("after inner revert: current = %s", ctx.Current())
	}
	revertAll()
	if ctx.Current() != Features(FeatureD) {
		t.Errorf("after outer revert: current = %s", ctx.Current())
	}
}

func TestFeatureOverrideOutOfOrder(t *testing.T) {
	ctx := NewFeatureContext(0)
	outer := ctx.AllowAll()
	inner := ctx.Override(Features(FeatureZba))
	expectInvariant(t, outer)
	inner()
	if ctx.Current() != AllFeatures {
		t.Errorf("current = %s", ctx.Current())
	}
}

func TestFeatureSetOps(t *testing.T) {
	s := Features(0).With(FeatureZbb).With(FeatureD).Without(FeatureZbb)
	if s != Features(FeatureD) {
		t.Errorf("set = %s", s)
	}
	if names := AllFeatures.Names(); len(names) != 5 {
		t.Errorf("AllFeatures.Names() = %v", names)
	}
}

func TestHostFeatures(t *testing.T) {
	host := HostFeatures()
	if runtime.GOARCH != "riscv64" {
		if host != 0 {
			t.Errorf("host features off riscv64 = %s", host)
		}
		return
	}
	if !host.Has(FeatureD) || !host.Has(FeatureC) {
		t.Errorf("host features %s lack rv64gc", host)
	}
}
