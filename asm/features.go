package asm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Feature is an optional instruction set extension.
type Feature uint32

// Extensions the assembler knows how to gate.
const (
	FeatureD   Feature = 1 << iota // double-precision floating point
	FeatureZba                     // address generation (sh3add)
	FeatureZbb                     // basic bit manipulation (sext.b, zext.h)
	FeatureC                       // compressed instructions; recorded, never emitted
	FeatureV                       // vector; recorded, never emitted
)

var featureNames = map[string]Feature{
	"d":   FeatureD,
	"zba": FeatureZba,
	"zbb": FeatureZbb,
	"c":   FeatureC,
	"v":   FeatureV,
}

func (f Feature) String() string {
	for name, bit := range featureNames {
		if bit == f {
			return name
		}
	}
	return fmt.Sprintf("feature(%#x)", uint32(f))
}

// Features is a set of extensions.
type Features uint32

// AllFeatures contains every known extension.
const AllFeatures = Features(FeatureD | FeatureZba | FeatureZbb | FeatureC | FeatureV)

// Has reports whether f is in the set.
func (s Features) Has(f Feature) bool { return s&Features(f) != 0 }

// With returns the set with f added.
func (s Features) With(f Feature) Features { return s | Features(f) }

// Without returns the set with f removed.
func (s Features) Without(f Feature) Features { return s &^ Features(f) }

func (s Features) String() string {
	names := s.Names()
	if len(names) == 0 {
		return "rv64i"
	}
	return "rv64i+" + strings.Join(names, "+")
}

// Names returns the extension names in the set, sorted.
func (s Features) Names() []string {
	var names []string
	for name, bit := range featureNames {
		if s.Has(bit) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ParseFeatures converts extension names ("d", "zba", ...) into a set.
func ParseFeatures(names []string) (Features, error) {
	var s Features
	for _, n := range names {
		bit, ok := featureNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown extension %q", n)
		}
		s = s.With(bit)
	}
	return s, nil
}

// FeatureContext holds the extension set code generation may use. It is
// passed to generators explicitly. AllowAll and Override install a scoped
// set and return the function that restores the previous one:
//
//	revert := ctx.AllowAll()
//	defer revert()
//
// Overrides must be reverted in reverse order of installation.
type FeatureContext struct {
	mu      sync.Mutex
	current Features
	saved   []Features
}

// NewFeatureContext creates a context whose initial set is detected.
func NewFeatureContext(detected Features) *FeatureContext {
	return &FeatureContext{current: detected}
}

// Current returns the active extension set.
func (c *FeatureContext) Current() Features {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AllowAll enables every extension until the returned func is called.
func (c *FeatureContext) AllowAll() func() { return c.Override(AllFeatures) }

// Override replaces the active set until the returned func is called.
func (c *FeatureContext) Override(s Features) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, c.current)
	depth := len(c.saved)
	c.current = s
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if len(c.saved) != depth {
				fatalf("feature overrides revert innermost first", "revert at depth %d, stack depth %d", depth, len(c.saved))
			}
			c.current = c.saved[depth-1]
			c.saved = c.saved[:depth-1]
		})
	}
}

// NewAssembler creates an assembler gated by the active extension set.
func (c *FeatureContext) NewAssembler() *Assembler { return New(c.Current()) }
