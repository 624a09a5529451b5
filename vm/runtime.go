package vm

import "fmt"

// RuntimeEntries are the addresses of runtime routines the generated code
// calls. VM calls receive the thread in a0; leaf calls use the C calling
// convention directly.
type RuntimeEntries struct {
	// Jumped to with a0 = exception, a1 = issuing pc.
	ExceptionDispatch uint64

	FrequencyCounterOverflow uint64 // (thread, branch bcp)
	ProfileMethod            uint64 // (thread)
	MonitorEnter             uint64 // (thread, monitor)
	MonitorExit              uint64 // leaf (monitor, thread)
	PrepareNativeCall        uint64 // (thread, method)
	CheckSpecialCondition    uint64 // leaf (thread)
	ThrowStackOverflow       uint64 // (thread)
	ThrowAbstractMethod      uint64 // (thread, method)

	// Leaf math routines: double in fa0 (and fa1), result in fa0. Zero
	// means unavailable.
	Sin   uint64
	Cos   uint64
	Tan   uint64
	Log   uint64
	Log10 uint64
	Exp   uint64
	Pow   uint64
	Sqrt  uint64
	Abs   uint64
}

// RuntimeBase is where DefaultRuntimeEntries places its routines.
const RuntimeBase = 0x7f00_0000_0000

// DefaultRuntimeEntries returns placeholder addresses, 16 bytes apart,
// above RuntimeBase.
func DefaultRuntimeEntries() RuntimeEntries {
	var r RuntimeEntries
	for i, e := range r.Named() {
		*e.Addr = RuntimeBase + uint64(i)*16
	}
	return r
}

// NamedEntry pairs a runtime entry name with its field.
type NamedEntry struct {
	Name     string
	Addr     *uint64
	Required bool
}

// Named returns every entry with its configuration name, in a fixed order.
func (r *RuntimeEntries) Named() []NamedEntry {
	return []NamedEntry{
		{"exception-dispatch", &r.ExceptionDispatch, true},
		{"frequency-counter-overflow", &r.FrequencyCounterOverflow, true},
		{"profile-method", &r.ProfileMethod, true},
		{"monitorenter", &r.MonitorEnter, true},
		{"monitorexit", &r.MonitorExit, true},
		{"prepare-native-call", &r.PrepareNativeCall, true},
		{"check-special-condition", &r.CheckSpecialCondition, true},
		{"throw-stack-overflow", &r.ThrowStackOverflow, true},
		{"throw-abstract-method", &r.ThrowAbstractMethod, true},
		{"sin", &r.Sin, false},
		{"cos", &r.Cos, false},
		{"tan", &r.Tan, false},
		{"log", &r.Log, false},
		{"log10", &r.Log10, false},
		{"exp", &r.Exp, false},
		{"pow", &r.Pow, false},
		{"sqrt", &r.Sqrt, false},
		{"abs", &r.Abs, false},
	}
}

// Set assigns the entry called name.
func (r *RuntimeEntries) Set(name string, addr uint64) error {
	for _, e := range r.Named() {
		if e.Name == name {
			*e.Addr = addr
			return nil
		}
	}
	return fmt.Errorf("unknown runtime entry %q", name)
}

// Validate checks that every required entry has an address.
func (r *RuntimeEntries) Validate() error {
	for _, e := range r.Named() {
		if e.Required && *e.Addr == 0 {
			return fmt.Errorf("runtime entry %s has no address", e.Name)
		}
	}
	return nil
}
