// Package interp generates the native entry and exit routines of the
// bytecode interpreter: frame construction, invocation counting, method
// locking, the native call protocol, math intrinsics and the shared
// exception paths.
//
// All routines are emitted into one code blob at startup. Transfers between
// routines are PC-relative, so the blob runs at whatever address the code
// sink installs it.
package interp

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/vm"
)

var log = commonlog.GetLogger("rvgen.interp")

// CodeSink installs generated code. gen receives the address the code will
// live at and returns the bytes to install there.
type CodeSink interface {
	Emit(gen func(base uint64) ([]byte, error)) (uint64, error)
}

// Shared routine names.
const (
	RoutineForwardException        = "forward_exception"
	RoutineRemoveActivation        = "remove_activation"
	RoutineRemoveActivationExc     = "remove_activation_exception"
	RoutineThrowStackOverflowError = "throw_StackOverflowError"
)

// Routine is one named routine inside the generated blob.
type Routine struct {
	Name   string
	Offset int
	Size   int
	Addr   uint64
}

// Generator emits the interpreter. It is single use.
type Generator struct {
	cfg Config
	a   *asm.Assembler
	v   variants

	forwardException    asm.Label
	removeActivation    asm.Label
	removeActivationExc asm.Label
	throwStackOverflow  asm.Label
	resultHandlers      map[vm.BasicType]asm.Label

	routines []Routine
	entries  map[MethodKind]int
	open     int // index of the routine being emitted, or -1
}

// NewGenerator validates cfg and selects instruction variants for the
// context's active extensions.
func NewGenerator(cfg Config, features *asm.FeatureContext) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("interp: %w", err)
	}
	a := features.NewAssembler()
	g := &Generator{
		cfg:            cfg,
		a:              a,
		v:              selectVariants(a.Features()),
		resultHandlers: make(map[vm.BasicType]asm.Label),
		entries:        make(map[MethodKind]int),
		open:           -1,
	}
	log.Debugf("variants %s", g.v.name)
	return g, nil
}

// Generate emits every shared routine and entry and installs the result
// through sink.
func (g *Generator) Generate(sink CodeSink) (*Interpreter, error) {
	var code []byte
	base, err := sink.Emit(func(base uint64) ([]byte, error) {
		var err error
		code, err = g.emitAll()
		return code, err
	})
	if err != nil {
		return nil, fmt.Errorf("interp: %w", err)
	}
	in := &Interpreter{
		Base:           base,
		Code:           code,
		Features:       g.a.Features(),
		entries:        make(map[MethodKind]uint64),
		resultHandlers: make(map[vm.BasicType]uint64),
		comments:       g.a.Comments(),
	}
	for i := range g.routines {
		r := g.routines[i]
		r.Addr = base + uint64(r.Offset)
		in.routines = append(in.routines, r)
	}
	for k, i := range g.entries {
		in.entries[k] = in.routines[i].Addr
	}
	for t, l := range g.resultHandlers {
		in.resultHandlers[t] = base + uint64(g.a.Target(l))
	}
	log.Infof("generated %d routines, %d bytes at %#x", len(in.routines), len(code), base)
	return in, nil
}

func (g *Generator) emitAll() (code []byte, err error) {
	defer asm.Recover(&err)

	a := g.a
	g.forwardException = a.NewLabel()
	g.removeActivation = a.NewLabel()
	g.removeActivationExc = a.NewLabel()
	g.throwStackOverflow = a.NewLabel()

	g.generateForwardException()
	g.generateRemoveActivation()
	g.generateThrowStackOverflow()
	g.generateResultHandlers()

	for _, k := range Kinds() {
		g.generateEntry(k)
	}
	g.end()
	return a.Finalize()
}

// begin starts a named routine at the current position.
func (g *Generator) begin(name string) {
	g.end()
	g.a.Comment("%s", name)
	g.routines = append(g.routines, Routine{Name: name, Offset: g.a.Pos()})
	g.open = len(g.routines) - 1
}

func (g *Generator) end() {
	if g.open < 0 {
		return
	}
	r := &g.routines[g.open]
	r.Size = g.a.Pos() - r.Offset
	log.Debugf("%s: %d bytes", r.Name, r.Size)
	g.open = -1
}

func (g *Generator) generateEntry(k MethodKind) {
	switch k {
	case Normal, NormalSynchronized:
		g.begin(k.String() + "_entry")
		g.generateNormalEntry(k == NormalSynchronized)
	case Native, NativeSynchronized:
		g.begin(k.String() + "_entry")
		g.generateNativeEntry(k == NativeSynchronized)
	case Abstract:
		g.begin(k.String() + "_entry")
		g.generateAbstractEntry()
	default:
		if !k.IsMath() {
			asm.ShouldNotReachHere(fmt.Sprintf("entry kind %s", k))
		}
		if !g.cfg.MathIntrinsics || !g.mathAvailable(k) {
			log.Debugf("%s: no implementation, methods use the normal entry", k)
			return
		}
		g.begin(k.String() + "_entry")
		g.generateMathEntry(k)
	}
	g.entries[k] = g.open
}

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// Interpreter is a generated and installed set of entry routines.
type Interpreter struct {
	Base     uint64
	Code     []byte
	Features asm.Features

	routines       []Routine
	entries        map[MethodKind]uint64
	resultHandlers map[vm.BasicType]uint64
	comments       map[int][]string
}

// Entry returns the address of the entry for k, if it was generated.
func (in *Interpreter) Entry(k MethodKind) (uint64, bool) {
	addr, ok := in.entries[k]
	return addr, ok
}

// EntryFor returns the entry address methods like m are dispatched to.
// Math methods without a generated entry use the normal entry.
func (in *Interpreter) EntryFor(m *vm.Method) uint64 {
	k := KindFor(m)
	if addr, ok := in.entries[k]; ok {
		return addr
	}
	if m.Flags.IsSynchronized() {
		return in.entries[NormalSynchronized]
	}
	return in.entries[Normal]
}

// Entries returns the address of every generated entry.
func (in *Interpreter) Entries() map[MethodKind]uint64 {
	out := make(map[MethodKind]uint64, len(in.entries))
	for k, v := range in.entries {
		out[k] = v
	}
	return out
}

// ResultHandler returns the address of the result handler for t.
func (in *Interpreter) ResultHandler(t vm.BasicType) uint64 { return in.resultHandlers[t] }

// ResultHandlers returns the result handler address of every basic type.
func (in *Interpreter) ResultHandlers() map[vm.BasicType]uint64 {
	out := make(map[vm.BasicType]uint64, len(in.resultHandlers))
	for t, v := range in.resultHandlers {
		out[t] = v
	}
	return out
}

// Routines returns every routine in address order.
func (in *Interpreter) Routines() []Routine {
	out := append([]Routine(nil), in.routines...)
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Routine looks up a routine by name.
func (in *Interpreter) Routine(name string) (Routine, bool) {
	for _, r := range in.routines {
		if r.Name == name {
			return r, true
		}
	}
	return Routine{}, false
}

// Disassemble returns a listing of the whole blob.
func (in *Interpreter) Disassemble() []asm.Line {
	return asm.Disassemble(in.Code, in.comments)
}

// Comments returns the listing notes by offset.
func (in *Interpreter) Comments() map[int][]string { return in.comments }
