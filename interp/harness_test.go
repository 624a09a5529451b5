package interp

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/codecache"
	"github.com/chazu/rvgen/frame"
	"github.com/chazu/rvgen/internal/rvsim"
	"github.com/chazu/rvgen/vm"
)

// Addresses of the simulated runtime.
const (
	codeBase     = 0x4000_0000
	threadAddr   = 0x1000_0000
	handlesAddr  = 0x1000_1000
	methodAddr   = 0x2000_0000
	constMethod  = 0x2100_0000
	mirrorAddr   = 0x2200_0000
	receiverAddr = 0x2300_0000
	cpCacheAddr  = 0x2400_0000
	mdoAddr      = 0x2500_0000
	exceptionOop = 0x3000_0000
	templateAddr = 0x5000_0000
	callerRet    = 0x6000_0000
	nativeFn     = 0x6100_0000
	stackLimit   = 0x0700_0000
	callerSP     = 0x0800_0000
	callerFP     = 0x0900_0000

	firstBytecode = 0x2a
)

// Where a run ended.
const (
	exitReturn    = "return"
	exitException = "exception"
	exitDispatch  = "dispatch"
)

func reg(r asm.Register) int       { return int(r) }
func freg(r asm.FloatRegister) int { return int(r) }

// harness runs generated entries against a simulated thread, method and
// runtime. Runtime entries record their calls and return; behavior is
// overridden per test through hooks.
type harness struct {
	t    *testing.T
	cfg  Config
	in   *Interpreter
	heap *codecache.Heap
	lib  *SignatureHandlerLibrary
	m    *rvsim.Machine

	method *vm.Method
	esp    uint64

	calls  map[string]int
	events []string
	exit   string

	hooks      map[string]func(m *rvsim.Machine)
	onDispatch func(m *rvsim.Machine) rvsim.Action
	onNative   func(m *rvsim.Machine)
}

func newHarness(t *testing.T, features asm.Features, tweak func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	if tweak != nil {
		tweak(&cfg)
	}
	g, err := NewGenerator(cfg, asm.NewFeatureContext(features))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	heap := codecache.NewHeap(codeBase, 1<<20)
	in, err := g.Generate(heap)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return &harness{
		t:     t,
		cfg:   cfg,
		in:    in,
		heap:  heap,
		lib:   NewSignatureHandlerLibrary(in, heap),
		calls: make(map[string]int),
		hooks: make(map[string]func(m *rvsim.Machine)),
	}
}

// prepare builds a fresh machine for m with the given parameter slots,
// local 0 first.
func (h *harness) prepare(m *vm.Method, slots ...uint64) {
	h.t.Helper()
	if len(slots) != m.SizeOfParameters {
		h.t.Fatalf("method %s takes %d slots, got %d", m, m.SizeOfParameters, len(slots))
	}
	h.method = m
	h.calls = make(map[string]int)
	h.events = nil
	h.exit = ""

	mc := rvsim.New()
	h.m = mc
	mc.Mem.Write(codeBase, h.heap.Bytes())

	m.ConstMethod = constMethod
	m.Mirror = mirrorAddr
	m.CPCache = cpCacheAddr
	h.writeMethod()
	mc.Mem.Store(constMethod+uint64(h.cfg.Method.CodesOffset), 1, firstBytecode)
	mc.Mem.Store(h.cfg.Dispatch.EntryAddr(firstBytecode), 8, templateAddr)

	th := h.cfg.Thread
	mc.Mem.Store(threadAddr+uint64(th.State), 4, uint64(vm.ThreadInJava))
	mc.Mem.Store(threadAddr+uint64(th.StackLimit), 8, stackLimit)
	mc.Mem.Store(threadAddr+uint64(th.ActiveHandles), 8, handlesAddr)
	mc.Mem.Store(handlesAddr+uint64(th.HandleBlockTop), 4, 7)

	n := uint64(len(slots))
	h.esp = callerSP - 8*n
	for i, v := range slots {
		mc.Mem.Store(h.local(i), 8, v)
	}

	mc.X[reg(xthread)] = threadAddr
	mc.X[reg(xmethod)] = methodAddr
	mc.X[reg(esp)] = h.esp
	mc.X[reg(senderSP)] = callerSP
	mc.X[rvsim.SP] = callerSP
	mc.X[reg(asm.FP)] = callerFP
	mc.X[rvsim.RA] = callerRet

	h.installTraps()

	mc.OnStore = func(addr uint64, size int, val uint64) {
		if addr == threadAddr+uint64(th.State) {
			h.events = append(h.events, "state "+vm.ThreadState(val).String())
		}
	}
	mc.OnFence = func(pred, succ uint32) {
		h.events = append(h.events, fmt.Sprintf("fence %s,%s", asm.FenceSet(pred), asm.FenceSet(succ)))
	}
}

func (h *harness) writeMethod() {
	h.m.Mem.Write(methodAddr, h.cfg.Method.Encode(h.method))
}

// local returns the address of local i in the caller's expression stack.
func (h *harness) local(i int) uint64 {
	return h.esp + 8*uint64(h.method.SizeOfParameters-1-i)
}

func (h *harness) thread(off int64, size int) uint64 {
	return h.m.Mem.Load(threadAddr+uint64(off), size)
}

func (h *harness) throw(m *rvsim.Machine) {
	m.Mem.Store(threadAddr+uint64(h.cfg.Thread.PendingException), 8, exceptionOop)
}

var mathFuncs = map[string]func(x, y float64) float64{
	"sin":   func(x, _ float64) float64 { return math.Sin(x) },
	"cos":   func(x, _ float64) float64 { return math.Cos(x) },
	"tan":   func(x, _ float64) float64 { return math.Tan(x) },
	"log":   func(x, _ float64) float64 { return math.Log(x) },
	"log10": func(x, _ float64) float64 { return math.Log10(x) },
	"exp":   func(x, _ float64) float64 { return math.Exp(x) },
	"pow":   math.Pow,
	"sqrt":  func(x, _ float64) float64 { return math.Sqrt(x) },
	"abs":   func(x, _ float64) float64 { return math.Abs(x) },
}

func (h *harness) installTraps() {
	mc := h.m
	rt := h.cfg.Runtime
	for _, e := range rt.Named() {
		name := e.Name
		if *e.Addr == 0 {
			continue
		}
		mc.Trap(*e.Addr, func(m *rvsim.Machine) rvsim.Action {
			h.calls[name]++
			if f, ok := mathFuncs[name]; ok {
				m.SetFloatReg(freg(asm.FA0), f(m.FloatReg(freg(asm.FA0)), m.FloatReg(freg(asm.FA1))))
			}
			switch name {
			case "exception-dispatch":
				h.exit = exitException
				return rvsim.Stop
			case "prepare-native-call":
				h.prepareNative(m)
			case "profile-method":
				h.method.MethodData = mdoAddr
				m.Mem.Store(methodAddr+uint64(h.cfg.Method.MethodData), 8, mdoAddr)
			case "throw-stack-overflow", "throw-abstract-method":
				h.throw(m)
			}
			if hook := h.hooks[name]; hook != nil {
				hook(m)
			}
			return rvsim.Return
		})
	}
	mc.Trap(callerRet, func(*rvsim.Machine) rvsim.Action {
		h.exit = exitReturn
		return rvsim.Stop
	})
	mc.Trap(templateAddr, func(m *rvsim.Machine) rvsim.Action {
		h.calls["dispatch"]++
		if h.onDispatch != nil {
			return h.onDispatch(m)
		}
		h.exit = exitDispatch
		return rvsim.Stop
	})
	mc.Trap(nativeFn, func(m *rvsim.Machine) rvsim.Action {
		h.calls["native"]++
		if h.onNative != nil {
			h.onNative(m)
		}
		return rvsim.Return
	})
}

// prepareNative resolves the signature handler and native function of the
// current method, as the runtime would.
func (h *harness) prepareNative(m *rvsim.Machine) {
	if m.X[rvsim.A1] != methodAddr {
		h.t.Errorf("prepare_native_call: a1 = %#x, want method", m.X[rvsim.A1])
	}
	addr, err := h.lib.LookupMethod(h.method)
	if err != nil {
		h.t.Fatalf("LookupMethod: %v", err)
	}
	m.Mem.Write(codeBase, h.heap.Bytes())
	h.method.SignatureHandler = addr
	h.method.NativeFunction = nativeFn
	m.Mem.Store(methodAddr+uint64(h.cfg.Method.SignatureHandler), 8, addr)
	m.Mem.Store(methodAddr+uint64(h.cfg.Method.NativeFunction), 8, nativeFn)
}

// run executes the entry of kind k and returns how it ended.
func (h *harness) run(k MethodKind) string {
	h.t.Helper()
	entry, ok := h.in.Entry(k)
	if !ok {
		h.t.Fatalf("no %s entry", k)
	}
	if err := h.m.Run(entry); err != nil {
		var f *rvsim.Fault
		if errors.As(err, &f) {
			h.t.Fatalf("%s: %v", k, f)
		}
		h.t.Fatalf("%s: %v", k, err)
	}
	return h.exit
}

// fp reads a frame slot relative to the machine's current fp.
func (h *harness) slot(s frame.Slot) uint64 {
	return h.m.Mem.Load(h.m.X[reg(asm.FP)]+uint64(s.Offset()), 8)
}

func (h *harness) counter() uint32 {
	return uint32(h.m.Mem.Load(methodAddr+uint64(h.cfg.Method.InvocationCounter), 4))
}

// returnFromTemplate makes the dispatch target return a0 through
// remove_activation, as a return bytecode would.
func (h *harness) returnFromTemplate(check func(m *rvsim.Machine)) {
	h.leaveTemplate(RoutineRemoveActivation, check, nil)
}

// throwFromTemplate makes the first template raise an exception and leave
// through remove_activation_exception.
func (h *harness) throwFromTemplate(check func(m *rvsim.Machine)) {
	h.leaveTemplate(RoutineRemoveActivationExc, check, h.throw)
}

func (h *harness) leaveTemplate(routine string, check, before func(m *rvsim.Machine)) {
	r, ok := h.in.Routine(routine)
	if !ok {
		h.t.Fatalf("no %s routine", routine)
	}
	h.onDispatch = func(m *rvsim.Machine) rvsim.Action {
		if check != nil {
			check(m)
		}
		if before != nil {
			before(m)
		}
		m.X[rvsim.A0] = 42
		m.PC = r.Addr
		return rvsim.Jump
	}
}

func (h *harness) expectReturned() {
	h.t.Helper()
	if h.exit != exitReturn {
		h.t.Fatalf("exit = %q, want %q", h.exit, exitReturn)
	}
	if sp := h.m.X[rvsim.SP]; sp != callerSP {
		h.t.Errorf("sp after return = %#x, want %#x", sp, uint64(callerSP))
	}
	if fp := h.m.X[reg(asm.FP)]; fp != callerFP {
		h.t.Errorf("fp after return = %#x, want %#x", fp, uint64(callerFP))
	}
}

func (h *harness) expectException() {
	h.t.Helper()
	if h.exit != exitException {
		h.t.Fatalf("exit = %q, want %q", h.exit, exitException)
	}
	m := h.m
	if m.X[rvsim.A0] != exceptionOop {
		h.t.Errorf("a0 = %#x, want the pending exception", m.X[rvsim.A0])
	}
	if m.X[rvsim.A1] != callerRet {
		h.t.Errorf("a1 = %#x, want the caller's return address", m.X[rvsim.A1])
	}
	if sp := m.X[rvsim.SP]; sp != callerSP {
		h.t.Errorf("sp at dispatch = %#x, want %#x", sp, uint64(callerSP))
	}
	if p := h.thread(h.cfg.Thread.PendingException, 8); p != 0 {
		h.t.Errorf("pending exception not cleared: %#x", p)
	}
}

func mustMethod(t *testing.T, name, sig string, flags vm.AccessFlags, maxLocals, maxStack int) *vm.Method {
	t.Helper()
	m, err := vm.NewMethod(name, sig, flags, maxLocals, maxStack)
	if err != nil {
		t.Fatalf("NewMethod: %v", err)
	}
	return m
}
