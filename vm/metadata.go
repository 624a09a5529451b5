package vm

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Method metadata
// ---------------------------------------------------------------------------

// Method is the per-method metadata record the generated entries read.
// The runtime owns the record; generated code reads it at the byte offsets
// of a MethodLayout. Pointer fields hold runtime addresses.
type Method struct {
	Name      string
	Signature string
	Flags     AccessFlags
	Intrinsic string // math intrinsic name ("sqrt", "pow", ...), or empty

	SizeOfParameters int // parameter slots, receiver included
	MaxLocals        int // locals including parameters
	MaxStack         int // expression stack words

	InvocationCount uint32

	ConstMethod      uint64 // address of the bytecode holder
	Mirror           uint64 // holder class mirror
	MethodData       uint64 // 0 until profiling builds it
	CPCache          uint64
	NativeFunction   uint64 // 0 until resolved
	SignatureHandler uint64 // 0 until resolved
}

// NewMethod builds a Method, deriving the parameter count from the
// signature and flags.
func NewMethod(name, signature string, flags AccessFlags, maxLocals, maxStack int) (*Method, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	params := sig.ParameterSlots()
	if !flags.IsStatic() {
		params++
	}
	if maxLocals < params {
		maxLocals = params
	}
	m := &Method{
		Name:             name,
		Signature:        signature,
		Flags:            flags,
		SizeOfParameters: params,
		MaxLocals:        maxLocals,
		MaxStack:         maxStack,
	}
	return m, m.Validate()
}

// ParsedSignature parses the method's descriptor.
func (m *Method) ParsedSignature() (Signature, error) { return ParseSignature(m.Signature) }

// ExtraLocals returns the non-parameter locals the entry must zero.
func (m *Method) ExtraLocals() int { return m.MaxLocals - m.SizeOfParameters }

// Validate checks the counts against the 16-bit metadata fields.
func (m *Method) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"size of parameters", m.SizeOfParameters},
		{"max locals", m.MaxLocals},
		{"max stack", m.MaxStack},
	} {
		if f.v < 0 || f.v > 0xffff {
			return fmt.Errorf("method %s: %s %d out of range", m.Name, f.name, f.v)
		}
	}
	if m.MaxLocals < m.SizeOfParameters {
		return fmt.Errorf("method %s: max locals %d below parameter size %d", m.Name, m.MaxLocals, m.SizeOfParameters)
	}
	if m.Flags.IsNative() && m.Flags.IsAbstract() {
		return fmt.Errorf("method %s: native and abstract", m.Name)
	}
	return nil
}

func (m *Method) String() string {
	return fmt.Sprintf("%s%s [%s]", m.Name, m.Signature, m.Flags)
}

// MethodLayout gives the byte offsets of the metadata fields. The runtime
// version determines it; the generator treats it as an ABI.
type MethodLayout struct {
	AccessFlags       int64 // u32
	InvocationCounter int64 // u32
	SizeOfParameters  int64 // u16
	MaxLocals         int64 // u16
	MaxStack          int64 // u16
	ConstMethod       int64
	CodesOffset       int64 // first bytecode, from ConstMethod
	HolderMirror      int64
	MethodData        int64
	MDPDataOffset     int64 // first profile cell, from MethodData
	CPCache           int64
	NativeFunction    int64
	SignatureHandler  int64
}

// DefaultMethodLayout is the layout of the reference runtime.
func DefaultMethodLayout() MethodLayout {
	return MethodLayout{
		AccessFlags:       0,
		InvocationCounter: 4,
		SizeOfParameters:  8,
		MaxLocals:         10,
		MaxStack:          12,
		ConstMethod:       16,
		CodesOffset:       48,
		HolderMirror:      24,
		MethodData:        32,
		MDPDataOffset:     16,
		CPCache:           40,
		NativeFunction:    48,
		SignatureHandler:  56,
	}
}

// Size returns the bytes covered by the layout.
func (l MethodLayout) Size() int64 {
	end := int64(0)
	for _, f := range []struct{ off, size int64 }{
		{l.AccessFlags, 4}, {l.InvocationCounter, 4},
		{l.SizeOfParameters, 2}, {l.MaxLocals, 2}, {l.MaxStack, 2},
		{l.ConstMethod, 8}, {l.HolderMirror, 8}, {l.MethodData, 8},
		{l.CPCache, 8}, {l.NativeFunction, 8}, {l.SignatureHandler, 8},
	} {
		if f.off+f.size > end {
			end = f.off + f.size
		}
	}
	return end
}

// LayoutField names one offset of a layout.
type LayoutField struct {
	Name   string
	Offset *int64
	Size   int64 // access width, for alignment
}

// Fields returns every offset with its configuration name.
func (l *MethodLayout) Fields() []LayoutField {
	return []LayoutField{
		{"access-flags", &l.AccessFlags, 4},
		{"invocation-counter", &l.InvocationCounter, 4},
		{"size-of-parameters", &l.SizeOfParameters, 2},
		{"max-locals", &l.MaxLocals, 2},
		{"max-stack", &l.MaxStack, 2},
		{"const-method", &l.ConstMethod, 8},
		{"codes-offset", &l.CodesOffset, 1},
		{"holder-mirror", &l.HolderMirror, 8},
		{"method-data", &l.MethodData, 8},
		{"mdp-data-offset", &l.MDPDataOffset, 1},
		{"cp-cache", &l.CPCache, 8},
		{"native-function", &l.NativeFunction, 8},
		{"signature-handler", &l.SignatureHandler, 8},
	}
}

// Set assigns the offset called name.
func (l *MethodLayout) Set(name string, off int64) error {
	return setField(l.Fields(), name, off)
}

// Validate checks that every field is naturally aligned and fits a memory
// immediate.
func (l MethodLayout) Validate() error {
	for _, f := range l.Fields() {
		if err := checkField(f.Name, *f.Offset, f.Size); err != nil {
			return fmt.Errorf("method layout: %w", err)
		}
	}
	return nil
}

func setField(fields []LayoutField, name string, off int64) error {
	for _, f := range fields {
		if f.Name == name {
			*f.Offset = off
			return nil
		}
	}
	return fmt.Errorf("unknown field %q", name)
}

func checkField(name string, off, size int64) error {
	if off < 0 || off > 2047 {
		return fmt.Errorf("%s offset %d outside 0..2047", name, off)
	}
	if off%size != 0 {
		return fmt.Errorf("%s offset %d not %d-aligned", name, off, size)
	}
	return nil
}

// Encode serializes m as a little-endian record laid out by l.
func (l MethodLayout) Encode(m *Method) []byte {
	b := make([]byte, l.Size())
	le := binary.LittleEndian
	le.PutUint32(b[l.AccessFlags:], uint32(m.Flags))
	le.PutUint32(b[l.InvocationCounter:], m.InvocationCount)
	le.PutUint16(b[l.SizeOfParameters:], uint16(m.SizeOfParameters))
	le.PutUint16(b[l.MaxLocals:], uint16(m.MaxLocals))
	le.PutUint16(b[l.MaxStack:], uint16(m.MaxStack))
	le.PutUint64(b[l.ConstMethod:], m.ConstMethod)
	le.PutUint64(b[l.HolderMirror:], m.Mirror)
	le.PutUint64(b[l.MethodData:], m.MethodData)
	le.PutUint64(b[l.CPCache:], m.CPCache)
	le.PutUint64(b[l.NativeFunction:], m.NativeFunction)
	le.PutUint64(b[l.SignatureHandler:], m.SignatureHandler)
	return b
}
