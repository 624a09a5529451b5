package vm

import (
	"fmt"
	"strings"
)

// BasicType is the machine-level type of a value crossing the native
// boundary.
type BasicType uint8

// Basic types.
const (
	TVoid BasicType = iota
	TBoolean
	TChar
	TByte
	TShort
	TInt
	TLong
	TFloat
	TDouble
	TObject
)

// BasicTypes lists every basic type, in order.
var BasicTypes = []BasicType{TVoid, TBoolean, TChar, TByte, TShort, TInt, TLong, TFloat, TDouble, TObject}

var basicTypeInfo = [...]struct {
	name  string
	desc  byte
	slots int
}{
	TVoid:    {"void", 'V', 0},
	TBoolean: {"boolean", 'Z', 1},
	TChar:    {"char", 'C', 1},
	TByte:    {"byte", 'B', 1},
	TShort:   {"short", 'S', 1},
	TInt:     {"int", 'I', 1},
	TLong:    {"long", 'J', 2},
	TFloat:   {"float", 'F', 1},
	TDouble:  {"double", 'D', 2},
	TObject:  {"object", 'L', 1},
}

func (t BasicType) String() string {
	if int(t) < len(basicTypeInfo) {
		return basicTypeInfo[t].name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Descriptor returns the single-character descriptor of t. Arrays and
// classes both map to 'L'.
func (t BasicType) Descriptor() byte { return basicTypeInfo[t].desc }

// Slots returns the number of local variable slots a value of t occupies.
func (t BasicType) Slots() int { return basicTypeInfo[t].slots }

// IsFloating reports whether t travels in floating-point registers.
func (t BasicType) IsFloating() bool { return t == TFloat || t == TDouble }

// Signature is a parsed method descriptor such as "(IJLjava/lang/String;)V".
type Signature struct {
	Params []BasicType
	Result BasicType
}

// ParseSignature parses a method descriptor.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	if !strings.HasPrefix(s, "(") {
		return sig, fmt.Errorf("signature %q: missing '('", s)
	}
	i := 1
	for i < len(s) && s[i] != ')' {
		t, n, err := parseField(s, i)
		if err != nil {
			return sig, err
		}
		if t == TVoid {
			return sig, fmt.Errorf("signature %q: void parameter at %d", s, i)
		}
		sig.Params = append(sig.Params, t)
		i = n
	}
	if i >= len(s) {
		return sig, fmt.Errorf("signature %q: missing ')'", s)
	}
	t, n, err := parseField(s, i+1)
	if err != nil {
		return sig, err
	}
	if n != len(s) {
		return sig, fmt.Errorf("signature %q: trailing characters", s)
	}
	sig.Result = t
	return sig, nil
}

func parseField(s string, i int) (BasicType, int, error) {
	if i >= len(s) {
		return 0, 0, fmt.Errorf("signature %q: truncated", s)
	}
	switch s[i] {
	case 'V':
		return TVoid, i + 1, nil
	case 'Z':
		return TBoolean, i + 1, nil
	case 'C':
		return TChar, i + 1, nil
	case 'B':
		return TByte, i + 1, nil
	case 'S':
		return TShort, i + 1, nil
	case 'I':
		return TInt, i + 1, nil
	case 'J':
		return TLong, i + 1, nil
	case 'F':
		return TFloat, i + 1, nil
	case 'D':
		return TDouble, i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, 0, fmt.Errorf("signature %q: unterminated class name at %d", s, i)
		}
		return TObject, i + end + 1, nil
	case '[':
		j := i
		for j < len(s) && s[j] == '[' {
			j++
		}
		t, n, err := parseField(s, j)
		if err != nil {
			return 0, 0, err
		}
		if t == TVoid {
			return 0, 0, fmt.Errorf("signature %q: array of void", s)
		}
		return TObject, n, nil
	}
	return 0, 0, fmt.Errorf("signature %q: unexpected %q at %d", s, s[i], i)
}

// ParameterSlots returns the local slots the declared parameters use,
// excluding any receiver.
func (s Signature) ParameterSlots() int {
	n := 0
	for _, p := range s.Params {
		n += p.Slots()
	}
	return n
}

// Key returns the normalized form of the signature used to share native
// argument handlers: class names are dropped and the static bit kept.
func (s Signature) Key(static bool) string {
	var sb strings.Builder
	if static {
		sb.WriteByte('S')
	} else {
		sb.WriteByte('I')
	}
	sb.WriteByte('(')
	for _, p := range s.Params {
		sb.WriteByte(p.Descriptor())
	}
	sb.WriteByte(')')
	sb.WriteByte(s.Result.Descriptor())
	return sb.String()
}
