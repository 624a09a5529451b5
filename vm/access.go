package vm

import "strings"

// AccessFlags are the method access bits the generated entries test.
type AccessFlags uint32

// Access flag bits.
const (
	AccStatic       AccessFlags = 0x0008
	AccSynchronized AccessFlags = 0x0020
	AccNative       AccessFlags = 0x0100
	AccAbstract     AccessFlags = 0x0400
)

func (f AccessFlags) IsStatic() bool       { return f&AccStatic != 0 }
func (f AccessFlags) IsSynchronized() bool { return f&AccSynchronized != 0 }
func (f AccessFlags) IsNative() bool       { return f&AccNative != 0 }
func (f AccessFlags) IsAbstract() bool     { return f&AccAbstract != 0 }

func (f AccessFlags) String() string {
	var parts []string
	if f.IsStatic() {
		parts = append(parts, "static")
	}
	if f.IsSynchronized() {
		parts = append(parts, "synchronized")
	}
	if f.IsNative() {
		parts = append(parts, "native")
	}
	if f.IsAbstract() {
		parts = append(parts, "abstract")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
