package vm

// DispatchTableLength is the number of entries in a dispatch table, one
// per bytecode value.
const DispatchTableLength = 256

// DispatchEntrySize is the size of one dispatch table entry in bytes.
const DispatchEntrySize = 8

// DispatchTable is an array of template addresses indexed by bytecode.
// Only its location is known here; the templates are built elsewhere.
type DispatchTable struct {
	Base uint64
}

// EntryAddr returns the address of the slot holding the template for bc.
func (d DispatchTable) EntryAddr(bc byte) uint64 {
	return d.Base + uint64(bc)*DispatchEntrySize
}

// Size returns the table's size in bytes.
func (d DispatchTable) Size() int { return DispatchTableLength * DispatchEntrySize }
