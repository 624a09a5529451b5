// Package vm describes the parts of the virtual machine that generated
// interpreter code depends on: method and thread record layouts, access
// flags, method signatures, runtime entry addresses and the bytecode
// dispatch table.
//
// Nothing here executes bytecode. The layouts are offsets the generator
// bakes into code, so they must match the runtime the code is installed in.
package vm
