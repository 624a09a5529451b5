// Package codecache provides the regions generated code is installed into.
//
// A Heap region keeps code in ordinary memory at a chosen target address,
// for generating code that runs elsewhere (another process, a simulator,
// an image file). An Executable region maps host memory and flips it
// between writable and executable around every install.
package codecache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rvgen.codecache")

// Alignment of every installed block.
const Alignment = 16

// ErrFull is returned when a region has no room for a block.
var ErrFull = errors.New("codecache: region full")

// Block is one installed piece of code.
type Block struct {
	Addr uint64
	Size int
}

// Heap is a code region backed by a Go byte slice. It is safe for
// concurrent use.
type Heap struct {
	mu       sync.Mutex
	base     uint64
	capacity int
	buf      []byte
	blocks   []Block
}

// NewHeap creates a region of capacity bytes whose first byte has the
// target address base.
func NewHeap(base uint64, capacity int) *Heap {
	return &Heap{base: base, capacity: capacity}
}

// Emit installs the code gen produces for the next free address.
func (h *Heap) Emit(gen func(base uint64) ([]byte, error)) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	off := alignUp(len(h.buf))
	addr := h.base + uint64(off)
	code, err := gen(addr)
	if err != nil {
		return 0, err
	}
	if off+len(code) > h.capacity {
		return 0, fmt.Errorf("%w: %d bytes at offset %d, capacity %d", ErrFull, len(code), off, h.capacity)
	}
	for len(h.buf) < off {
		h.buf = append(h.buf, 0)
	}
	h.buf = append(h.buf, code...)
	h.blocks = append(h.blocks, Block{Addr: addr, Size: len(code)})
	log.Debugf("installed %d bytes at %#x", len(code), addr)
	return addr, nil
}

// Base returns the target address of the region's first byte.
func (h *Heap) Base() uint64 { return h.base }

// Bytes returns a copy of the installed code, starting at Base.
func (h *Heap) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.buf...)
}

// Blocks returns the installed blocks in address order.
func (h *Heap) Blocks() []Block {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Block(nil), h.blocks...)
}

// Used returns the bytes in use, including alignment padding.
func (h *Heap) Used() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buf)
}

func alignUp(n int) int { return (n + Alignment - 1) &^ (Alignment - 1) }
