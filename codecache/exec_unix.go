//go:build unix

package codecache

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Executable is a code region in host memory obtained with mmap. The
// mapping is never writable and executable at once: each install makes it
// writable, copies the code, makes it read-execute again and flushes the
// instruction cache where the host needs it.
type Executable struct {
	mu     sync.Mutex
	mem    []byte
	base   uint64
	used   int
	blocks []Block
}

// NewExecutable maps a region of at least capacity bytes.
func NewExecutable(capacity int) (*Executable, error) {
	size := pageAlign(capacity)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("codecache: mmap %d bytes: %w", size, err)
	}
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("codecache: mprotect: %w", err)
	}
	base := uint64(uintptr(unsafe.Pointer(&mem[0])))
	log.Infof("mapped %d byte executable region at %#x", size, base)
	return &Executable{mem: mem, base: base}, nil
}

// Base returns the host address of the region.
func (e *Executable) Base() uint64 { return e.base }

// Emit installs the code gen produces for the next free address.
func (e *Executable) Emit(gen func(base uint64) ([]byte, error)) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mem == nil {
		return 0, fmt.Errorf("codecache: region closed")
	}
	off := alignUp(e.used)
	addr := e.base + uint64(off)
	code, err := gen(addr)
	if err != nil {
		return 0, err
	}
	if off+len(code) > len(e.mem) {
		return 0, fmt.Errorf("%w: %d bytes at offset %d, capacity %d", ErrFull, len(code), off, len(e.mem))
	}
	if err := unix.Mprotect(e.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return 0, fmt.Errorf("codecache: mprotect rw: %w", err)
	}
	copy(e.mem[off:], code)
	if err := unix.Mprotect(e.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("codecache: mprotect rx: %w", err)
	}
	if err := flushICache(addr, addr+uint64(len(code))); err != nil {
		return 0, fmt.Errorf("codecache: flush icache: %w", err)
	}
	e.used = off + len(code)
	e.blocks = append(e.blocks, Block{Addr: addr, Size: len(code)})
	return addr, nil
}

// Read copies installed bytes at addr.
func (e *Executable) Read(addr uint64, n int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mem == nil || addr < e.base || int(addr-e.base)+n > e.used {
		return nil, fmt.Errorf("codecache: %#x+%d outside installed code", addr, n)
	}
	off := int(addr - e.base)
	return append([]byte(nil), e.mem[off:off+n]...), nil
}

// Blocks returns the installed blocks in address order.
func (e *Executable) Blocks() []Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Block(nil), e.blocks...)
}

// Close unmaps the region.
func (e *Executable) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mem == nil {
		return nil
	}
	err := unix.Munmap(e.mem)
	e.mem = nil
	return err
}

func pageAlign(n int) int {
	ps := unix.Getpagesize()
	if n <= 0 {
		n = ps
	}
	return (n + ps - 1) &^ (ps - 1)
}
