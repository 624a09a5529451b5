//go:build !unix

package codecache

import "errors"

// Executable is unavailable on this platform.
type Executable struct{}

// NewExecutable always fails here; use a Heap.
func NewExecutable(int) (*Executable, error) {
	return nil, errors.New("codecache: executable regions need mmap")
}

func (*Executable) Base() uint64 { return 0 }

func (*Executable) Emit(func(base uint64) ([]byte, error)) (uint64, error) {
	return 0, errors.New("codecache: executable regions need mmap")
}

func (*Executable) Read(uint64, int) ([]byte, error) {
	return nil, errors.New("codecache: executable regions need mmap")
}

func (*Executable) Blocks() []Block { return nil }

func (*Executable) Close() error { return nil }
