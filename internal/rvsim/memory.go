package rvsim

import "encoding/binary"

const pageBits = 12

// Memory is a sparse little-endian byte-addressed address space. Unwritten
// bytes read as zero.
type Memory struct {
	pages map[uint64]*[1 << pageBits]byte
}

// NewMemory creates an empty address space.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[1 << pageBits]byte)}
}

func (m *Memory) page(addr uint64, create bool) *[1 << pageBits]byte {
	key := addr >> pageBits
	p := m.pages[key]
	if p == nil && create {
		p = new([1 << pageBits]byte)
		m.pages[key] = p
	}
	return p
}

func (m *Memory) byteAt(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&(1<<pageBits-1)]
}

func (m *Memory) setByte(addr uint64, b byte) {
	m.page(addr, true)[addr&(1<<pageBits-1)] = b
}

// Load reads size bytes (1, 2, 4 or 8) at addr, zero-extended.
func (m *Memory) Load(addr uint64, size int) uint64 {
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(m.byteAt(addr+uint64(i)))
	}
	return v
}

// Store writes the low size bytes of val at addr.
func (m *Memory) Store(addr uint64, size int, val uint64) {
	for i := 0; i < size; i++ {
		m.setByte(addr+uint64(i), byte(val>>(8*i)))
	}
}

// Write copies b into memory at addr.
func (m *Memory) Write(addr uint64, b []byte) {
	for i, c := range b {
		m.setByte(addr+uint64(i), c)
	}
}

// WriteWords stores instruction words at addr.
func (m *Memory) WriteWords(addr uint64, words []uint32) {
	var buf [4]byte
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[:], w)
		m.Write(addr+uint64(i*4), buf[:])
	}
}
