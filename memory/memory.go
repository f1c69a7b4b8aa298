// Package memory implements the EVM's per-frame linear memory: a
// byte-addressed buffer that grows in 32-byte words on demand, with
// word-granular load/store. Grounded on the teacher's vm.Memory
// (Resize/Set/Set32/GetPtr/GetCopy), reimplemented without gas accounting
// — growth here is unbounded except by host resources, per spec.
package memory

import "github.com/evmlab/evmsim/word"

// Memory is a byte-addressable expandable buffer, always a multiple of 32
// bytes in length.
type Memory struct {
	store []byte
}

// New returns an empty memory.
func New() *Memory {
	return &Memory{}
}

// Size returns the current length, always a multiple of 32.
func (m *Memory) Size() uint64 {
	return uint64(len(m.store))
}

// wordSize rounds n up to the next multiple of 32.
func wordSize(n uint64) uint64 {
	return (n + 31) / 32 * 32
}

// grow expands the store so that byte offset+length-1 is addressable. A
// zero-length touch never grows memory.
func (m *Memory) grow(offset, length uint64) {
	if length == 0 {
		return
	}
	need := wordSize(offset + length)
	if need <= uint64(len(m.store)) {
		return
	}
	grown := make([]byte, need)
	copy(grown, m.store)
	m.store = grown
}

// Read returns length bytes starting at offset, zero-padded if the
// request runs past the current content (the read still grows memory to
// cover the touched range, per spec).
func (m *Memory) Read(offset, length uint64) []byte {
	if length == 0 {
		return nil
	}
	m.grow(offset, length)
	out := make([]byte, length)
	copy(out, m.store[offset:offset+length])
	return out
}

// Write stores data at offset, growing memory as needed.
func (m *Memory) Write(offset uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	m.grow(offset, uint64(len(data)))
	copy(m.store[offset:], data)
}

// Load32 reads a 32-byte word at offset.
func (m *Memory) Load32(offset uint64) word.Word {
	return word.FromBytes(m.Read(offset, 32))
}

// Store32 writes a 32-byte word at offset.
func (m *Memory) Store32(offset uint64, w word.Word) {
	b := w.Bytes32()
	m.Write(offset, b[:])
}

// Store1 writes a single byte at offset.
func (m *Memory) Store1(offset uint64, b byte) {
	m.grow(offset, 1)
	m.store[offset] = b
}

// Data exposes the underlying buffer. Callers must not mutate it.
func (m *Memory) Data() []byte {
	return m.store
}
