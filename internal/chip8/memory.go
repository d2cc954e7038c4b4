package chip8

import (
	"encoding/binary"
	"fmt"
)

// MemorySize is the full 4 KiB CHIP-8 address space.
const MemorySize = 4096

// ReservedSize is the low region (0x000-0x1FF) reserved for the
// interpreter; the font table lives there and user programs start above it.
const ReservedSize = 0x200

// ProgramStart is the initial program counter and the first address a ROM
// image is loaded at.
const ProgramStart = 0x200

// Memory is the fixed 4096-byte linear address space. The zero value is a
// cleared memory with no font table installed; use NewMemory to get one
// ready for use.
type Memory struct {
	bytes [MemorySize]byte
}

// NewMemory returns a Memory with the font sprite table preloaded at
// address 0.
func NewMemory() *Memory {
	m := &Memory{}
	copy(m.bytes[FontBaseAddress:], fontSprites[:])
	return m
}

// ReadWord reads a big-endian 16-bit word at addr. It is bounds-checked:
// reading the last byte of memory is out of range since a word is 2 bytes.
func (m *Memory) ReadWord(addr uint16) (uint16, error) {
	if int(addr)+1 >= MemorySize {
		return 0, fmt.Errorf("memory: read_word out of bounds at 0x%03X: %w", addr, ErrMemoryOverflow)
	}
	return binary.BigEndian.Uint16(m.bytes[addr : addr+2]), nil
}

// ReadSpan returns a read-only view of n bytes starting at addr.
func (m *Memory) ReadSpan(addr uint16, n int) ([]byte, error) {
	if n < 0 || int(addr)+n > MemorySize {
		return nil, fmt.Errorf("memory: read_span(0x%03X, %d) out of bounds: %w", addr, n, ErrMemoryOverflow)
	}
	return m.bytes[addr : int(addr)+n : int(addr)+n], nil
}

// WriteSpan copies data into memory starting at addr. It panics if the
// write would exceed the address space — callers (the interpreter and the
// ROM loader) are expected to validate bounds up front rather than silently
// truncate the write.
func (m *Memory) WriteSpan(addr uint16, data []byte) {
	end := int(addr) + len(data)
	if end > MemorySize {
		panic(fmt.Sprintf("memory: write_span(0x%03X, %d bytes) exceeds address space", addr, len(data)))
	}
	copy(m.bytes[addr:end], data)
}

// WriteSpanChecked is WriteSpan with the bounds check surfaced as an error
// instead of a panic, for call sites where addr is derived from
// ROM-controlled state (the I register) rather than validated up front.
func (m *Memory) WriteSpanChecked(addr uint16, data []byte) error {
	if int(addr)+len(data) > MemorySize {
		return fmt.Errorf("memory: write_span(0x%03X, %d) out of bounds: %w", addr, len(data), ErrMemoryOverflow)
	}
	m.WriteSpan(addr, data)
	return nil
}

// LoadROM installs image at ProgramStart. It returns an error instead of
// panicking since a ROM is untrusted external input, unlike the
// interpreter's own internally-validated writes.
func (m *Memory) LoadROM(image []byte) error {
	if len(image) > MemorySize-ReservedSize {
		return fmt.Errorf("memory: ROM of %d bytes exceeds %d byte program space", len(image), MemorySize-ReservedSize)
	}
	m.WriteSpan(ProgramStart, image)
	return nil
}
