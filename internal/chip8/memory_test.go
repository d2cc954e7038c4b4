package chip8

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryPreloadsFont(t *testing.T) {
	m := NewMemory()
	got, err := m.ReadSpan(FontBaseAddress, len(fontSprites))
	require.NoError(t, err)
	assert.Equal(t, fontSprites[:], got)
}

func TestMemoryReadWordBigEndian(t *testing.T) {
	m := NewMemory()
	m.WriteSpan(0x300, []byte{0x12, 0x34})
	word, err := m.ReadWord(0x300)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), word)
}

func TestMemoryReadWordOutOfBounds(t *testing.T) {
	m := NewMemory()
	_, err := m.ReadWord(MemorySize - 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMemoryOverflow))
}

func TestMemoryReadSpanOutOfBounds(t *testing.T) {
	m := NewMemory()
	_, err := m.ReadSpan(MemorySize-1, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMemoryOverflow))
}

func TestMemoryLoadROMRejectsOversize(t *testing.T) {
	m := NewMemory()
	image := make([]byte, MemorySize-ReservedSize+1)
	err := m.LoadROM(image)
	require.Error(t, err)
}

func TestMemoryLoadROMInstallsAtProgramStart(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.LoadROM([]byte{0xAA, 0xBB}))
	got, err := m.ReadSpan(ProgramStart, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestMemoryWriteSpanPanicsOnOverflow(t *testing.T) {
	m := NewMemory()
	assert.Panics(t, func() {
		m.WriteSpan(MemorySize-1, []byte{1, 2, 3})
	})
}
