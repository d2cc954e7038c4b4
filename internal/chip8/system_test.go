package chip8

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T, rom []byte) *System {
	t.Helper()
	s := NewSystem(NewSystemOptions())
	require.NoError(t, s.LoadROM(rom))
	t.Cleanup(s.Shutdown)
	return s
}

func TestClsThenSelfJumpTerminates(t *testing.T) {
	s := newTestSystem(t, []byte{0x00, 0xE0, 0x12, 0x00})

	require.NoError(t, s.step()) // CLS
	err := s.step()              // JP 0x200, self-jump at pc=0x200
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSelfJump))
	assert.Equal(t, uint16(ProgramStart), s.cpu.pc)
}

func TestStackOverflowOnSeventeenthCall(t *testing.T) {
	rom := make([]byte, 34)
	for i := 0; i < 17; i++ {
		rom[i*2] = 0x22
		rom[i*2+1] = 0x02
	}
	s := newTestSystem(t, rom)

	var err error
	for i := 0; i < 17; i++ {
		err = s.step()
		if err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, StackSize, len(s.cpu.stack))
}

func TestBCDEncoding(t *testing.T) {
	s := newTestSystem(t, []byte{
		0x60, 0x7B, // LD V0, 0x7B (123)
		0xA3, 0x00, // LD I, 0x300
		0xF0, 0x33, // LD B, V0
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, s.step())
	}

	got, err := s.memory.ReadSpan(0x300, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestSpriteXORAndCollision(t *testing.T) {
	s := newTestSystem(t, []byte{
		0x00, 0xE0, // CLS
		0x60, 0x00, // LD V0, 0
		0xF0, 0x29, // LD F, V0 (I = font('0'))
		0xD1, 0x25, // DRW V1, V2, 5 (V1=V2=0)
		0xD1, 0x25, // DRW again at the same spot
	})

	for i := 0; i < 4; i++ {
		require.NoError(t, s.step())
	}
	assert.Equal(t, byte(0), s.cpu.v[VF], "first draw should report no collision")
	f := s.display.Snapshot()
	assert.True(t, f.Pixel(0, 0), "glyph '0' sets its top-left pixel")

	require.NoError(t, s.step())
	assert.Equal(t, byte(1), s.cpu.v[VF], "re-drawing the same sprite must collide")
	f = s.display.Snapshot()
	for y := 0; y < FontGlyphSize; y++ {
		for x := 0; x < 8; x++ {
			assert.False(t, f.Pixel(x, y))
		}
	}
}

func TestAwaitKeyInterruptedByShutdown(t *testing.T) {
	s := NewSystem(NewSystemOptions())
	require.NoError(t, s.LoadROM([]byte{0xF1, 0x0A}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	s.Shutdown()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("interpreter loop did not join within 100ms of shutdown")
	}
}

func TestAddRegSetsOverflowFlag(t *testing.T) {
	s := newTestSystem(t, []byte{0, 0})
	s.cpu.v[0] = 0xFF
	s.cpu.v[1] = 0x02
	_, err := s.execute(Instr{Op: OpAddReg, X: 0, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), s.cpu.v[0])
	assert.Equal(t, byte(1), s.cpu.v[VF])
}

func TestAddImmDoesNotTouchFlag(t *testing.T) {
	s := newTestSystem(t, []byte{0, 0})
	s.cpu.v[VF] = 0xAB
	s.cpu.v[0] = 0xFF
	_, err := s.execute(Instr{Op: OpAddImm, X: 0, KK: 0x02})
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), s.cpu.v[VF], "7XKK must leave VF untouched")
}

func TestSubRegFlagIsNoBorrow(t *testing.T) {
	s := newTestSystem(t, []byte{0, 0})
	s.cpu.v[0] = 5
	s.cpu.v[1] = 3
	_, err := s.execute(Instr{Op: OpSubReg, X: 0, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, byte(2), s.cpu.v[0])
	assert.Equal(t, byte(1), s.cpu.v[VF], "Vx >= Vy means no borrow, VF=1")
}

func TestSubNFlagIsNoBorrow(t *testing.T) {
	s := newTestSystem(t, []byte{0, 0})
	s.cpu.v[0] = 5
	s.cpu.v[1] = 3
	_, err := s.execute(Instr{Op: OpSubN, X: 0, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, byte(254), s.cpu.v[0]) // Vy - Vx = 3 - 5, wraps
	assert.Equal(t, byte(0), s.cpu.v[VF], "Vy < Vx means a borrow occurred, VF=0")
}

func TestShiftRightDefaultSourceIsVy(t *testing.T) {
	s := newTestSystem(t, []byte{0, 0})
	s.cpu.v[1] = 0x03 // LSB set
	_, err := s.execute(Instr{Op: OpShiftRight, X: 0, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), s.cpu.v[0])
	assert.Equal(t, byte(1), s.cpu.v[VF])
}

func TestShiftRightQuirkSourceIsVx(t *testing.T) {
	s := NewSystem(SystemOptions{CPUFrequencyHz: DefaultFrequency, Quirks: ShiftReadsVx})
	require.NoError(t, s.LoadROM([]byte{0, 0}))
	defer s.Shutdown()

	s.cpu.v[0] = 0x03
	s.cpu.v[1] = 0xFF
	_, err := s.execute(Instr{Op: OpShiftRight, X: 0, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), s.cpu.v[0])
	assert.Equal(t, byte(1), s.cpu.v[VF])
}

func TestLoadStoreIgnoresIQuirk(t *testing.T) {
	s := NewSystem(SystemOptions{CPUFrequencyHz: DefaultFrequency, Quirks: LoadStoreIgnoresI})
	require.NoError(t, s.LoadROM([]byte{0, 0}))
	defer s.Shutdown()

	s.cpu.i = 0x400
	s.cpu.v[0] = 9
	_, err := s.execute(Instr{Op: OpSaveRegs, X: 0})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x400), s.cpu.i, "quirk keeps I unchanged after FX55")
}

func TestSaveRegsAdvancesIWithoutQuirk(t *testing.T) {
	s := newTestSystem(t, []byte{0, 0})
	s.cpu.i = 0x400
	_, err := s.execute(Instr{Op: OpSaveRegs, X: 2})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x403), s.cpu.i)
}

func TestOddPCRejectedInStrictMode(t *testing.T) {
	s := NewSystem(SystemOptions{CPUFrequencyHz: DefaultFrequency, StrictPC: true})
	require.NoError(t, s.LoadROM([]byte{0, 0}))
	defer s.Shutdown()

	s.cpu.pc = ProgramStart + 1
	err := s.step()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOddPC))
}
