package chip8

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/ngrath/chip8vm/internal/port"
)

// DefaultFrequency is the interpreter's default fetch/decode/execute rate,
// used whenever a configured frequency falls outside (0, MaxFrequency).
const DefaultFrequency = 500

// MaxFrequency is the upper bound on configurable CPU frequency: values
// outside (0, 5000) revert to DefaultFrequency.
const MaxFrequency = 5000

// StackSize is the maximum call-stack depth; CALL beyond this overflows.
const StackSize = 16

// Quirks toggles historical interpreter variants, all off by default and
// freely combinable.
type Quirks uint8

const (
	// LoadStoreIgnoresI: FX55/FX65 do not modify I.
	LoadStoreIgnoresI Quirks = 1 << iota
	// ShiftReadsVx: 8XY6/8XYE take their source from Vx instead of Vy.
	ShiftReadsVx
	// DrawWrapsPixels: DRW wraps pixels past the screen edge instead of
	// clipping them.
	DrawWrapsPixels
)

func (q Quirks) has(f Quirks) bool { return q&f != 0 }

// SystemOptions configures a System before construction.
type SystemOptions struct {
	CPUFrequencyHz float64
	Quirks         Quirks
	StrictPC       bool
	Logger         *log.Logger
}

// NewSystemOptions returns options populated with defaults.
func NewSystemOptions() SystemOptions {
	return SystemOptions{CPUFrequencyHz: DefaultFrequency}
}

type cpu struct {
	pc     uint16
	prevPC uint16
	v      [16]byte
	i      uint16
	stack  []uint16
}

// System owns memory, CPU registers, the display, and references to the
// two timers and the keyboard — the orchestrator that ties them together.
type System struct {
	cpu     cpu
	memory  *Memory
	display *Display
	keys    *Keyboard

	delayTimer *CountdownTimer
	soundTimer *CountdownTimer

	opts SystemOptions
	stop *port.ControlPin
	rng  *rand.Rand

	logger *log.Logger
}

// NewSystem constructs a System ready to load a ROM and run. Memory, CPU,
// display, and timers are created here and live until the returned System
// is discarded; Shutdown releases the worker goroutines.
func NewSystem(opts SystemOptions) *System {
	if opts.CPUFrequencyHz <= 0 || opts.CPUFrequencyHz >= MaxFrequency {
		opts.CPUFrequencyHz = DefaultFrequency
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "", 0)
	}

	stop := port.NewControlPin()
	return &System{
		cpu:        cpu{pc: ProgramStart, prevPC: ProgramStart, stack: make([]uint16, 0, StackSize)},
		memory:     NewMemory(),
		display:    NewDisplay(),
		keys:       NewKeyboard(stop),
		delayTimer: NewCountdownTimer(),
		soundTimer: NewCountdownTimer(),
		opts:       opts,
		stop:       stop,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     logger,
	}
}

// LoadROM installs image at 0x200.
func (s *System) LoadROM(image []byte) error {
	return s.memory.LoadROM(image)
}

// Display returns the pixel buffer for UI front-ends to snapshot-read.
func (s *System) Display() *Display { return s.display }

// Keyboard returns the key-state table and await-press latch for front-ends
// to post transitions into.
func (s *System) Keyboard() *Keyboard { return s.keys }

// SoundTimer exposes the sound timer's output port so a beeper can connect
// to Started/Stopped events.
func (s *System) SoundTimer() *CountdownTimer { return s.soundTimer }

// Shutdown raises the system's control pin, releasing the interpreter loop,
// both timer goroutines, and any pending AwaitPress. Safe to call more than
// once or concurrently with Run.
func (s *System) Shutdown() {
	s.stop.Raise()
	s.delayTimer.Close()
	s.soundTimer.Close()
}

// Run executes the fetch/decode/execute loop at the configured frequency
// until ctx is cancelled, the control pin is raised, or an instruction
// fails. The returned error is nil only when ctx or the pin ended the
// loop; any other error aborts the run immediately between instructions,
// never mid-instruction.
func (s *System) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.opts.CPUFrequencyHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop.Done():
			return nil
		case <-ticker.C:
			if err := s.step(); err != nil {
				return err
			}
		}
	}
}

// step fetches, decodes, and executes exactly one instruction.
func (s *System) step() error {
	if s.opts.StrictPC && s.cpu.pc%2 != 0 {
		return fmt.Errorf("system: pc=0x%03X: %w", s.cpu.pc, ErrOddPC)
	}

	fetchPC := s.cpu.pc
	word, err := s.memory.ReadWord(fetchPC)
	if err != nil {
		return fmt.Errorf("system: fetch at pc=0x%03X: %w", fetchPC, err)
	}

	instr, err := Decode(word)
	if err != nil {
		return fmt.Errorf("system: pc=0x%03X: %w", fetchPC, err)
	}

	jumped, err := s.execute(instr)
	if err != nil {
		return err
	}
	if !jumped {
		s.cpu.pc += 2
	}
	s.cpu.prevPC = fetchPC
	return nil
}

// execute runs instr, returning true if it already assigned PC (JP, CALL,
// JP V0) so step should not advance it further. RET returns false: CALL
// pushes its own address, so RET restores that address and step's usual
// advance moves past the CALL.
func (s *System) execute(in Instr) (jumped bool, err error) {
	switch in.Op {
	case OpClearDisplay:
		s.display.Clear()

	case OpReturn:
		if len(s.cpu.stack) == 0 {
			return false, fmt.Errorf("system: RET: %w", ErrStackUnderflow)
		}
		top := len(s.cpu.stack) - 1
		s.cpu.pc = s.cpu.stack[top]
		s.cpu.stack = s.cpu.stack[:top]

	case OpJump:
		// A jump back to the address the previous instruction was fetched
		// from (prevPC is seeded to ProgramStart, so the very first
		// instruction counts too) re-enters the same one- or two-instruction
		// span forever; treat it as a halt rather than spin the loop.
		if in.NNN == s.cpu.prevPC {
			s.cpu.pc = in.NNN
			return false, fmt.Errorf("system: JP 0x%03X at pc=0x%03X: %w", in.NNN, s.cpu.pc, ErrSelfJump)
		}
		s.cpu.pc = in.NNN
		jumped = true

	case OpCall:
		if len(s.cpu.stack) >= StackSize {
			return false, fmt.Errorf("system: CALL 0x%03X: %w", in.NNN, ErrStackOverflow)
		}
		s.cpu.stack = append(s.cpu.stack, s.cpu.pc)
		s.cpu.pc = in.NNN
		jumped = true

	case OpSkipEqImm:
		if s.cpu.v[in.X] == in.KK {
			s.cpu.pc += 2
		}

	case OpSkipNotEqImm:
		if s.cpu.v[in.X] != in.KK {
			s.cpu.pc += 2
		}

	case OpSkipEqReg:
		if s.cpu.v[in.X] == s.cpu.v[in.Y] {
			s.cpu.pc += 2
		}

	case OpLoadImm:
		s.cpu.v[in.X] = in.KK

	case OpAddImm:
		// 7XKK does not touch VF; this is intentional.
		s.cpu.v[in.X] += in.KK

	case OpLoadReg:
		s.cpu.v[in.X] = s.cpu.v[in.Y]

	case OpOrReg:
		s.cpu.v[in.X] |= s.cpu.v[in.Y]

	case OpAndReg:
		s.cpu.v[in.X] &= s.cpu.v[in.Y]

	case OpXorReg:
		s.cpu.v[in.X] ^= s.cpu.v[in.Y]

	case OpAddReg:
		sum := uint16(s.cpu.v[in.X]) + uint16(s.cpu.v[in.Y])
		s.cpu.v[in.X] = byte(sum)
		s.cpu.v[VF] = flag(sum > 0xFF)

	case OpSubReg:
		noBorrow := s.cpu.v[in.X] >= s.cpu.v[in.Y]
		s.cpu.v[in.X] = s.cpu.v[in.X] - s.cpu.v[in.Y]
		s.cpu.v[VF] = flag(noBorrow)

	case OpShiftRight:
		src := in.Y
		if s.opts.Quirks.has(ShiftReadsVx) {
			src = in.X
		}
		lsb := s.cpu.v[src] & 1
		s.cpu.v[in.X] = s.cpu.v[src] >> 1
		s.cpu.v[VF] = lsb

	case OpSubN:
		noBorrow := s.cpu.v[in.Y] >= s.cpu.v[in.X]
		s.cpu.v[in.X] = s.cpu.v[in.Y] - s.cpu.v[in.X]
		s.cpu.v[VF] = flag(noBorrow)

	case OpShiftLeft:
		src := in.Y
		if s.opts.Quirks.has(ShiftReadsVx) {
			src = in.X
		}
		msb := (s.cpu.v[src] >> 7) & 1
		s.cpu.v[in.X] = s.cpu.v[src] << 1
		s.cpu.v[VF] = msb

	case OpSkipNotEqReg:
		if s.cpu.v[in.X] != s.cpu.v[in.Y] {
			s.cpu.pc += 2
		}

	case OpLoadI:
		s.cpu.i = in.NNN

	case OpJumpV0:
		s.cpu.pc = in.NNN + uint16(s.cpu.v[0])
		jumped = true

	case OpRandom:
		s.cpu.v[in.X] = byte(s.rng.Intn(256)) & in.KK

	case OpDraw:
		bytes, rerr := s.memory.ReadSpan(s.cpu.i, int(in.N))
		if rerr != nil {
			return false, fmt.Errorf("system: DRW read at i=0x%03X n=%d: %w", s.cpu.i, in.N, rerr)
		}
		var collision bool
		if s.opts.Quirks.has(DrawWrapsPixels) {
			collision = s.display.BlitWrapped(s.cpu.v[in.X], s.cpu.v[in.Y], bytes)
		} else {
			collision = s.display.BlitClipped(s.cpu.v[in.X], s.cpu.v[in.Y], bytes)
		}
		s.cpu.v[VF] = flag(collision)

	case OpSkipKeyPressed:
		if s.keys.IsDown(Key(s.cpu.v[in.X] & 0xF)) {
			s.cpu.pc += 2
		}

	case OpSkipKeyNotPressed:
		if !s.keys.IsDown(Key(s.cpu.v[in.X] & 0xF)) {
			s.cpu.pc += 2
		}

	case OpLoadDelayTimer:
		s.cpu.v[in.X] = s.delayTimer.Value()

	case OpWaitKeyPress:
		key, werr := s.keys.AwaitPress()
		if werr != nil {
			return false, werr
		}
		s.cpu.v[in.X] = byte(key)

	case OpSetDelayTimer:
		s.delayTimer.Set(s.cpu.v[in.X])

	case OpSetSoundTimer:
		s.soundTimer.Set(s.cpu.v[in.X])

	case OpAddI:
		s.cpu.i += uint16(s.cpu.v[in.X])

	case OpLoadSprite:
		s.cpu.i = FontBaseAddress + uint16(s.cpu.v[in.X])*FontGlyphSize

	case OpLoadBCD:
		v := s.cpu.v[in.X]
		digits := []byte{v / 100, (v / 10) % 10, v % 10}
		if werr := s.memory.WriteSpanChecked(s.cpu.i, digits); werr != nil {
			return false, fmt.Errorf("system: LD B, V%X at i=0x%03X: %w", in.X, s.cpu.i, werr)
		}

	case OpSaveRegs:
		if werr := s.memory.WriteSpanChecked(s.cpu.i, s.cpu.v[:int(in.X)+1]); werr != nil {
			return false, fmt.Errorf("system: LD [I], V%X at i=0x%03X: %w", in.X, s.cpu.i, werr)
		}
		if !s.opts.Quirks.has(LoadStoreIgnoresI) {
			s.cpu.i += uint16(in.X) + 1
		}

	case OpLoadRegs:
		bytes, rerr := s.memory.ReadSpan(s.cpu.i, int(in.X)+1)
		if rerr != nil {
			return false, fmt.Errorf("system: FX65 read at i=0x%03X x=%d: %w", s.cpu.i, in.X, rerr)
		}
		copy(s.cpu.v[:int(in.X)+1], bytes)
		if !s.opts.Quirks.has(LoadStoreIgnoresI) {
			s.cpu.i += uint16(in.X) + 1
		}

	default:
		return false, fmt.Errorf("system: unreachable opcode %v: %w", in.Op, ErrUnknownOpcode)
	}

	return jumped, nil
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}
