package chip8

import (
	"sync"
	"sync/atomic"

	"github.com/ngrath/chip8vm/internal/port"
)

// Key is one of the 16 CHIP-8 keypad keys (COSMAC VIP 4x4 layout).
type Key uint8

const (
	Key0 Key = 0x0
	Key1 Key = 0x1
	Key2 Key = 0x2
	Key3 Key = 0x3
	Key4 Key = 0x4
	Key5 Key = 0x5
	Key6 Key = 0x6
	Key7 Key = 0x7
	Key8 Key = 0x8
	Key9 Key = 0x9
	KeyA Key = 0xA
	KeyB Key = 0xB
	KeyC Key = 0xC
	KeyD Key = 0xD
	KeyE Key = 0xE
	KeyF Key = 0xF
)

// KeyCount is the number of entries on the keypad.
const KeyCount = 16

// KeyState is whether a key is currently pressed.
type KeyState bool

const (
	KeyUp   KeyState = false
	KeyDown KeyState = true
)

// KeyEvent is a single up/down transition posted by the front-end.
type KeyEvent struct {
	Key   Key
	State KeyState
}

// Keyboard maintains the 16-entry key state table and a single-slot
// await-press latch. Reads (IsDown) are lock-free per-key atomics, matching
// the atomic.Bool keyState array used by senojj-chip8/chip8/cpu.go; the
// await path uses a single-slot channel in place of a condvar.
type Keyboard struct {
	states [KeyCount]atomic.Bool

	mu      sync.Mutex
	waiting bool
	pressed chan Key

	events *port.Chan[KeyEvent]
	stop   *port.ControlPin
}

// NewKeyboard returns a keyboard with every key up.
func NewKeyboard(stop *port.ControlPin) *Keyboard {
	k := &Keyboard{
		pressed: make(chan Key, 1),
		events:  port.NewChan[KeyEvent](),
		stop:    stop,
	}
	go k.dispatch()
	return k
}

// Input implements port.InputPort[KeyEvent]: the front-end posts key
// transitions here.
func (k *Keyboard) Input() chan<- KeyEvent {
	return k.events.Input()
}

func (k *Keyboard) dispatch() {
	in := k.events.Output()
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			k.apply(ev)
		case <-k.stop.Done():
			return
		}
	}
}

// apply updates key state before releasing any waiter, so that IsDown
// always observes the transition that satisfied a pending AwaitPress.
func (k *Keyboard) apply(ev KeyEvent) {
	wasDown := k.states[ev.Key].Swap(bool(ev.State))

	if ev.State == KeyDown && !wasDown {
		k.mu.Lock()
		if k.waiting {
			k.waiting = false
			select {
			case k.pressed <- ev.Key:
			default:
			}
		}
		k.mu.Unlock()
	}
}

// Post is a direct, non-blocking, thread-safe alternative to sending on
// Input() — used by front-ends that already run their own event loop
// goroutine and want to avoid an extra channel hop.
func (k *Keyboard) Post(key Key, state KeyState) {
	k.apply(KeyEvent{Key: key, State: state})
}

// IsDown reports the current state of key.
func (k *Keyboard) IsDown(key Key) bool {
	return k.states[key].Load()
}

// AwaitPress blocks until a key transitions Up->Down or the control pin is
// raised. Only the first waiting call is released per press. It returns
// ErrInterrupted on shutdown.
func (k *Keyboard) AwaitPress() (Key, error) {
	k.mu.Lock()
	k.waiting = true
	k.mu.Unlock()

	select {
	case key := <-k.pressed:
		return key, nil
	case <-k.stop.Done():
		return 0, ErrInterrupted
	}
}
