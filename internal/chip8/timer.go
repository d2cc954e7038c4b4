package chip8

import (
	"sync/atomic"
	"time"

	"github.com/ngrath/chip8vm/internal/port"
)

// TimerRate is the fixed decrement rate of both CHIP-8 countdown timers.
const TimerRate = 60 // Hz

// TimerEvent is emitted on a CountdownTimer's output port whenever it
// starts or stops counting down.
type TimerEvent int

const (
	// TimerStarted fires when the value is written nonzero from zero.
	TimerStarted TimerEvent = iota
	// TimerStopped fires when the value reaches zero.
	TimerStopped
)

// CountdownTimer is an atomic 8-bit counter decremented at 60 Hz while
// nonzero. Writing a nonzero value from zero emits TimerStarted; reaching
// zero emits TimerStopped. Writing zero cancels any in-flight decrement
// without emitting TimerStarted.
type CountdownTimer struct {
	value   atomic.Uint32 // holds a uint8 range value
	kick    chan struct{}
	events  *port.Chan[TimerEvent]
	stop    *port.ControlPin
	stopped chan struct{}
}

// NewCountdownTimer starts the decrement goroutine and returns a timer at 0.
func NewCountdownTimer() *CountdownTimer {
	t := &CountdownTimer{
		kick:    make(chan struct{}, 1),
		events:  port.NewChan[TimerEvent](),
		stop:    port.NewControlPin(),
		stopped: make(chan struct{}),
	}
	go t.run()
	return t
}

// Output implements port.OutputPort[TimerEvent].
func (t *CountdownTimer) Output() <-chan TimerEvent {
	return t.events.Output()
}

// Value returns the current counter value.
func (t *CountdownTimer) Value() uint8 {
	return uint8(t.value.Load())
}

// Set writes val, starting or cancelling the decrement as appropriate.
func (t *CountdownTimer) Set(val uint8) {
	prev := t.value.Swap(uint32(val))
	if val != 0 && prev == 0 {
		select {
		case t.kick <- struct{}{}:
		default:
		}
		select {
		case t.events.Input() <- TimerStarted:
		default:
		}
	}
}

// Close stops the decrement goroutine. Safe to call more than once.
func (t *CountdownTimer) Close() {
	t.stop.Raise()
	select {
	case t.kick <- struct{}{}:
	default:
	}
	<-t.stopped
}

func (t *CountdownTimer) run() {
	defer close(t.stopped)

	ticker := time.NewTicker(time.Second / TimerRate)
	defer ticker.Stop()

	for {
		// parked: wait for a nonzero write or shutdown.
		select {
		case <-t.kick:
		case <-t.stop.Done():
			return
		}

		running := true
		for running {
			select {
			case <-ticker.C:
				prev := t.value.Load()
				if prev == 0 {
					running = false
					select {
					case t.events.Input() <- TimerStopped:
					default:
					}
					break
				}
				t.value.CompareAndSwap(prev, prev-1)
			case <-t.stop.Done():
				return
			}
		}
	}
}
