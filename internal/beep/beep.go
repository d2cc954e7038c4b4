// Package beep adapts the sound timer's Started/Stopped events onto an
// audio device's pause/resume control, the same conversion
// dustinbowers-chip8emu's main loop did inline by calling ui.Beep directly
// from EmulateCycle — here it runs as its own goroutine off the timer's
// output port instead, so the audio device never blocks the interpreter.
package beep

import (
	"github.com/ngrath/chip8vm/internal/chip8"
	"github.com/ngrath/chip8vm/internal/port"
)

// Sink is anything that can be told to start or stop sounding; ui.Frontend
// satisfies this via SetBeeping.
type Sink interface {
	SetBeeping(on bool)
}

// Listen runs the conversion loop: it receives TimerEvent values from
// events and calls sink.SetBeeping accordingly, until events closes or stop
// is raised. This is the "mapping goroutine" stand-in for a generic
// From-conversion on Connect, since TimerEvent and bool are different types.
func Listen(events port.OutputPort[chip8.TimerEvent], sink Sink, stop *port.ControlPin) {
	go func() {
		in := events.Output()
		for {
			select {
			case ev, ok := <-in:
				if !ok {
					return
				}
				switch ev {
				case chip8.TimerStarted:
					sink.SetBeeping(true)
				case chip8.TimerStopped:
					sink.SetBeeping(false)
				}
			case <-stop.Done():
				return
			}
		}
	}()
}
