package beep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ngrath/chip8vm/internal/chip8"
	"github.com/ngrath/chip8vm/internal/port"
)

type fakeSink struct {
	calls chan bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{calls: make(chan bool, 8)}
}

func (f *fakeSink) SetBeeping(on bool) {
	f.calls <- on
}

func TestListenTranslatesStartedAndStopped(t *testing.T) {
	events := port.NewChan[chip8.TimerEvent]()
	sink := newFakeSink()
	stop := port.NewControlPin()
	defer stop.Raise()

	Listen(events, sink, stop)

	events.Input() <- chip8.TimerStarted
	events.Input() <- chip8.TimerStopped

	select {
	case on := <-sink.calls:
		assert.True(t, on)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SetBeeping(true)")
	}
	select {
	case on := <-sink.calls:
		assert.False(t, on)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SetBeeping(false)")
	}
}

func TestListenStopsOnControlPin(t *testing.T) {
	events := port.NewChan[chip8.TimerEvent]()
	sink := newFakeSink()
	stop := port.NewControlPin()

	Listen(events, sink, stop)
	stop.Raise()
	time.Sleep(20 * time.Millisecond) // let Listen observe the pin before we post

	select {
	case events.Input() <- chip8.TimerStarted:
	default:
	}
	select {
	case <-sink.calls:
		t.Fatal("Listen should have exited after stop was raised")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListenExitsWhenEventsChannelCloses(t *testing.T) {
	events := port.NewChan[chip8.TimerEvent]()
	sink := newFakeSink()
	stop := port.NewControlPin()
	defer stop.Raise()

	Listen(events, sink, stop)
	close(events.Input())

	// No SetBeeping call should arrive once the source has closed; Listen
	// should simply return rather than spin on a closed channel.
	select {
	case <-sink.calls:
		t.Fatal("Listen should not call SetBeeping after events closed")
	case <-time.After(100 * time.Millisecond):
	}
}
