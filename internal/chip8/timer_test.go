package chip8

import (
	"testing"
	"time"
)

func TestCountdownTimerDecrementsAtTimerRate(t *testing.T) {
	tm := NewCountdownTimer()
	defer tm.Close()

	tm.Set(10)
	time.Sleep(6 * time.Second / TimerRate)

	got := tm.Value()
	if got == 10 || got == 0 {
		t.Fatalf("expected partial decrement after ~6 ticks, got %d", got)
	}
}

func TestCountdownTimerReachesZeroAndStops(t *testing.T) {
	tm := NewCountdownTimer()
	defer tm.Close()

	tm.Set(2)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-tm.Output():
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("timer never reached zero")
		}
		if tm.Value() == 0 {
			return
		}
	}
}

func TestCountdownTimerSetZeroCancelsWithoutStartedEvent(t *testing.T) {
	tm := NewCountdownTimer()
	defer tm.Close()

	tm.Set(0)
	select {
	case ev := <-tm.Output():
		t.Fatalf("unexpected event %v from a zero write", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownTimerStartEmitsStarted(t *testing.T) {
	tm := NewCountdownTimer()
	defer tm.Close()

	tm.Set(5)
	select {
	case ev := <-tm.Output():
		if ev != TimerStarted {
			t.Fatalf("expected TimerStarted, got %v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected TimerStarted event")
	}
}
