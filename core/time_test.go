package core_test

import (
	"testing"
	"time"

	"github.com/berylllium/lise/core"
)

func TestNewTime(t *testing.T) {
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 60, EventPollDelay: 10})
	if tm.Fps() != 60 {
		t.Errorf("expected 60 fps, got %d", tm.Fps())
	}
	if tm.FpsTicker() == nil || tm.EventTicker() == nil {
		t.Error("tickers not initialised")
	}
}

func TestNewTimeUncapped(t *testing.T) {
	// A zero setting means no frame cap, the tickers must still run.
	tm := core.NewTime(core.TimeConfiguration{})
	if tm.FpsTicker() == nil || tm.EventTicker() == nil {
		t.Error("tickers not initialised")
	}
}

func TestDelta(t *testing.T) {
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 60, EventPollDelay: 10})
	if d := tm.Delta(); d != 0 {
		t.Errorf("first delta should be zero, got %v", d)
	}

	time.Sleep(time.Millisecond)
	if d := tm.Delta(); d <= 0 {
		t.Errorf("expected elapsed time, got %v", d)
	}
}
