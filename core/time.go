package core

import (
	"time"
)

// Time paces the two engine loops. The fps ticker drives frame
// submission and the event ticker drives window event polling. It also
// keeps the frame clock, the wall time between consecutive frames.
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker

	lastFrame time.Time
}

// NewTime builds the tickers from the configured rates. A frame rate
// of zero uncaps the frame loop, a poll delay of zero falls back to
// one millisecond so the ticker stays valid.
func NewTime(cfg TimeConfiguration) Time {
	frameInterval := time.Nanosecond
	if cfg.FramesPerSecond != 0 {
		frameInterval = time.Second / time.Duration(cfg.FramesPerSecond)
	}

	pollInterval := time.Duration(cfg.EventPollDelay) * time.Millisecond
	if pollInterval == 0 {
		pollInterval = time.Millisecond
	}

	return Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(frameInterval),
		eventPollDelay: cfg.EventPollDelay,
		eventTicker:    time.NewTicker(pollInterval),
	}
}

// Fps reports the configured frame rate cap, zero when uncapped.
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker exposes the ticker pacing the frame loop.
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker exposes the ticker pacing the event poll loop.
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Delta returns the wall time elapsed since the previous call, zero on
// the first. The frame loop calls it once per submitted frame.
func (t *Time) Delta() time.Duration {
	now := time.Now()
	if t.lastFrame.IsZero() {
		t.lastFrame = now
		return 0
	}

	delta := now.Sub(t.lastFrame)
	t.lastFrame = now
	return delta
}
