// Package typewriter reveals text one rune per interval and hands the
// completed line to a sink exactly once.
package typewriter

import (
	"time"

	"sats-terminal/internal/state"
)

// Sink receives every completed line. Partial renders never reach it.
type Sink func(state.Message)

type playback struct {
	text       []rune
	sender     state.Sender
	started    time.Time
	onComplete func(now time.Time)
}

// Typewriter plays at most one line at a time. It owns no timers: the
// caller drives it with Advance on its own clock.
type Typewriter struct {
	interval time.Duration
	sink     Sink
	cur      *playback
}

func New(interval time.Duration, sink Sink) *Typewriter {
	return &Typewriter{interval: interval, sink: sink}
}

// Play starts a new line. An active playback is dropped without emitting
// its message or calling its callback. With instant the line completes
// before Play returns.
func (t *Typewriter) Play(text string, sender state.Sender, now time.Time, instant bool, onComplete func(now time.Time)) {
	t.cur = &playback{
		text:       []rune(text),
		sender:     sender,
		started:    now,
		onComplete: onComplete,
	}
	if instant {
		t.finish(now)
	}
}

// Advance completes the active line once its full text is revealed.
// It reports whether a line completed.
func (t *Typewriter) Advance(now time.Time) bool {
	if t.cur == nil || t.revealed(now) < len(t.cur.text) {
		return false
	}
	t.finish(now)
	return true
}

func (t *Typewriter) finish(now time.Time) {
	p := t.cur
	t.cur = nil
	if t.sink != nil {
		t.sink(state.Message{Text: string(p.text), Sender: p.sender})
	}
	if p.onComplete != nil {
		p.onComplete(now)
	}
}

func (t *Typewriter) revealed(now time.Time) int {
	if t.interval <= 0 {
		return len(t.cur.text)
	}
	elapsed := now.Sub(t.cur.started)
	if elapsed < 0 {
		return 0
	}
	return min(int(elapsed/t.interval), len(t.cur.text))
}

// Visible returns the partially revealed text of the active line.
func (t *Typewriter) Visible(now time.Time) (string, state.Sender, bool) {
	if t.cur == nil {
		return "", "", false
	}
	return string(t.cur.text[:t.revealed(now)]), t.cur.sender, true
}

// Active reports whether a line is playing.
func (t *Typewriter) Active() bool { return t.cur != nil }

// Stop drops the active line. Nothing is emitted afterwards.
func (t *Typewriter) Stop() { t.cur = nil }
