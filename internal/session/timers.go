package session

import (
	"sync"
	"time"

	"github.com/karalama/karalama/internal/dependencies/clock"
)

// timerSet schedules the round and guess countdowns for one session.
// Deadlines come from the room row; the fire callbacks only enqueue a tick
// onto the session inbox, never touch state directly. Rescheduling with the
// same deadline is a no-op so repeated change notifications do not restart
// a countdown.
type timerSet struct {
	clock clock.Clock

	mu            sync.Mutex
	round         *time.Timer
	roundDeadline time.Time
	guess         *time.Timer
	guessDeadline time.Time
	stopped       bool
}

func newTimerSet(clk clock.Clock) *timerSet {
	return &timerSet{clock: clk}
}

// ScheduleRound arms the round countdown for the deadline; a zero deadline
// disarms it
func (t *timerSet) ScheduleRound(deadline time.Time, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || deadline.Equal(t.roundDeadline) {
		return
	}
	if t.round != nil {
		t.round.Stop()
		t.round = nil
	}
	t.roundDeadline = deadline
	if deadline.IsZero() {
		return
	}
	t.round = time.AfterFunc(t.wait(deadline), fire)
}

// ScheduleGuess arms the guess countdown; a zero deadline disarms it
func (t *timerSet) ScheduleGuess(deadline time.Time, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || deadline.Equal(t.guessDeadline) {
		return
	}
	if t.guess != nil {
		t.guess.Stop()
		t.guess = nil
	}
	t.guessDeadline = deadline
	if deadline.IsZero() {
		return
	}
	t.guess = time.AfterFunc(t.wait(deadline), fire)
}

func (t *timerSet) wait(deadline time.Time) time.Duration {
	d := t.clock.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}

// StopAll disarms both timers; the set refuses any further scheduling
func (t *timerSet) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.round != nil {
		t.round.Stop()
		t.round = nil
	}
	if t.guess != nil {
		t.guess.Stop()
		t.guess = nil
	}
}
