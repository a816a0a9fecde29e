package consensus

import (
	"sync"
	"time"
)

// RoundTimer fires on a channel each time the round timeout elapses
// without the engine having reached COMMIT, mirroring the teacher's
// pacemaker.Pacemaker: a reschedulable timer whose firing drives a
// view/round change rather than the caller polling a clock. Reshaped
// from the teacher's TimeoutController's repeated per-view timer into
// a single per-round timer, since §4.D has no cross-shard view-change
// coordination to replicate.
type RoundTimer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
	fired    chan time.Time
}

// NewRoundTimer returns a stopped timer; call Reset to arm it for the
// start of a round.
func NewRoundTimer(duration time.Duration) *RoundTimer {
	return &RoundTimer{duration: duration, fired: make(chan time.Time, 1)}
}

// Reset (re)arms the timer for a fresh round, discarding any pending
// fire from a previous round (§4.D "on each new proposal the timer
// restarts").
func (t *RoundTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	select {
	case <-t.fired:
	default:
	}
	t.timer = time.AfterFunc(t.duration, func() {
		select {
		case t.fired <- time.Now():
		default:
		}
	})
}

// Stop disarms the timer, used when a round commits before the
// timeout elapses.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

// C is the channel the caller selects on to learn of a round timeout.
func (t *RoundTimer) C() <-chan time.Time { return t.fired }
