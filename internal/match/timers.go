package match

import (
	"time"
)

// deadlineTimer tracks at most one pending timer keyed off a deadline
// stored in game state. Reconciliation cancels the timer when the
// deadline disappears and reschedules when it moves. Only touched from
// the match loop goroutine.
type deadlineTimer struct {
	fire      func()
	timer     *time.Timer
	scheduled time.Time
}

func newDeadlineTimer(fire func()) *deadlineTimer {
	return &deadlineTimer{fire: fire}
}

// reconcile brings the pending timer in line with the deadline currently
// stored in state.
func (d *deadlineTimer) reconcile(deadline *time.Time) {
	if deadline == nil {
		d.stop()
		return
	}
	if d.timer != nil && d.scheduled.Equal(*deadline) {
		return
	}
	d.stop()
	d.scheduled = *deadline
	delay := time.Until(*deadline)
	if delay < 0 {
		delay = 0
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

func (d *deadlineTimer) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.scheduled = time.Time{}
	}
}

// reconcileTimers runs after every processed command: state deadlines are
// the source of truth, the pending timers follow them.
func (m *Match) reconcileTimers() {
	m.mulliganTimer.reconcile(m.state.Timers.MulliganEndsAt)
	m.turnTimer.reconcile(m.state.Timers.TurnEndsAt)
}
