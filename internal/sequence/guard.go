// Package sequence is the single ordering authority between the push and pull
// transports. Both feed the same guard, so a pull tick re-delivering an event
// the push channel already advanced past can never regress the timeline.
package sequence

import (
	"log"

	"github.com/reelforge/monitor/internal/model"
)

// Guard tracks the last applied sequence per job and rejects anything stale,
// duplicate, or unvalidated. Rejection is side-effect-free.
type Guard struct {
	lastApplied map[string]int64
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{lastApplied: make(map[string]int64)}
}

// Accept reports whether a step event may be applied. On acceptance the
// guard's high-water mark for that job advances; events at or below the mark
// are discarded unconditionally, regardless of phase.
func (g *Guard) Accept(ev *model.StepEvent) bool {
	if !ev.Validated {
		log.Printf("[Guard] job=%s seq=%d rejected: not validated upstream", ev.JobID, ev.Sequence)
		return false
	}

	last, seen := g.lastApplied[ev.JobID]
	if seen && ev.Sequence <= last {
		log.Printf("[Guard] job=%s seq=%d rejected: stale (last applied %d)", ev.JobID, ev.Sequence, last)
		return false
	}

	g.lastApplied[ev.JobID] = ev.Sequence
	return true
}

// LastApplied returns the current high-water mark for a job, or 0 if none.
func (g *Guard) LastApplied(jobID string) int64 {
	return g.lastApplied[jobID]
}

// Reset clears the high-water mark for a job. Called on retry, when the
// workflow restarts its sequence counter.
func (g *Guard) Reset(jobID string) {
	delete(g.lastApplied, jobID)
}
