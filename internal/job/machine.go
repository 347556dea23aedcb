// Package job holds the canonical state machine for one observed workflow
// instance. All mutation goes through a single validated entry point; the
// transports and the render monitor never touch the record directly.
package job

import (
	"log"
	"sync"
	"time"

	"github.com/reelforge/monitor/internal/model"
	"github.com/reelforge/monitor/internal/sequence"
)

// Observer receives a job snapshot after every applied mutation.
type Observer func(*model.Job)

// Machine applies validated events to one job record and notifies observers.
// It is safe for concurrent use; internally a single mutex enforces the
// single-writer discipline.
type Machine struct {
	mu        sync.Mutex
	job       *model.Job
	guard     *sequence.Guard
	observers []Observer
}

// NewMachine creates a machine for a fresh pending job.
func NewMachine(jobID string, stepTotal, maxRetries int) *Machine {
	return &Machine{
		job:   model.NewJob(jobID, stepTotal, maxRetries),
		guard: sequence.NewGuard(),
	}
}

// Subscribe registers an observer fired on every state change. The observer
// receives a copy of the job and may not block for long; it runs on the
// mutating goroutine.
func (m *Machine) Subscribe(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// LastAppliedSequence returns the guard's high-water mark, so the pull
// transport only asks for events it has not seen.
func (m *Machine) LastAppliedSequence() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guard.LastApplied(m.job.ID)
}

// Snapshot returns a copy of the current job record.
func (m *Machine) Snapshot() *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job.Clone()
}

// Apply routes one typed event through the guard and into the record.
// Rejected and malformed events are dropped without mutating state.
func (m *Machine) Apply(ev model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.Job() != m.job.ID {
		log.Printf("[Job] dropping event for foreign job %s (watching %s)", ev.Job(), m.job.ID)
		return
	}

	var changed bool
	switch e := ev.(type) {
	case *model.StepEvent:
		if m.job.Terminal() {
			return
		}
		// Range-check before the guard so a dropped event does not consume
		// its sequence number.
		if e.StepNumber > m.job.StepTotal {
			log.Printf("[Job] job=%s dropping step %d beyond step total %d", m.job.ID, e.StepNumber, m.job.StepTotal)
			return
		}
		if !m.guard.Accept(e) {
			return
		}
		changed = m.applyStep(e)
	case *model.RenderEvent:
		if m.job.Terminal() {
			return
		}
		changed = m.applyRenderStatus(e.Status, e.VideoURL, e.Error)
	case *model.Heartbeat:
		// Keep-alive only.
		return
	default:
		log.Printf("[Job] dropping event of unknown kind %q", ev.Kind())
		return
	}

	if changed {
		m.notifyLocked()
	}
}

// ApplyRenderStatus folds a render lifecycle observation (from the render
// monitor's poll loop) into the job.
func (m *Machine) ApplyRenderStatus(status model.RenderStatus, videoURL, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job.Terminal() {
		return
	}
	if m.applyRenderStatus(status, videoURL, errMsg) {
		m.notifyLocked()
	}
}

// Fail moves a non-terminal job to failed with a classified cause.
func (m *Machine) Fail(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job.Terminal() {
		return
	}
	m.failLocked(message)
	m.notifyLocked()
}

// Cancel moves a non-terminal job to cancelled.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job.Terminal() {
		return
	}
	m.job.Status = model.JobStatusCancelled
	m.job.ActiveStep = nil
	now := time.Now()
	m.job.CompletedAt = &now
	m.notifyLocked()
}

// Retry resets a terminal job back to pending. Returns false when the job is
// not terminal or the retry budget is spent.
func (m *Machine) Retry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.job.Terminal() {
		return false
	}
	if m.job.RetryCount >= m.job.MaxRetries {
		log.Printf("[Job] job=%s retry refused: budget spent (%d/%d)", m.job.ID, m.job.RetryCount, m.job.MaxRetries)
		return false
	}

	m.job.Status = model.JobStatusPending
	m.job.Progress = 0
	m.job.RetryCount++
	m.job.ActiveStep = nil
	m.job.Error = nil
	m.job.CurrentStep = ""
	m.job.RenderID = ""
	m.job.VideoURL = ""
	m.job.StartedAt = nil
	m.job.CompletedAt = nil
	m.job.StepCompletedAt = make(map[int]time.Time)
	m.guard.Reset(m.job.ID)

	m.notifyLocked()
	return true
}

func (m *Machine) applyStep(e *model.StepEvent) bool {
	if m.job.Status == model.JobStatusPending {
		m.job.Status = model.JobStatusProcessing
		now := time.Now()
		m.job.StartedAt = &now
	}

	switch e.Phase {
	case model.StepPhaseStarted:
		n := e.StepNumber
		m.job.ActiveStep = &n
		m.job.CurrentStep = e.StepName
		m.raiseProgress(stepProgress(e, m.job.StepTotal))

	case model.StepPhaseCompleted:
		if m.job.ActiveStep != nil && *m.job.ActiveStep == e.StepNumber {
			m.job.ActiveStep = nil
		}
		m.job.StepCompletedAt[e.StepNumber] = time.Now()
		m.raiseProgress(e.StepNumber * 100 / m.job.StepTotal)

		if e.StepNumber == m.job.StepTotal && e.Details.RenderID != "" {
			m.job.RenderID = e.Details.RenderID
			m.job.Status = model.JobStatusRendering
		}
	}
	return true
}

// stepProgress picks the backend-supplied progress when present, falling back
// to the step-derived value otherwise.
func stepProgress(e *model.StepEvent, stepTotal int) int {
	if e.Details.Progress > 0 {
		return e.Details.Progress
	}
	return (e.StepNumber - 1) * 100 / stepTotal
}

func (m *Machine) applyRenderStatus(status model.RenderStatus, videoURL, errMsg string) bool {
	switch status {
	case model.RenderStatusSucceeded:
		// Completion requires the artifact; a success signal without a URL is
		// treated as still rendering.
		if videoURL == "" {
			return false
		}
		m.job.VideoURL = videoURL
		m.job.Status = model.JobStatusCompleted
		m.job.Progress = 100
		m.job.ActiveStep = nil
		m.job.CurrentStep = ""
		now := time.Now()
		m.job.CompletedAt = &now
		return true

	case model.RenderStatusFailed, model.RenderStatusError:
		if errMsg == "" {
			errMsg = "render pipeline reported failure"
		}
		m.failLocked(errMsg)
		return true

	default:
		changed := false
		if m.job.Status != model.JobStatusRendering {
			m.job.Status = model.JobStatusRendering
			changed = true
		}
		if m.raiseProgress(renderProgress(status)) {
			changed = true
		}
		return changed
	}
}

// renderProgress maps a non-terminal render status into the 85-95 sub-range.
func renderProgress(status model.RenderStatus) int {
	switch status {
	case model.RenderStatusPlanned, model.RenderStatusQueued:
		return 85
	case model.RenderStatusWaiting:
		return 87
	case model.RenderStatusTranscribing:
		return 90
	case model.RenderStatusProcessing:
		return 92
	case model.RenderStatusRendering:
		return 95
	}
	return 85
}

func (m *Machine) failLocked(message string) {
	m.job.Status = model.JobStatusFailed
	m.job.Error = model.NewJobError(message)
	m.job.ActiveStep = nil
	now := time.Now()
	m.job.CompletedAt = &now
}

func (m *Machine) raiseProgress(p int) bool {
	if p > 100 {
		p = 100
	}
	if p > m.job.Progress {
		m.job.Progress = p
		return true
	}
	return false
}

func (m *Machine) notifyLocked() {
	snapshot := m.job.Clone()
	for _, fn := range m.observers {
		fn(snapshot)
	}
}
