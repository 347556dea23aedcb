// Package session scopes one observed job: one canonical record, one
// transport manager, one render monitor, torn down together. Nothing reaches
// into ambient globals; everything is injected.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/reelforge/monitor/internal/client"
	"github.com/reelforge/monitor/internal/config"
	"github.com/reelforge/monitor/internal/job"
	"github.com/reelforge/monitor/internal/logs"
	"github.com/reelforge/monitor/internal/model"
	"github.com/reelforge/monitor/internal/render"
	"github.com/reelforge/monitor/internal/transport"
	"github.com/reelforge/monitor/internal/view"
)

// LogSource fetches the log entries of one job from one store.
type LogSource interface {
	Fetch(ctx context.Context, jobID string) ([]model.LogEntry, error)
}

// Deps carries everything a session needs. All fields except the render
// querier and log sources are required.
type Deps struct {
	Workflow *client.WorkflowClient
	Render   client.RenderStatusQuerier
	Durable  LogSource
	Live     LogSource
	Validate *validator.Validate
	Cfg      *config.Config

	// OnView is fired with a fresh view model after every state change.
	OnView func(jobID string, vm model.ViewModel)
	// OnAnnounce is fired once per distinct render status observation.
	OnAnnounce func(jobID string, status model.RenderStatus, message string)
}

// Session is the observing context for one job id.
type Session struct {
	id      string
	jobID   string
	deps    Deps
	machine *job.Machine
	manager *transport.Manager
	monitor *render.Monitor

	ctx    context.Context
	cancel context.CancelFunc

	logMu    sync.Mutex
	lastLogs []model.LogEntry
}

// New builds a session and starts its transports. The push channel is
// preferred; the pull loop takes over if push cannot be kept alive.
func New(parent context.Context, jobID string, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		id:      uuid.New().String(),
		jobID:   jobID,
		deps:    deps,
		machine: job.NewMachine(jobID, deps.Cfg.Job.StepTotal, deps.Cfg.Job.MaxRetries),
		ctx:     ctx,
		cancel:  cancel,
	}
	log.Printf("[Session] %s watching job %s", s.id, jobID)

	if deps.Render != nil {
		announce := func(status model.RenderStatus, message string) {
			log.Printf("[Session] job=%s render %s: %s", jobID, status, message)
			if deps.OnAnnounce != nil {
				deps.OnAnnounce(jobID, status, message)
			}
		}
		s.monitor = render.NewMonitor(
			deps.Render,
			s.machine,
			time.Duration(deps.Cfg.Monitor.IntervalSeconds)*time.Second,
			deps.Cfg.Monitor.MaxAttempts,
			announce,
		)
	}

	streamURL := ""
	if deps.Workflow.IsConfigured() {
		streamURL = deps.Workflow.StreamURL(jobID)
	}
	s.manager = transport.NewManager(
		jobID,
		streamURL,
		deps.Workflow.APIKey(),
		deps.Workflow,
		deps.Cfg.Transport,
		s.ingest,
		func() model.JobStatus { return s.machine.Snapshot().Status },
		s.machine.LastAppliedSequence,
	)

	s.machine.Subscribe(s.onChange)
	s.manager.Start(ctx)
	return s
}

// ingest is the single entry point for both transports: parse, validate,
// apply. Malformed payloads are dropped at warning level and never raise.
func (s *Session) ingest(raw []byte) {
	ev, err := model.ParseEvent(raw, s.deps.Validate)
	if err != nil {
		log.Printf("[Session] job=%s dropping malformed event: %v", s.jobID, err)
		return
	}
	s.machine.Apply(ev)
}

// onChange runs on every applied mutation. It activates the render monitor
// on hand-off, pushes a fresh view model to observers, and tears the timers
// down once the artifact is in hand.
func (s *Session) onChange(snapshot *model.Job) {
	if s.monitor != nil && snapshot.RenderID != "" && snapshot.VideoURL == "" && !snapshot.Terminal() {
		s.monitor.Start(s.ctx, snapshot.RenderID)
	}

	if s.deps.OnView != nil {
		s.deps.OnView(s.jobID, s.project(snapshot))
	}

	if snapshot.Status == model.JobStatusCompleted && snapshot.VideoURL != "" {
		// Close waits on transport goroutines and onChange may be running on
		// one of them, so tear down off to the side.
		go s.stopTimers()
	}
}

func (s *Session) project(snapshot *model.Job) model.ViewModel {
	s.logMu.Lock()
	cached := s.lastLogs
	s.logMu.Unlock()

	in := view.Input{Job: snapshot, Logs: cached}
	if s.monitor != nil {
		in.RenderStatus = s.monitor.Status()
		in.ManualCheck = s.monitor.ManualCheckRequired()
	}
	return view.Project(in, time.Now())
}

// View fetches both log stores, reconciles them, and returns a fresh view
// model. Each store is fetched independently; losing one degrades to the
// other instead of blocking the timeline.
func (s *Session) View(ctx context.Context) model.ViewModel {
	var durable, live []model.LogEntry
	if s.deps.Durable != nil {
		entries, err := s.deps.Durable.Fetch(ctx, s.jobID)
		if err != nil {
			log.Printf("[Session] job=%s durable log store unavailable: %v", s.jobID, err)
		} else {
			durable = entries
		}
	}
	if s.deps.Live != nil {
		entries, err := s.deps.Live.Fetch(ctx, s.jobID)
		if err != nil {
			log.Printf("[Session] job=%s live log store unavailable: %v", s.jobID, err)
		} else {
			live = entries
		}
	}
	s.logMu.Lock()
	s.lastLogs = logs.FilterEssential(logs.Merge(durable, live))
	s.logMu.Unlock()

	return s.project(s.machine.Snapshot())
}

// ID returns the session's identity, for diagnostics.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the canonical job record.
func (s *Session) Snapshot() *model.Job {
	return s.machine.Snapshot()
}

// ConnectionState returns the transport health snapshot.
func (s *Session) ConnectionState() model.ConnectionState {
	return s.manager.State()
}

// SetVisibility throttles the pull loop while the observer is backgrounded.
func (s *Session) SetVisibility(visible bool) {
	s.manager.SetVisibility(visible)
}

// Retry resets a terminal job to pending and restarts the transports if they
// were already torn down. Returns false if the job is not terminal or the
// retry budget is spent.
func (s *Session) Retry() bool {
	if !s.machine.Retry() {
		return false
	}
	if s.monitor != nil {
		s.monitor.Reset()
	}
	if s.ctx.Err() == nil {
		s.manager.Start(s.ctx)
	}
	return true
}

// Cancel marks the observed job cancelled and stops its timers.
func (s *Session) Cancel() {
	s.machine.Cancel()
	go s.stopTimers()
}

// Close tears the session down: no orphaned timers or connections survive.
func (s *Session) Close() {
	s.cancel()
	s.stopTimers()
}

func (s *Session) stopTimers() {
	s.manager.Close()
	if s.monitor != nil {
		s.monitor.Stop()
	}
}
