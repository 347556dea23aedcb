// Package render tracks the external compositing pipeline once the primary
// workflow hands off a render id.
package render

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/reelforge/monitor/internal/client"
	"github.com/reelforge/monitor/internal/job"
	"github.com/reelforge/monitor/internal/model"
)

// Announcer receives one user-visible notification per distinct render status.
type Announcer func(status model.RenderStatus, message string)

// Monitor polls the render-status endpoint on a fixed interval with a bounded
// attempt budget and folds observations into the job machine. Re-polling the
// same non-terminal status never produces a duplicate announcement.
type Monitor struct {
	querier  client.RenderStatusQuerier
	machine  *job.Machine
	interval time.Duration
	budget   int
	announce Announcer

	mu          sync.Mutex
	renderID    string
	status      model.RenderStatus
	announced   map[model.RenderStatus]struct{}
	manualCheck bool
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewMonitor creates an inactive monitor. Start activates it.
func NewMonitor(querier client.RenderStatusQuerier, machine *job.Machine, interval time.Duration, budget int, announce Announcer) *Monitor {
	if announce == nil {
		announce = func(model.RenderStatus, string) {}
	}
	return &Monitor{
		querier:   querier,
		machine:   machine,
		interval:  interval,
		budget:    budget,
		announce:  announce,
		announced: make(map[model.RenderStatus]struct{}),
	}
}

// Start begins polling for the given render id. A second Start while running
// is a no-op. Once the attempt budget is exhausted the same render id stays
// in the manual-check state; only Reset or a different render id starts the
// loop again.
func (m *Monitor) Start(ctx context.Context, renderID string) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	if m.manualCheck && renderID == m.renderID {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.renderID = renderID
	m.manualCheck = false
	m.status = ""
	m.announced = make(map[model.RenderStatus]struct{})
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.poll(ctx, renderID)
}

// Reset clears the manual-check state so a later hand-off may poll again.
// Called on explicit operator action such as a retry; Start never clears it
// for the same render id on its own.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.manualCheck = false
	m.renderID = ""
	m.status = ""
}

// Stop cancels the poll loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
}

// Status returns the most recently observed render status.
func (m *Monitor) Status() model.RenderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ManualCheckRequired reports whether the attempt budget ran out before a
// terminal status. The job is not failed in that case; the render can take
// longer than the polling window.
func (m *Monitor) ManualCheckRequired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manualCheck
}

func (m *Monitor) poll(ctx context.Context, renderID string) {
	defer func() {
		m.mu.Lock()
		m.running = false
		close(m.done)
		m.mu.Unlock()
	}()

	for attempt := 1; attempt <= m.budget; attempt++ {
		resp, err := m.querier.RenderStatus(ctx, renderID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Render] poll #%d (render=%s) — error: %v", attempt, renderID, err)
		} else {
			status := model.RenderStatus(resp.Status)
			log.Printf("[Render] poll #%d (render=%s) — status: %s", attempt, renderID, status)

			m.observe(status, resp)
			m.machine.ApplyRenderStatus(status, resp.VideoURL, resp.Message)

			if status.Terminal() {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.interval):
		}
	}

	m.mu.Lock()
	m.manualCheck = true
	m.mu.Unlock()
	log.Printf("[Render] poll budget (%d attempts) exhausted for render %s; manual check required", m.budget, renderID)
}

func (m *Monitor) observe(status model.RenderStatus, resp *client.RenderStatusResponse) {
	m.mu.Lock()
	m.status = status
	_, already := m.announced[status]
	if !already {
		m.announced[status] = struct{}{}
	}
	m.mu.Unlock()

	if already {
		return
	}

	switch status {
	case model.RenderStatusSucceeded:
		m.announce(status, "Render succeeded")
	case model.RenderStatusFailed, model.RenderStatusError:
		msg := resp.Message
		if msg == "" {
			msg = "Render failed"
		}
		m.announce(status, msg)
	default:
		m.announce(status, "Render "+DisplayState(status))
	}
}

// DisplayState maps a render status onto the coarse label the timeline shows.
func DisplayState(status model.RenderStatus) string {
	switch status {
	case model.RenderStatusPlanned, model.RenderStatusQueued:
		return "queued"
	case model.RenderStatusWaiting, model.RenderStatusTranscribing,
		model.RenderStatusProcessing, model.RenderStatusRendering:
		return "rendering"
	case model.RenderStatusSucceeded:
		return "succeeded"
	case model.RenderStatusFailed, model.RenderStatusError:
		return "failed"
	}
	return string(status)
}
