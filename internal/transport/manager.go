// Package transport owns the two channels that deliver workflow events: a
// preferred websocket push connection and a fallback pull-poll loop. Both
// feed the same sink, so the sequence guard stays the only ordering
// authority.
package transport

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/reelforge/monitor/internal/client"
	"github.com/reelforge/monitor/internal/config"
	"github.com/reelforge/monitor/internal/model"
)

// Sink receives one raw event payload. Parsing and validation happen
// downstream, before the sequence guard.
type Sink func(raw []byte)

// Activity reports the watched job's current status; it drives the adaptive
// pull interval.
type Activity func() model.JobStatus

// SequenceSource reports the last applied sequence, so a pull fetch only
// asks for what the push channel has not already delivered.
type SequenceSource func() int64

// Manager drives updates for one job over push with pull fallback. Pull is
// suppressed while push is healthy; after the push failure cap is exceeded
// the manager falls back to pull for the rest of the session.
type Manager struct {
	jobID     string
	events    client.EventSource
	streamURL string
	apiKey    string
	dial      Dialer
	sink      Sink
	activity  Activity
	lastSeq   SequenceSource
	cfg       config.TransportConfig

	mu           sync.Mutex
	mode         model.TransportMode
	failures     int
	lastSuccess  time.Time
	interval     time.Duration
	visible      bool
	pushDisabled bool
	running      bool
	conn         PushConn

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wires a manager for one job. streamURL may be empty, in which
// case the manager runs pull-only from the start.
func NewManager(jobID, streamURL, apiKey string, events client.EventSource, cfg config.TransportConfig, sink Sink, activity Activity, lastSeq SequenceSource) *Manager {
	return &Manager{
		jobID:     jobID,
		events:    events,
		streamURL: streamURL,
		apiKey:    apiKey,
		dial:      DialWebsocket,
		sink:      sink,
		activity:  activity,
		lastSeq:   lastSeq,
		cfg:       cfg,
		mode:      model.TransportModePush,
		visible:   true,
	}
}

// SetDialer swaps the push dialer. Used by tests.
func (m *Manager) SetDialer(d Dialer) {
	m.dial = d
}

// Start launches the transport loop. It returns immediately; a Start while
// the loop is already running is a no-op, so a retry after teardown can
// simply call it again.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer func() {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			m.wg.Done()
		}()
		m.run(ctx)
	}()
}

// Close tears down the active connection and every timer, then waits for the
// loop to exit. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	m.wg.Wait()
}

// Mode returns the transport currently driving updates.
func (m *Manager) Mode() model.TransportMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetVisibility marks the observing session foregrounded or not. While
// backgrounded the pull interval is forced to its slowest tier; an open push
// connection is left alone because it is server-driven.
func (m *Manager) SetVisibility(visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = visible
}

// State returns a snapshot of the connection health.
func (m *Manager) State() model.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.ConnectionState{
		Mode:                m.mode,
		ConsecutiveFailures: m.failures,
		LastSuccessAt:       m.lastSuccess,
		CurrentIntervalMs:   m.interval.Milliseconds(),
	}
}

func (m *Manager) run(ctx context.Context) {
	for ctx.Err() == nil {
		if !m.pushAvailable() {
			m.pullLoop(ctx)
			return
		}

		err := m.pushSession(ctx)
		if ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		m.failures++
		failures := m.failures
		disabled := failures >= m.cfg.MaxPushFailures
		if disabled {
			m.pushDisabled = true
			m.mode = model.TransportModePull
		}
		m.mu.Unlock()

		if disabled {
			log.Printf("[Transport] job=%s push failed %d times, falling back to pull for this session: %v", m.jobID, failures, err)
			continue
		}

		wait := Backoff(m.backoffBase(), m.backoffCap(), failures-1)
		log.Printf("[Transport] job=%s push error (failure %d/%d), reconnecting in %s: %v", m.jobID, failures, m.cfg.MaxPushFailures, wait, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (m *Manager) pushAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamURL != "" && !m.pushDisabled
}

// pushSession dials the stream and reads until the connection breaks. A
// successful open resets the failure counter and suppresses pull.
func (m *Manager) pushSession(ctx context.Context) error {
	header := http.Header{}
	if m.apiKey != "" {
		header.Set("Authorization", "Bearer "+m.apiKey)
	}

	conn, err := m.dial(ctx, m.streamURL, header)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.mode = model.TransportModePush
	m.failures = 0
	m.lastSuccess = time.Now()
	m.mu.Unlock()

	log.Printf("[Transport] job=%s push channel connected", m.jobID)

	defer func() {
		conn.Close()
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
	}()

	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.lastSuccess = time.Now()
		m.mu.Unlock()
		m.sink(payload)
	}
}

// pullLoop drives updates over the fallback channel until the session ends.
func (m *Manager) pullLoop(ctx context.Context) {
	m.mu.Lock()
	m.mode = model.TransportModePull
	m.mu.Unlock()
	log.Printf("[Transport] job=%s pull loop active", m.jobID)

	var lastRTT time.Duration
	for {
		interval := m.pullInterval(lastRTT)
		m.mu.Lock()
		m.interval = interval
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		start := time.Now()
		events, err := m.events.FetchEvents(ctx, m.jobID, m.lastSeq())
		lastRTT = time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.mu.Lock()
			m.failures++
			m.mu.Unlock()
			log.Printf("[Transport] job=%s poll failed: %v", m.jobID, err)
			continue
		}

		m.mu.Lock()
		m.failures = 0
		m.lastSuccess = time.Now()
		m.mu.Unlock()

		for _, raw := range events {
			m.sink(raw)
		}
	}
}

// pullInterval selects one of the enumerated tiers from current job activity,
// biased slower by large observed round-trip latency, and forced to the
// slowest tier while backgrounded.
func (m *Manager) pullInterval(lastRTT time.Duration) time.Duration {
	m.mu.Lock()
	visible := m.visible
	m.mu.Unlock()

	tiers := []time.Duration{
		time.Duration(m.cfg.PullFastMs) * time.Millisecond,
		time.Duration(m.cfg.PullNormalMs) * time.Millisecond,
		time.Duration(m.cfg.PullSlowMs) * time.Millisecond,
		time.Duration(m.cfg.PullSlowestMs) * time.Millisecond,
	}

	if !visible {
		return tiers[3]
	}

	idx := 1
	switch m.activity() {
	case model.JobStatusPending, model.JobStatusProcessing:
		idx = 0
	case model.JobStatusRendering:
		idx = 1
	case model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled:
		idx = 3
	}

	if lastRTT > time.Duration(m.cfg.LatencySlowThresholdMs)*time.Millisecond && idx < 3 {
		idx++
	}
	return tiers[idx]
}

func (m *Manager) backoffBase() time.Duration {
	return time.Duration(m.cfg.BackoffBaseMs) * time.Millisecond
}

func (m *Manager) backoffCap() time.Duration {
	return time.Duration(m.cfg.BackoffCapMs) * time.Millisecond
}
