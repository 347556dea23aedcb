package render

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/reelforge/monitor/internal/client"
	"github.com/reelforge/monitor/internal/job"
	"github.com/reelforge/monitor/internal/model"
)

// scriptedQuerier replays a fixed sequence of responses; the last one repeats.
type scriptedQuerier struct {
	mu        sync.Mutex
	responses []client.RenderStatusResponse
	calls     int
}

func (q *scriptedQuerier) RenderStatus(ctx context.Context, renderID string) (*client.RenderStatusResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := q.calls
	if idx >= len(q.responses) {
		idx = len(q.responses) - 1
	}
	q.calls++
	resp := q.responses[idx]
	return &resp, nil
}

type announceRecorder struct {
	mu     sync.Mutex
	counts map[model.RenderStatus]int
}

func newAnnounceRecorder() *announceRecorder {
	return &announceRecorder{counts: make(map[model.RenderStatus]int)}
}

func (r *announceRecorder) fn(status model.RenderStatus, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[status]++
}

func (r *announceRecorder) count(status model.RenderStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[status]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

func TestMonitor_SuccessPath(t *testing.T) {
	machine := job.NewMachine("job-1", 7, 3)
	querier := &scriptedQuerier{responses: []client.RenderStatusResponse{
		{Success: true, Status: "planned"},
		{Success: true, Status: "planned"}, // re-poll of the same status
		{Success: true, Status: "rendering"},
		{Success: true, Status: "succeeded", VideoURL: "https://cdn/x.mp4"},
	}}
	rec := newAnnounceRecorder()

	m := NewMonitor(querier, machine, time.Millisecond, 50, rec.fn)
	m.Start(context.Background(), "render-1")

	waitFor(t, func() bool {
		return machine.Snapshot().Status == model.JobStatusCompleted
	})

	snap := machine.Snapshot()
	if snap.Progress != 100 || snap.VideoURL != "https://cdn/x.mp4" {
		t.Errorf("final job = %s/%d/%q", snap.Status, snap.Progress, snap.VideoURL)
	}

	if got := rec.count(model.RenderStatusPlanned); got != 1 {
		t.Errorf("planned announced %d times, want 1", got)
	}
	if got := rec.count(model.RenderStatusSucceeded); got != 1 {
		t.Errorf("succeeded announced %d times, want 1", got)
	}
}

func TestMonitor_FailureStopsPolling(t *testing.T) {
	machine := job.NewMachine("job-1", 7, 3)
	querier := &scriptedQuerier{responses: []client.RenderStatusResponse{
		{Success: true, Status: "processing"},
		{Success: false, Status: "failed", Message: "compositor crashed"},
	}}

	m := NewMonitor(querier, machine, time.Millisecond, 50, nil)
	m.Start(context.Background(), "render-1")

	waitFor(t, func() bool {
		return machine.Snapshot().Status == model.JobStatusFailed
	})

	querier.mu.Lock()
	callsAtFailure := querier.calls
	querier.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	querier.mu.Lock()
	callsAfter := querier.calls
	querier.mu.Unlock()

	if callsAfter != callsAtFailure {
		t.Errorf("polling continued after terminal status: %d -> %d calls", callsAtFailure, callsAfter)
	}
}

func TestMonitor_BudgetExhaustionIsNonFatal(t *testing.T) {
	machine := job.NewMachine("job-1", 7, 3)
	querier := &scriptedQuerier{responses: []client.RenderStatusResponse{
		{Success: true, Status: "processing"},
	}}

	m := NewMonitor(querier, machine, time.Millisecond, 3, nil)
	m.Start(context.Background(), "render-1")

	waitFor(t, m.ManualCheckRequired)

	snap := machine.Snapshot()
	if snap.Terminal() {
		t.Errorf("budget exhaustion must not fail the job, status = %s", snap.Status)
	}
	if snap.Status != model.JobStatusRendering {
		t.Errorf("status = %s, want rendering", snap.Status)
	}
}

func TestMonitor_ManualCheckBlocksRestartForSameRender(t *testing.T) {
	machine := job.NewMachine("job-1", 7, 3)
	querier := &scriptedQuerier{responses: []client.RenderStatusResponse{
		{Success: true, Status: "processing"},
	}}

	m := NewMonitor(querier, machine, time.Millisecond, 3, nil)
	m.Start(context.Background(), "render-1")
	waitFor(t, m.ManualCheckRequired)

	querier.mu.Lock()
	callsAtExhaustion := querier.calls
	querier.mu.Unlock()

	m.Start(context.Background(), "render-1")
	time.Sleep(10 * time.Millisecond)

	if !m.ManualCheckRequired() {
		t.Error("restart for the same render id must not clear the manual-check state")
	}
	querier.mu.Lock()
	callsAfter := querier.calls
	querier.mu.Unlock()
	if callsAfter != callsAtExhaustion {
		t.Errorf("polling resumed for the same render id: %d -> %d calls", callsAtExhaustion, callsAfter)
	}
}

func TestMonitor_NewRenderIDPollsAgain(t *testing.T) {
	machine := job.NewMachine("job-1", 7, 3)
	querier := &scriptedQuerier{responses: []client.RenderStatusResponse{
		{Success: true, Status: "processing"},
	}}

	m := NewMonitor(querier, machine, time.Millisecond, 2, nil)
	m.Start(context.Background(), "render-1")
	waitFor(t, m.ManualCheckRequired)

	m.Start(context.Background(), "render-2")
	waitFor(t, func() bool {
		querier.mu.Lock()
		defer querier.mu.Unlock()
		return querier.calls > 2
	})
}

func TestMonitor_ResetAllowsSameRenderAgain(t *testing.T) {
	machine := job.NewMachine("job-1", 7, 3)
	querier := &scriptedQuerier{responses: []client.RenderStatusResponse{
		{Success: true, Status: "processing"},
	}}

	m := NewMonitor(querier, machine, time.Millisecond, 2, nil)
	m.Start(context.Background(), "render-1")
	waitFor(t, m.ManualCheckRequired)

	m.Reset()
	if m.ManualCheckRequired() {
		t.Fatal("reset must clear the manual-check state")
	}

	m.Start(context.Background(), "render-1")
	waitFor(t, func() bool {
		querier.mu.Lock()
		defer querier.mu.Unlock()
		return querier.calls > 2
	})
}

func TestMonitor_StopCancelsLoop(t *testing.T) {
	machine := job.NewMachine("job-1", 7, 3)
	querier := &scriptedQuerier{responses: []client.RenderStatusResponse{
		{Success: true, Status: "processing"},
	}}

	m := NewMonitor(querier, machine, time.Millisecond, 10000, nil)
	m.Start(context.Background(), "render-1")

	waitFor(t, func() bool {
		querier.mu.Lock()
		defer querier.mu.Unlock()
		return querier.calls > 0
	})

	m.Stop() // blocks until the loop exits

	querier.mu.Lock()
	callsAtStop := querier.calls
	querier.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	querier.mu.Lock()
	callsAfter := querier.calls
	querier.mu.Unlock()

	if callsAfter != callsAtStop {
		t.Error("poll loop survived Stop")
	}
}
