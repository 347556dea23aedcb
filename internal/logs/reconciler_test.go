package logs

import (
	"testing"
	"time"

	"github.com/reelforge/monitor/internal/model"
)

func entry(ts time.Time, level model.LogLevel, msg string) model.LogEntry {
	return model.LogEntry{Timestamp: ts, Level: level, Message: msg}
}

func TestMerge_DurableWinsOnCollision(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	durable := []model.LogEntry{entry(t1, model.LogLevelInfo, "Step 1 completed")}
	live := []model.LogEntry{
		entry(t1, model.LogLevelInfo, "Step 1 completed"),
		entry(t2, model.LogLevelInfo, "Step 2 started"),
	}

	merged := Merge(durable, live)
	if len(merged) != 2 {
		t.Fatalf("merged length = %d, want 2", len(merged))
	}

	// Most recent first.
	if !merged[0].Timestamp.Equal(t2) {
		t.Errorf("merged[0] timestamp = %v, want %v", merged[0].Timestamp, t2)
	}

	// The colliding entry comes from the durable store.
	if merged[1].Source != model.LogSourceDurable {
		t.Errorf("colliding entry source = %s, want durable", merged[1].Source)
	}
}

func TestMergeAndFilter_Deterministic(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	durable := []model.LogEntry{entry(t1, model.LogLevelInfo, "Step 1 completed")}
	live := []model.LogEntry{
		entry(t1, model.LogLevelInfo, "Step 1 completed"),
		entry(t2, model.LogLevelInfo, "Step 2 started"),
	}

	got := FilterEssential(Merge(durable, live))
	if len(got) != 1 {
		t.Fatalf("filtered length = %d, want exactly 1", len(got))
	}
	if !got[0].Timestamp.Equal(t1) || got[0].Message != "Step 1 completed" {
		t.Errorf("unexpected surviving entry: %+v", got[0])
	}
}

func TestFilterEssential(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		entry model.LogEntry
		keep  bool
	}{
		{"step completed", entry(now, model.LogLevelInfo, "Step 3 completed"), true},
		{"step started chatter", entry(now, model.LogLevelInfo, "Step 3 started"), false},
		{"workflow initiated", entry(now, model.LogLevelInfo, "Workflow started for job abc"), true},
		{"error level", entry(now, model.LogLevelError, "something odd"), true},
		{"failure text", entry(now, model.LogLevelInfo, "avatar service failed"), true},
		{"artifact ready", entry(now, model.LogLevelInfo, "Video ready at https://cdn/x"), true},
		{"success level", entry(now, model.LogLevelSuccess, "done"), true},
		{"debug chatter", entry(now, model.LogLevelDebug, "polling tick"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterEssential([]model.LogEntry{tc.entry})
			kept := len(got) == 1
			if kept != tc.keep {
				t.Errorf("keep = %v, want %v", kept, tc.keep)
			}
		})
	}
}

func TestMerge_EmptySources(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("merging empty sources = %v, want empty", got)
	}

	t1 := time.Now()
	live := []model.LogEntry{entry(t1, model.LogLevelInfo, "only live")}
	got := Merge(nil, live)
	if len(got) != 1 || got[0].Source != model.LogSourceLive {
		t.Errorf("one unavailable source should degrade to the other, got %v", got)
	}
}
