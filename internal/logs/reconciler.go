// Package logs merges the durable and live log stores into one deduplicated,
// time-ordered timeline and filters it down to the entries worth showing.
package logs

import (
	"sort"
	"strings"

	"github.com/reelforge/monitor/internal/model"
)

// Merge combines the two sources. Durable entries are authoritative and win
// on key collisions; live entries fill the gaps. The result is sorted by
// timestamp descending, most recent first.
func Merge(durable, live []model.LogEntry) []model.LogEntry {
	seen := make(map[model.LogKey]struct{}, len(durable)+len(live))
	merged := make([]model.LogEntry, 0, len(durable)+len(live))

	for _, e := range durable {
		e.Source = model.LogSourceDurable
		key := e.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range live {
		e.Source = model.LogSourceLive
		key := e.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	return merged
}

// FilterEssential keeps only the entries the timeline shows: workflow start
// and completion, step completions, artifact readiness, and every failure.
// High-frequency step-started chatter is dropped so the visible log stays
// bounded even though the sources are not.
func FilterEssential(entries []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(entries))
	for _, e := range entries {
		if essential(e) {
			out = append(out, e)
		}
	}
	return out
}

func essential(e model.LogEntry) bool {
	if e.Level == model.LogLevelError || e.Level == model.LogLevelSuccess {
		return true
	}
	m := strings.ToLower(e.Message)
	switch {
	case strings.Contains(m, "failed"), strings.Contains(m, "failure"), strings.Contains(m, "error"):
		return true
	case strings.Contains(m, "completed"), strings.Contains(m, "complete"):
		return true
	case strings.Contains(m, "workflow started"), strings.Contains(m, "workflow initiated"):
		return true
	case strings.Contains(m, "video ready"), strings.Contains(m, "artifact ready"):
		return true
	}
	return false
}
