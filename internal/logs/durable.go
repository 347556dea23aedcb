package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reelforge/monitor/internal/model"
)

// DurableStore reads the workflow engine's journal from Redis. The engine
// RPUSHes one JSON line per entry onto a per-job list; we only ever read it.
type DurableStore struct {
	redis     *redis.Client
	keyPrefix string
}

// NewDurableStore creates a reader over the engine's Redis log journal.
func NewDurableStore(redisClient *redis.Client, keyPrefix string) *DurableStore {
	if keyPrefix == "" {
		keyPrefix = "job:logs:"
	}
	return &DurableStore{redis: redisClient, keyPrefix: keyPrefix}
}

// Fetch returns the journaled entries for a job, oldest first as stored.
func (s *DurableStore) Fetch(ctx context.Context, jobID string) ([]model.LogEntry, error) {
	lines, err := s.redis.LRange(ctx, s.keyPrefix+jobID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read durable log journal: %w", err)
	}

	entries := make([]model.LogEntry, 0, len(lines))
	for _, line := range lines {
		var raw struct {
			Timestamp time.Time `json:"timestamp"`
			Level     string    `json:"level"`
			Message   string    `json:"message"`
		}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			log.Printf("[Logs] skipping malformed durable entry for job %s: %v", jobID, err)
			continue
		}
		entries = append(entries, model.LogEntry{
			Timestamp: raw.Timestamp,
			Level:     model.LogLevel(raw.Level),
			Message:   raw.Message,
			Source:    model.LogSourceDurable,
		})
	}
	return entries, nil
}
