package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reelforge/monitor/internal/config"
	"github.com/reelforge/monitor/internal/model"
)

// LiveLogClient reads the workflow engine's in-memory log buffer. The live
// store names the level field "type"; entries are normalized here.
type LiveLogClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewLiveLogClient creates a client for the live log store.
func NewLiveLogClient(cfg *config.LogsConfig) *LiveLogClient {
	return &LiveLogClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: cfg.LiveBaseURL,
	}
}

// Fetch returns the live log entries for a job, normalized to LogEntry.
func (c *LiveLogClient) Fetch(ctx context.Context, jobID string) ([]model.LogEntry, error) {
	endpoint := fmt.Sprintf("/v1/jobs/%s/logs", url.PathEscape(jobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("live log store error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var payload struct {
		Logs []struct {
			Timestamp time.Time `json:"timestamp"`
			Type      string    `json:"type"`
			Message   string    `json:"message"`
		} `json:"logs"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	entries := make([]model.LogEntry, 0, len(payload.Logs))
	for _, l := range payload.Logs {
		entries = append(entries, model.LogEntry{
			Timestamp: l.Timestamp,
			Level:     model.LogLevel(l.Type),
			Message:   l.Message,
			Source:    model.LogSourceLive,
		})
	}
	return entries, nil
}

// IsConfigured returns true if the client has a base URL to talk to.
func (c *LiveLogClient) IsConfigured() bool {
	return c.baseURL != ""
}
