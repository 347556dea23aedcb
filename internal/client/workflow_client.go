package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reelforge/monitor/internal/config"
)

// EventSource is the pull side of the workflow engine contract: one fetch
// returns every event the engine recorded after a given sequence.
type EventSource interface {
	FetchEvents(ctx context.Context, jobID string, afterSeq int64) ([]json.RawMessage, error)
}

// WorkflowClient talks to the workflow engine's status API.
type WorkflowClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewWorkflowClient creates a client for the workflow engine.
func NewWorkflowClient(cfg *config.WorkflowConfig) *WorkflowClient {
	return &WorkflowClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// FetchEvents performs one pull-poll fetch. The returned payloads are raw
// envelopes; parsing and validation happen at the transport boundary.
func (c *WorkflowClient) FetchEvents(ctx context.Context, jobID string, afterSeq int64) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("/v1/jobs/%s/events?after=%s", url.PathEscape(jobID), strconv.FormatInt(afterSeq, 10))

	var result struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return result.Events, nil
}

// StreamURL returns the websocket endpoint for the push channel of a job.
func (c *WorkflowClient) StreamURL(jobID string) string {
	ws := strings.Replace(c.baseURL, "http", "ws", 1)
	return fmt.Sprintf("%s/v1/jobs/%s/stream", ws, url.PathEscape(jobID))
}

// APIKey exposes the bearer token for the push dialer's handshake.
func (c *WorkflowClient) APIKey() string {
	return c.apiKey
}

// IsConfigured returns true if the client has a base URL to talk to.
func (c *WorkflowClient) IsConfigured() bool {
	return c.baseURL != ""
}

// get sends a GET request and parses the JSON response
func (c *WorkflowClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *WorkflowClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Workflow API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("workflow API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
