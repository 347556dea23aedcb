package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/reelforge/monitor/internal/config"
)

// RenderStatusQuerier is the render-status endpoint contract consumed by the
// render monitor.
type RenderStatusQuerier interface {
	RenderStatus(ctx context.Context, renderID string) (*RenderStatusResponse, error)
}

// RenderStatusResponse is the wire shape of the render-status query endpoint.
type RenderStatusResponse struct {
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	VideoURL string `json:"videoUrl,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RenderClient queries the external compositing service's status endpoint.
type RenderClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewRenderClient creates a client for the render-status endpoint.
func NewRenderClient(cfg *config.RenderConfig) *RenderClient {
	return &RenderClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// RenderStatus fetches the current status of one render.
func (c *RenderClient) RenderStatus(ctx context.Context, renderID string) (*RenderStatusResponse, error) {
	endpoint := fmt.Sprintf("/v1/renders/%s/status", url.PathEscape(renderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Render API] ✗ GET %s — request failed: %v", req.URL.String(), err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("render API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result RenderStatusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// IsConfigured returns true if the client has a base URL to talk to.
func (c *RenderClient) IsConfigured() bool {
	return c.baseURL != ""
}
