package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelforge/monitor/internal/client"
	"github.com/reelforge/monitor/internal/config"
	"github.com/reelforge/monitor/internal/session"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		Transport: config.TransportConfig{
			MaxPushFailures: 5,
			BackoffBaseMs:   1,
			BackoffCapMs:    4,
			PullFastMs:      50,
			PullNormalMs:    50,
			PullSlowMs:      50,
			PullSlowestMs:   50,
		},
		Monitor: config.MonitorConfig{IntervalSeconds: 1, MaxAttempts: 5},
		Job:     config.JobConfig{StepTotal: 7, MaxRetries: 3},
	}

	registry := session.NewRegistry(context.Background(), session.Deps{
		Workflow: client.NewWorkflowClient(&config.WorkflowConfig{TimeoutSeconds: 1}),
		Validate: validator.New(),
		Cfg:      cfg,
	})
	t.Cleanup(registry.Close)

	h := NewMonitorHandler(registry)

	app := fiber.New()
	jobs := app.Group("/api/jobs")
	jobs.Post("/:jobId/watch", h.Watch)
	jobs.Delete("/:jobId/watch", h.Unwatch)
	jobs.Get("/:jobId/view", h.View)
	jobs.Get("/:jobId/connection", h.Connection)
	jobs.Post("/:jobId/retry", h.Retry)
	jobs.Post("/:jobId/cancel", h.Cancel)
	jobs.Post("/:jobId/visibility", h.Visibility)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to parse body %q: %v", string(data), err)
	}
	return result
}

func TestWatch_CreatesSession(t *testing.T) {
	app := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	result := parseJSON(t, resp)
	if result["jobId"] != "job-1" {
		t.Errorf("jobId = %v", result["jobId"])
	}
	if result["status"] != "pending" {
		t.Errorf("status = %v, want pending", result["status"])
	}
	if result["sessionId"] == nil || result["sessionId"] == "" {
		t.Error("expected a sessionId")
	}
}

func TestWatch_Idempotent(t *testing.T) {
	app := setupApp(t)

	first := parseJSON(t, doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", ""))
	second := parseJSON(t, doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", ""))

	if first["sessionId"] != second["sessionId"] {
		t.Error("watching the same job twice must reuse the session")
	}
}

func TestView_RequiresWatch(t *testing.T) {
	app := setupApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/jobs/nobody/view", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestView_ReturnsSnapshot(t *testing.T) {
	app := setupApp(t)
	doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", "")

	resp := doRequest(t, app, http.MethodGet, "/api/jobs/job-1/view", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := parseJSON(t, resp)
	if result["status"] != "pending" {
		t.Errorf("view status = %v", result["status"])
	}
	steps, ok := result["steps"].([]interface{})
	if !ok || len(steps) != 7 {
		t.Errorf("steps = %v, want 7 timeline rows", result["steps"])
	}
}

func TestRetry_RefusedForNonTerminalJob(t *testing.T) {
	app := setupApp(t)
	doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", "")

	resp := doRequest(t, app, http.MethodPost, "/api/jobs/job-1/retry", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestCancelThenRetry(t *testing.T) {
	app := setupApp(t)
	doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", "")

	resp := doRequest(t, app, http.MethodPost, "/api/jobs/job-1/cancel", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	if got := parseJSON(t, resp)["status"]; got != "cancelled" {
		t.Errorf("status = %v, want cancelled", got)
	}

	resp = doRequest(t, app, http.MethodPost, "/api/jobs/job-1/retry", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", resp.StatusCode)
	}
	if got := parseJSON(t, resp)["status"]; got != "pending" {
		t.Errorf("status after retry = %v, want pending", got)
	}
}

func TestVisibility(t *testing.T) {
	app := setupApp(t)
	doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", "")

	resp := doRequest(t, app, http.MethodPost, "/api/jobs/job-1/visibility", `{"visible":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := parseJSON(t, resp)["visible"]; got != false {
		t.Errorf("visible = %v, want false", got)
	}
}

func TestUnwatch(t *testing.T) {
	app := setupApp(t)
	doRequest(t, app, http.MethodPost, "/api/jobs/job-1/watch", "")
	doRequest(t, app, http.MethodDelete, "/api/jobs/job-1/watch", "")

	resp := doRequest(t, app, http.MethodGet, "/api/jobs/job-1/view", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after unwatch = %d, want 404", resp.StatusCode)
	}
}
