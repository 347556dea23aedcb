package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reelforge/monitor/internal/session"
	"github.com/reelforge/monitor/pkg/response"
)

// MonitorHandler exposes the observing sessions over HTTP.
type MonitorHandler struct {
	registry *session.Registry
}

// NewMonitorHandler creates a handler over the session registry.
func NewMonitorHandler(registry *session.Registry) *MonitorHandler {
	return &MonitorHandler{registry: registry}
}

// Watch starts (or joins) the observing session for a job.
// POST /api/jobs/:jobId/watch
func (h *MonitorHandler) Watch(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "jobId is required", nil)
	}

	s := h.registry.Watch(jobID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"jobId":      jobID,
		"sessionId":  s.ID(),
		"status":     s.Snapshot().Status,
		"connection": s.ConnectionState(),
	})
}

// Unwatch tears down the observing session for a job.
// DELETE /api/jobs/:jobId/watch
func (h *MonitorHandler) Unwatch(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	h.registry.Unwatch(jobID)
	return c.JSON(fiber.Map{"jobId": jobID, "watching": false})
}

// View returns a fresh view-model snapshot, logs included.
// GET /api/jobs/:jobId/view
func (h *MonitorHandler) View(c *fiber.Ctx) error {
	s, ok := h.registry.Get(c.Params("jobId"))
	if !ok {
		return response.Error(c, fiber.StatusNotFound, response.CodeNotWatching, "job is not being watched", nil)
	}
	return c.JSON(s.View(c.Context()))
}

// Retry resets a terminal job back to pending.
// POST /api/jobs/:jobId/retry
func (h *MonitorHandler) Retry(c *fiber.Ctx) error {
	s, ok := h.registry.Get(c.Params("jobId"))
	if !ok {
		return response.Error(c, fiber.StatusNotFound, response.CodeNotWatching, "job is not being watched", nil)
	}
	if !s.Retry() {
		return response.Conflict(c, response.CodeRetryRefused, "job is not terminal or retry budget is spent")
	}
	return c.JSON(fiber.Map{"jobId": c.Params("jobId"), "status": s.Snapshot().Status})
}

// Cancel marks the observed job cancelled.
// POST /api/jobs/:jobId/cancel
func (h *MonitorHandler) Cancel(c *fiber.Ctx) error {
	s, ok := h.registry.Get(c.Params("jobId"))
	if !ok {
		return response.Error(c, fiber.StatusNotFound, response.CodeNotWatching, "job is not being watched", nil)
	}
	snap := s.Snapshot()
	if snap.Terminal() {
		return response.Conflict(c, response.CodeJobTerminal, "job already finished")
	}
	s.Cancel()
	return c.JSON(fiber.Map{"jobId": c.Params("jobId"), "status": s.Snapshot().Status})
}

// Visibility throttles the pull transport while the observer is backgrounded.
// POST /api/jobs/:jobId/visibility
func (h *MonitorHandler) Visibility(c *fiber.Ctx) error {
	s, ok := h.registry.Get(c.Params("jobId"))
	if !ok {
		return response.Error(c, fiber.StatusNotFound, response.CodeNotWatching, "job is not being watched", nil)
	}

	var body struct {
		Visible bool `json:"visible"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.ValidationError(c, "invalid body", err.Error())
	}
	s.SetVisibility(body.Visible)
	return c.JSON(fiber.Map{"jobId": c.Params("jobId"), "visible": body.Visible})
}

// Connection returns the transport health snapshot.
// GET /api/jobs/:jobId/connection
func (h *MonitorHandler) Connection(c *fiber.Ctx) error {
	s, ok := h.registry.Get(c.Params("jobId"))
	if !ok {
		return response.Error(c, fiber.StatusNotFound, response.CodeNotWatching, "job is not being watched", nil)
	}
	return c.JSON(s.ConnectionState())
}
