package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Event kinds carried on both transports. The envelope "type" field is the
// discriminator; payloads are strongly typed before they reach the sequence
// guard.
const (
	EventTypeStep               = "step"
	EventTypeRenderPlanned      = "render_planned"
	EventTypeRenderWaiting      = "render_waiting"
	EventTypeRenderTranscribing = "render_transcribing"
	EventTypeRenderRendering    = "render_rendering"
	EventTypeRenderCompleted    = "render_completed"
	EventTypeRenderFailed       = "render_failed"
	EventTypeHeartbeat          = "heartbeat"
)

// Step phases
type StepPhase string

const (
	StepPhaseStarted   StepPhase = "started"
	StepPhaseCompleted StepPhase = "completed"
)

// Event is the tagged union delivered by the transports.
type Event interface {
	Kind() string
	Job() string
}

// StepEvent is a discrete started/completed signal for one numbered phase of
// the workflow.
type StepEvent struct {
	JobID      string      `json:"job_id" validate:"required"`
	StepNumber int         `json:"step_number" validate:"required,min=1"`
	StepName   string      `json:"step_name"`
	Phase      StepPhase   `json:"status" validate:"required,oneof=started completed"`
	Sequence   int64       `json:"sequence" validate:"required"`
	Validated  bool        `json:"validated"`
	Details    StepDetails `json:"details"`
}

// StepDetails is the opaque payload attached to a step event. The final step
// may carry the render hand-off; the backend may also supply an authoritative
// progress value.
type StepDetails struct {
	RenderID string `json:"render_id,omitempty"`
	Progress int    `json:"progress,omitempty"`
}

func (e *StepEvent) Kind() string { return EventTypeStep }
func (e *StepEvent) Job() string  { return e.JobID }

// RenderEvent is one of the render lifecycle signals pushed by the workflow
// engine once the compositing hand-off has happened.
type RenderEvent struct {
	Type      string       `json:"type" validate:"required"`
	JobID     string       `json:"job_id" validate:"required"`
	Status    RenderStatus `json:"-"`
	VideoURL  string       `json:"videoUrl,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp,omitempty"`
}

func (e *RenderEvent) Kind() string { return e.Type }
func (e *RenderEvent) Job() string  { return e.JobID }

// Heartbeat is a keep-alive; it carries no state change.
type Heartbeat struct {
	JobID string `json:"job_id"`
}

func (e *Heartbeat) Kind() string { return EventTypeHeartbeat }
func (e *Heartbeat) Job() string  { return e.JobID }

var renderEventStatus = map[string]RenderStatus{
	EventTypeRenderPlanned:      RenderStatusPlanned,
	EventTypeRenderWaiting:      RenderStatusWaiting,
	EventTypeRenderTranscribing: RenderStatusTranscribing,
	EventTypeRenderRendering:    RenderStatusRendering,
	EventTypeRenderCompleted:    RenderStatusSucceeded,
	EventTypeRenderFailed:       RenderStatusFailed,
}

// ParseEvent decodes one raw transport payload into its typed event. Malformed
// payloads return an error and must be dropped by the caller; they never reach
// the state machine.
func ParseEvent(raw []byte, validate *validator.Validate) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	switch envelope.Type {
	case EventTypeStep:
		var ev StepEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode step event: %w", err)
		}
		if err := validate.Struct(&ev); err != nil {
			return nil, fmt.Errorf("invalid step event: %w", err)
		}
		return &ev, nil

	case EventTypeRenderPlanned, EventTypeRenderWaiting, EventTypeRenderTranscribing,
		EventTypeRenderRendering, EventTypeRenderCompleted, EventTypeRenderFailed:
		var ev RenderEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode render event: %w", err)
		}
		if err := validate.Struct(&ev); err != nil {
			return nil, fmt.Errorf("invalid render event: %w", err)
		}
		ev.Status = renderEventStatus[envelope.Type]
		return &ev, nil

	case EventTypeHeartbeat:
		var ev Heartbeat
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode heartbeat: %w", err)
		}
		return &ev, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", envelope.Type)
	}
}
