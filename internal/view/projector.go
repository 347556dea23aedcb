// Package view projects canonical state into the UI-agnostic view model.
// Everything here is a pure function; no I/O, no mutation of job state.
package view

import (
	"time"

	"github.com/reelforge/monitor/internal/model"
	"github.com/reelforge/monitor/internal/render"
)

// Input bundles everything a projection reads.
type Input struct {
	Job          *model.Job
	RenderStatus model.RenderStatus
	ManualCheck  bool
	Logs         []model.LogEntry
}

// Project computes the view model for one job at one instant.
func Project(in Input, now time.Time) model.ViewModel {
	j := in.Job

	vm := model.ViewModel{
		JobID:        j.ID,
		Status:       j.Status,
		Progress:     j.Progress,
		Badge:        badge(j.Status),
		CurrentStep:  j.CurrentStep,
		Steps:        timeline(j),
		Duration:     elapsed(j, now),
		VideoURL:     j.VideoURL,
		Error:        j.Error,
		RenderStatus: in.RenderStatus,
		ManualCheck:  in.ManualCheck,
		Logs:         in.Logs,
		RetryCount:   j.RetryCount,
		GeneratedAt:  now,
	}
	if in.RenderStatus != "" {
		vm.RenderLabel = render.DisplayState(in.RenderStatus)
	}
	return vm
}

func badge(status model.JobStatus) string {
	switch status {
	case model.JobStatusPending:
		return "badge-pending"
	case model.JobStatusProcessing:
		return "badge-processing"
	case model.JobStatusRendering:
		return "badge-rendering"
	case model.JobStatusCompleted:
		return "badge-completed"
	case model.JobStatusFailed:
		return "badge-failed"
	case model.JobStatusCancelled:
		return "badge-cancelled"
	}
	return "badge-unknown"
}

func timeline(j *model.Job) []model.StepView {
	steps := make([]model.StepView, j.StepTotal)
	for i := range steps {
		n := i + 1
		sv := model.StepView{Number: n, State: model.StepStatePending}

		if at, ok := j.StepCompletedAt[n]; ok {
			t := at
			sv.State = model.StepStateCompleted
			sv.CompletedAt = &t
		}
		if j.ActiveStep != nil && *j.ActiveStep == n {
			sv.State = model.StepStateActive
			sv.Label = j.CurrentStep
			if j.Status == model.JobStatusFailed {
				sv.State = model.StepStateFailed
			}
		}
		steps[i] = sv
	}

	// A failure with no step still marked active pins the failure on the
	// first incomplete step.
	if j.Status == model.JobStatusFailed && j.ActiveStep == nil {
		for i := range steps {
			if steps[i].State == model.StepStatePending {
				steps[i].State = model.StepStateFailed
				break
			}
		}
	}
	return steps
}

func elapsed(j *model.Job, now time.Time) time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(*j.StartedAt)
	}
	return now.Sub(*j.StartedAt)
}
