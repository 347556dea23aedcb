package view

import (
	"testing"
	"time"

	"github.com/reelforge/monitor/internal/model"
)

func midProgressJob() *model.Job {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	active := 4
	return &model.Job{
		ID:          "job-1",
		Status:      model.JobStatusProcessing,
		Progress:    42,
		CurrentStep: "Rendering avatar",
		ActiveStep:  &active,
		StepTotal:   7,
		StartedAt:   &started,
		StepCompletedAt: map[int]time.Time{
			1: started.Add(time.Minute),
			2: started.Add(2 * time.Minute),
			3: started.Add(3 * time.Minute),
		},
	}
}

func TestProject_Timeline(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 10, 0, 0, time.UTC)
	vm := Project(Input{Job: midProgressJob()}, now)

	if len(vm.Steps) != 7 {
		t.Fatalf("timeline length = %d, want 7", len(vm.Steps))
	}

	wantStates := []model.StepState{
		model.StepStateCompleted, model.StepStateCompleted, model.StepStateCompleted,
		model.StepStateActive,
		model.StepStatePending, model.StepStatePending, model.StepStatePending,
	}
	for i, want := range wantStates {
		if vm.Steps[i].State != want {
			t.Errorf("step %d state = %s, want %s", i+1, vm.Steps[i].State, want)
		}
	}

	if vm.Steps[0].CompletedAt == nil {
		t.Error("completed step should carry its completion timestamp")
	}
	if vm.Steps[3].Label != "Rendering avatar" {
		t.Errorf("active step label = %q", vm.Steps[3].Label)
	}
}

func TestProject_DurationWhileRunning(t *testing.T) {
	j := midProgressJob()
	now := j.StartedAt.Add(10 * time.Minute)

	vm := Project(Input{Job: j}, now)
	if vm.Duration != 10*time.Minute {
		t.Errorf("duration = %s, want 10m", vm.Duration)
	}
}

func TestProject_DurationFrozenWhenTerminal(t *testing.T) {
	j := midProgressJob()
	done := j.StartedAt.Add(8 * time.Minute)
	j.Status = model.JobStatusCompleted
	j.CompletedAt = &done

	vm := Project(Input{Job: j}, done.Add(time.Hour))
	if vm.Duration != 8*time.Minute {
		t.Errorf("duration = %s, want frozen 8m", vm.Duration)
	}
}

func TestProject_Badges(t *testing.T) {
	tests := []struct {
		status model.JobStatus
		want   string
	}{
		{model.JobStatusPending, "badge-pending"},
		{model.JobStatusProcessing, "badge-processing"},
		{model.JobStatusRendering, "badge-rendering"},
		{model.JobStatusCompleted, "badge-completed"},
		{model.JobStatusFailed, "badge-failed"},
		{model.JobStatusCancelled, "badge-cancelled"},
	}
	for _, tc := range tests {
		j := &model.Job{ID: "job-1", Status: tc.status, StepTotal: 7}
		vm := Project(Input{Job: j}, time.Now())
		if vm.Badge != tc.want {
			t.Errorf("badge(%s) = %q, want %q", tc.status, vm.Badge, tc.want)
		}
	}
}

func TestProject_FailurePinnedToStep(t *testing.T) {
	j := midProgressJob()
	j.Status = model.JobStatusFailed
	j.ActiveStep = nil
	j.Error = model.NewJobError("avatar service timed out")

	vm := Project(Input{Job: j}, time.Now())
	if vm.Steps[3].State != model.StepStateFailed {
		t.Errorf("first incomplete step state = %s, want failed", vm.Steps[3].State)
	}
	if vm.Error == nil || vm.Error.Category != model.ErrorCategoryConnectivity {
		t.Errorf("error = %+v, want connectivity category", vm.Error)
	}
}

func TestProject_RenderFields(t *testing.T) {
	j := &model.Job{ID: "job-1", Status: model.JobStatusRendering, StepTotal: 7, RenderID: "render-1"}

	vm := Project(Input{
		Job:          j,
		RenderStatus: model.RenderStatusTranscribing,
		ManualCheck:  true,
	}, time.Now())

	if vm.RenderLabel != "rendering" {
		t.Errorf("render label = %q, want rendering", vm.RenderLabel)
	}
	if !vm.ManualCheck {
		t.Error("manual check flag should surface on the view model")
	}
}
