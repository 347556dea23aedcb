package model

import "time"

// Job is the canonical record of one observed workflow instance. Exactly one
// Job exists per watched job id, and it is mutated only by the state machine.
type Job struct {
	ID          string            `json:"id"`
	Status      JobStatus         `json:"status"`
	Progress    int               `json:"progress"`
	CurrentStep string            `json:"currentStep,omitempty"`
	ActiveStep  *int              `json:"activeStep,omitempty"`
	StepTotal   int               `json:"stepTotal"`
	Error       *JobError         `json:"error,omitempty"`
	RenderID    string            `json:"renderId,omitempty"`
	VideoURL    string            `json:"videoUrl,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	RetryCount  int               `json:"retryCount"`
	MaxRetries  int               `json:"maxRetries"`

	// StepCompletedAt records when each step reported completion, keyed by
	// step number. Consumed by the timeline projection.
	StepCompletedAt map[int]time.Time `json:"stepCompletedAt,omitempty"`
}

// NewJob creates a pending job record for the given id.
func NewJob(id string, stepTotal, maxRetries int) *Job {
	return &Job{
		ID:              id,
		Status:          JobStatusPending,
		StepTotal:       stepTotal,
		MaxRetries:      maxRetries,
		CreatedAt:       time.Now(),
		StepCompletedAt: make(map[int]time.Time),
	}
}

// Terminal reports whether the job is in a final state.
func (j *Job) Terminal() bool {
	return j.Status.Terminal()
}

// Clone returns a deep copy safe to hand to observers.
func (j *Job) Clone() *Job {
	cp := *j
	if j.ActiveStep != nil {
		v := *j.ActiveStep
		cp.ActiveStep = &v
	}
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	if j.Parameters != nil {
		cp.Parameters = make(map[string]string, len(j.Parameters))
		for k, v := range j.Parameters {
			cp.Parameters[k] = v
		}
	}
	if j.StepCompletedAt != nil {
		cp.StepCompletedAt = make(map[int]time.Time, len(j.StepCompletedAt))
		for k, v := range j.StepCompletedAt {
			cp.StepCompletedAt[k] = v
		}
	}
	return &cp
}
