package model

import "strings"

// Error categories for workflow-reported failures. Every category flows
// through the same failed transition; the category only selects the
// remediation hint shown to the operator.
type ErrorCategory string

const (
	ErrorCategoryCredential   ErrorCategory = "credential"
	ErrorCategoryRateLimit    ErrorCategory = "rate_limit"
	ErrorCategoryCapacity     ErrorCategory = "capacity"
	ErrorCategoryConnectivity ErrorCategory = "connectivity"
	ErrorCategoryUnknown      ErrorCategory = "unknown"
)

// JobError is the structured cause attached to a failed job.
type JobError struct {
	Message  string        `json:"message"`
	Category ErrorCategory `json:"category"`
	Hint     string        `json:"hint,omitempty"`
}

var categoryHints = map[ErrorCategory]string{
	ErrorCategoryCredential:   "Check the configured API credentials for the failing service.",
	ErrorCategoryRateLimit:    "The upstream service is rate limiting; retry after the window resets.",
	ErrorCategoryCapacity:     "The upstream service is out of capacity or quota; retry later.",
	ErrorCategoryConnectivity: "A network hop to the upstream service failed; verify connectivity and retry.",
	ErrorCategoryUnknown:      "Inspect the job logs for details.",
}

// NewJobError classifies a workflow-reported failure message. Classification
// is keyword-based because the upstream services only give us free text.
func NewJobError(message string) *JobError {
	category := categorize(message)
	return &JobError{
		Message:  message,
		Category: category,
		Hint:     categoryHints[category],
	}
}

func categorize(message string) ErrorCategory {
	m := strings.ToLower(message)
	switch {
	case containsAny(m, "api key", "unauthorized", "forbidden", "credential", "401", "403"):
		return ErrorCategoryCredential
	case containsAny(m, "rate limit", "too many requests", "429"):
		return ErrorCategoryRateLimit
	case containsAny(m, "quota", "capacity", "insufficient", "out of credits"):
		return ErrorCategoryCapacity
	case containsAny(m, "timeout", "timed out", "connection", "refused", "unreachable", "network"):
		return ErrorCategoryConnectivity
	}
	return ErrorCategoryUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
