package domain

import "time"

// JobState enumerates the lifecycle of a video job.
type JobState string

const (
	JobStateIdle      JobState = "idle"
	JobStateSubmitted JobState = "submitted"
	JobStatePolling   JobState = "polling"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// Active reports whether a job in state s still owns the view.
func (s JobState) Active() bool {
	return s == JobStateSubmitted || s == JobStatePolling
}

// Terminal reports whether s is a final state.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// JobRecord is the persisted history entry of a video job.
type JobRecord struct {
	ID          string
	ViewID      string
	Model       string
	Prompt      string
	AspectRatio AspectRatio
	State       JobState
	Message     string
	ResultURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
