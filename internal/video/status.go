package video

import (
	"time"

	"studio/internal/domain"
)

// Status is the state of a live job. The set of implementations is closed:
// a result exists only on Succeeded and an error only on Failed.
type Status interface {
	State() domain.JobState
	status()
}

// Submitted means the creation call is in flight.
type Submitted struct{}

// Polling means the service accepted the job and status queries are running.
type Polling struct {
	Polls int
}

// Succeeded carries the playable result.
type Succeeded struct {
	Result domain.MediaReference
}

// Failed carries the terminal error.
type Failed struct {
	Err error
}

func (Submitted) State() domain.JobState { return domain.JobStateSubmitted }
func (Polling) State() domain.JobState   { return domain.JobStatePolling }
func (Succeeded) State() domain.JobState { return domain.JobStateSucceeded }
func (Failed) State() domain.JobState    { return domain.JobStateFailed }

func (Submitted) status() {}
func (Polling) status()   {}
func (Succeeded) status() {}
func (Failed) status()    {}

// Snapshot is an immutable copy of the runner state.
type Snapshot struct {
	JobID       string
	Handle      string
	State       domain.JobState
	Message     string
	Result      *domain.MediaReference
	Err         error
	Prompt      string
	AspectRatio domain.AspectRatio
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the snapshot is final.
func (s Snapshot) Terminal() bool {
	return s.State.Terminal()
}
