// Package jobs tracks queued judging work and its polled lifecycle:
// waiting, active and then completed or failed.
package jobs

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"submission-judge/internal/judge"
)

var ErrJobNotFound = errors.New("job not found")

type State string

const (
	Waiting   State = "waiting"
	Active    State = "active"
	Completed State = "completed"
	Failed    State = "failed"
)

func (s State) IsTerminal() bool {
	return s == Completed || s == Failed
}

type Job struct {
	ID      string         `json:"id"`
	State   State          `json:"state"`
	Request *judge.Request `json:"request"`

	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Attempts counts deliveries that started judging, more than one means the
	// job was redelivered.
	Attempts int `json:"attempts"`

	Result *judge.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (j *Job) MarshalZerologObject(e *zerolog.Event) {
	e.Str("jobID", j.ID).
		Str("state", string(j.State)).
		Int("attempts", j.Attempts)

	if j.Result != nil {
		e.Str("status", string(j.Result.Status))
	}
}

// Message is the queue payload, the job itself lives in the store.
type Message struct {
	JobID string `json:"job_id"`
}

type Store interface {
	// Create stores a new job and fails if the id is already taken.
	Create(ctx context.Context, job *Job) error
	// Get returns ErrJobNotFound for unknown or expired jobs.
	Get(ctx context.Context, id string) (*Job, error)
	// Update replaces the stored job. Terminal jobs are kept for the
	// retention window of the store.
	Update(ctx context.Context, job *Job) error
}
