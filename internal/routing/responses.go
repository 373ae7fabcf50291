package routing

import (
	"time"

	"submission-judge/internal/jobs"
	"submission-judge/internal/judge"
)

type ErrorResponse struct {
	Errors []string `json:"errors"`
	Code   int      `json:"code"`
}

type QueuedSubmissionResponse struct {
	ID string `json:"id"`
}

type SubmissionStatusResponse struct {
	ID     string        `json:"id"`
	State  jobs.State    `json:"state"`
	Result *judge.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	// Retryable is set once the job is terminal. True means the failure was
	// caused by the judge and the submission can be sent again later.
	Retryable *bool `json:"retryable,omitempty"`

	EnqueuedAt time.Time  `json:"enqueued_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type LanguageResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Judged bool   `json:"judged"`
}

func newSubmissionStatusResponse(job *jobs.Job) SubmissionStatusResponse {
	resp := SubmissionStatusResponse{
		ID:         job.ID,
		State:      job.State,
		Result:     job.Result,
		Error:      job.Error,
		EnqueuedAt: job.EnqueuedAt,
		FinishedAt: job.FinishedAt,
	}

	if job.State.IsTerminal() {
		// a failed job without a result never got a verdict, the judge broke.
		retryable := job.Result == nil || job.Result.Status.Retryable()
		resp.Retryable = &retryable
	}

	return resp
}
