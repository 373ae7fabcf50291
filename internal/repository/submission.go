package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Submission is the graded record of a submit mode judging attempt. Dry runs
// are never written.
type Submission struct {
	// ID is the job id the submission was judged under.
	ID          string `gorm:"primarykey"`
	ProblemID   string `gorm:"index"`
	PrincipalID string `gorm:"index"`
	Language    string
	SourceCode  string

	Status      string
	PassedCases int
	TotalCases  int

	CompileMs int64
	RuntimeMs int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Client) RecordSubmission(ctx context.Context, submission *Submission) error {
	result := c.DB.WithContext(ctx).Save(submission)
	return errors.Wrapf(result.Error, "failed to record submission %s", submission.ID)
}
