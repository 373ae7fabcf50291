package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/judge"
	"submission-judge/internal/repository"
	"submission-judge/internal/testcases"
)

type Judge interface {
	Judge(ctx context.Context, request *judge.Request) (*judge.Result, error)
}

// SubmissionRecorder persists graded submissions.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, submission *repository.Submission) error
}

type ConsumerConfig struct {
	Store Store
	Judge Judge
	// Recorder is optional, submit mode results are not persisted without it.
	Recorder SubmissionRecorder
}

// Consumer judges queued jobs one message at a time.
type Consumer struct {
	store    Store
	judge    Judge
	recorder SubmissionRecorder
	now      func() time.Time
}

func NewConsumer(config *ConsumerConfig) (*Consumer, error) {
	if config.Store == nil || config.Judge == nil {
		return nil, errors.New("consumer requires a store and a judge")
	}

	return &Consumer{
		store:    config.Store,
		judge:    config.Judge,
		recorder: config.Recorder,
		now:      time.Now,
	}, nil
}

// HandleMessage judges the job referenced by the message. Judging failures are
// stored on the job and never returned, an error is only returned when the
// message should be delivered again.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
	var message Message

	if err := json.Unmarshal(body, &message); err != nil || message.JobID == "" {
		log.Error().Err(err).Str("body", string(body)).Msg("dropping malformed job message")
		return nil
	}

	job, err := c.store.Get(ctx, message.JobID)

	if errors.Is(err, ErrJobNotFound) {
		log.Warn().Str("jobID", message.JobID).Msg("dropping message of unknown job")
		return nil
	}

	if err != nil {
		return err
	}

	if job.State.IsTerminal() {
		log.Info().Object("job", job).Msg("skipping redelivered job")
		return nil
	}

	started := c.now().UTC()
	job.State = Active
	job.StartedAt = &started
	job.Attempts++

	if err := c.store.Update(ctx, job); err != nil {
		return errors.Wrap(err, "failed to mark job active")
	}

	log.Info().Object("job", job).Msg("job active")

	result, judgeErr := c.run(ctx, job)

	if judgeErr != nil && ctx.Err() != nil {
		return c.requeue(job, judgeErr)
	}

	finished := c.now().UTC()
	job.FinishedAt = &finished

	switch {
	case judgeErr != nil:
		job.State = Failed
		job.Error = judgeErr.Error()
	case result == nil:
		job.State = Failed
		job.Error = "judging finished without a result"
	default:
		job.State = Completed
		job.Result = result
	}

	if err := c.store.Update(ctx, job); err != nil {
		return errors.Wrap(err, "failed to store job result")
	}

	if job.State == Failed {
		log.Error().Object("job", job).Str("error", job.Error).Msg("job failed")
	} else {
		log.Info().Object("job", job).Dur("took", finished.Sub(started)).Msg("job completed")
		c.record(ctx, job)
	}

	return nil
}

// run invokes the judge and turns a panic into an error so the consumer loop
// carries on with the next job.
func (c *Consumer) run(ctx context.Context, job *Job) (result *judge.Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error().Str("jobID", job.ID).Interface("panic", recovered).Msg("recovered from judging panic")
			result, err = nil, fmt.Errorf("judging panicked: %v", recovered)
		}
	}()

	if job.Request == nil {
		return nil, errors.New("job has no request")
	}

	request := *job.Request
	request.Attempt = job.Attempts

	return c.judge.Judge(ctx, &request)
}

// requeue puts an interrupted job back to waiting so the redelivered message
// judges it again.
func (c *Consumer) requeue(job *Job, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job.State = Waiting
	job.StartedAt = nil

	if err := c.store.Update(ctx, job); err != nil {
		log.Error().Err(err).Str("jobID", job.ID).Msg("failed to requeue interrupted job")
	}

	return errors.Wrap(cause, "judging interrupted")
}

// record persists submit mode results. Dry runs are never recorded.
func (c *Consumer) record(ctx context.Context, job *Job) {
	if c.recorder == nil || job.Request.Mode != testcases.Submit {
		return
	}

	err := c.recorder.RecordSubmission(ctx, &repository.Submission{
		ID:          job.ID,
		ProblemID:   job.Request.ProblemID,
		PrincipalID: job.Request.PrincipalID,
		Language:    string(job.Request.Language),
		SourceCode:  job.Request.SourceCode,
		Status:      string(job.Result.Status),
		PassedCases: job.Result.PassedCases(),
		TotalCases:  len(job.Result.PerCase),
		CompileMs:   job.Result.CompileMs,
		RuntimeMs:   job.Result.RuntimeMs(),
	})

	if err != nil {
		log.Error().Err(err).Str("jobID", job.ID).Msg("failed to record submission")
	}
}
