package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/judge"
)

// Publisher delivers job messages to the consumers.
type Publisher interface {
	SubmitMessageToQueue(ctx context.Context, data []byte) error
}

type Service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher, now: time.Now}
}

// Enqueue stores the request as a waiting job and publishes it. The job is
// stored before publishing so a fast consumer always finds it.
func (s *Service) Enqueue(ctx context.Context, request *judge.Request) (string, error) {
	id := uuid.NewString()

	queued := *request
	queued.ID = id

	job := &Job{
		ID:         id,
		State:      Waiting,
		Request:    &queued,
		EnqueuedAt: s.now().UTC(),
	}

	if err := s.store.Create(ctx, job); err != nil {
		return "", errors.Wrap(err, "failed to store job")
	}

	message, err := json.Marshal(Message{JobID: id})

	if err != nil {
		return "", errors.Wrap(err, "failed to encode job message")
	}

	if err := s.publisher.SubmitMessageToQueue(ctx, message); err != nil {
		finished := s.now().UTC()
		job.State = Failed
		job.FinishedAt = &finished
		job.Error = "failed to enqueue job"

		if updateErr := s.store.Update(ctx, job); updateErr != nil {
			log.Error().Err(updateErr).Str("jobID", id).Msg("failed to mark unpublished job as failed")
		}

		return "", errors.Wrap(err, "failed to publish job")
	}

	log.Info().Object("job", job).Str("problemID", request.ProblemID).Msg("enqueued job")
	return id, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}
