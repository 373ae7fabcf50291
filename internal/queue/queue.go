package queue

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Backend string

const (
	LocalBackend Backend = "local"
	NsqBackend   Backend = "nsq"
	SqsBackend   Backend = "sqs"
)

// Handler processes one message. Returning an error asks the transport to
// deliver the message again.
type Handler interface {
	HandleMessage(ctx context.Context, body []byte) error
}

type HandlerFunc func(ctx context.Context, body []byte) error

func (f HandlerFunc) HandleMessage(ctx context.Context, body []byte) error {
	return f(ctx, body)
}

type Queue interface {
	SubmitMessageToQueue(ctx context.Context, data []byte) error
	// Stop stops consuming and waits for in flight messages to finish.
	Stop()
}

type Config struct {
	Backend Backend

	// ForceLocalMode uses the in process queue regardless of the backend,
	// the api and the consumer then have to share a process.
	ForceLocalMode bool

	Nsq   *NsqConfig
	Sqs   *SqsConfig
	Local *LocalConfig

	// Handler is required when the queue consumes messages.
	Handler Handler
}

func NewQueue(config *Config) (Queue, error) {
	backend := config.Backend

	if config.ForceLocalMode {
		backend = LocalBackend
	}

	log.Info().Str("backend", string(backend)).Msg("creating queue")

	switch backend {
	case LocalBackend, "":
		local := config.Local

		if local == nil {
			local = &LocalConfig{}
		}

		return newLocalQueue(local, config.Handler)
	case NsqBackend:
		if config.Nsq == nil {
			return nil, errors.New("nsq configuration is required")
		}

		return newNsqQueue(config.Nsq, config.Handler)
	case SqsBackend:
		if config.Sqs == nil || config.Sqs.QueueURL == "" {
			return nil, errors.New("sqs queue url is required")
		}

		return newSqsQueue(config.Sqs, config.Handler)
	}

	return nil, errors.Errorf("unknown queue backend %s", backend)
}

func workerCount(workers int) int {
	if workers <= 0 {
		return 1
	}

	return workers
}
