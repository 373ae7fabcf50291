package queue

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type LocalConfig struct {
	// Workers is the number of messages handled at once.
	Workers int
	// Buffer is the number of messages that can wait before publishing blocks.
	Buffer int
}

// LocalQueue is a buffered channel consumed by a fixed pool of workers.
type LocalQueue struct {
	messages chan []byte
	handler  Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newLocalQueue(config *LocalConfig, handler Handler) (*LocalQueue, error) {
	if handler == nil {
		return nil, errors.New("local queue requires a handler")
	}

	buffer := config.Buffer

	if buffer <= 0 {
		buffer = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	queue := &LocalQueue{
		messages: make(chan []byte, buffer),
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < workerCount(config.Workers); i++ {
		queue.wg.Add(1)
		go queue.work(i)
	}

	return queue, nil
}

func (l *LocalQueue) work(worker int) {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		case message := <-l.messages:
			if err := l.handler.HandleMessage(l.ctx, message); err != nil {
				log.Error().Err(err).Int("worker", worker).Msg("failed to handle local message")
			}
		}
	}
}

func (l *LocalQueue) SubmitMessageToQueue(ctx context.Context, data []byte) error {
	select {
	case <-l.ctx.Done():
		return errors.New("local queue is stopped")
	default:
	}

	select {
	case l.messages <- data:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "failed to submit local message")
	case <-l.ctx.Done():
		return errors.New("local queue is stopped")
	}
}

func (l *LocalQueue) Stop() {
	l.once.Do(func() {
		log.Info().Msg("stopping local queue")

		l.cancel()
		l.wg.Wait()
	})
}
