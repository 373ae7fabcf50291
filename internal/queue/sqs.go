package queue

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// defaultVisibilityTimeout is the visibility a received message is extended
// to while it is handled.
const defaultVisibilityTimeout = time.Minute

type SqsConfig struct {
	QueueURL        string
	WaitTimeSeconds int

	// VisibilityTimeout is extended every half period while a message is
	// handled, so a long judging attempt is not delivered to a second worker.
	VisibilityTimeout time.Duration

	// Workers is the number of polling loops, each receives and handles one
	// message at a time.
	Workers  int
	Consumer bool
}

type SqsQueue struct {
	config   *SqsConfig
	sqsQueue sqsiface.SQSAPI
	handler  Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newSqsQueue(config *SqsConfig, handler Handler) (*SqsQueue, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to create aws session")
	}

	return newSqsQueueWithClient(config, sqs.New(sess), handler)
}

func newSqsQueueWithClient(config *SqsConfig, client sqsiface.SQSAPI, handler Handler) (*SqsQueue, error) {
	if config.Consumer && handler == nil {
		return nil, errors.New("sqs consumer requires a handler")
	}

	ctx, cancel := context.WithCancel(context.Background())

	queue := &SqsQueue{
		config:   config,
		sqsQueue: client,
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
	}

	// if we are a consumer lets go and start polling for messages, every
	// worker checks the context before each receive.
	if config.Consumer {
		for i := 0; i < workerCount(config.Workers); i++ {
			queue.wg.Add(1)
			go queue.startPollingMessages(i)
		}
	}

	return queue, nil
}

func (s *SqsQueue) startPollingMessages(worker int) {
	defer s.wg.Done()

	for s.ctx.Err() == nil {
		output, err := s.sqsQueue.ReceiveMessageWithContext(s.ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(s.config.QueueURL),
			MaxNumberOfMessages: aws.Int64(1),
			WaitTimeSeconds:     aws.Int64(int64(s.config.WaitTimeSeconds)),
		})

		if err != nil {
			if s.ctx.Err() == nil {
				log.Error().Err(err).Int("worker", worker).Msg("failed to gather SQS messages")
			}

			continue
		}

		for _, message := range output.Messages {
			s.handleMessage(worker, message)
		}
	}
}

// handleMessage deletes the message once handled. A failed message is left
// on the queue and delivered again after its visibility timeout.
func (s *SqsQueue) handleMessage(worker int, message *sqs.Message) {
	messageID := aws.StringValue(message.MessageId)

	if body := aws.StringValue(message.Body); body != "" {
		done := make(chan struct{})
		go s.extendVisibility(message, done)

		err := s.handler.HandleMessage(s.ctx, []byte(body))
		close(done)

		if err != nil {
			log.Error().Err(err).Int("worker", worker).Str("id", messageID).Msg("failed to handle SQS message")
			return
		}
	}

	// the handler finished, the delete must not be skipped because we are
	// stopping.
	if _, err := s.sqsQueue.DeleteMessageWithContext(context.Background(), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.config.QueueURL),
		ReceiptHandle: message.ReceiptHandle,
	}); err != nil {
		log.Error().Err(err).Str("id", messageID).Msg("failed to delete SQS message")
	}
}

// extendVisibility keeps the message hidden from other consumers until done is
// closed.
func (s *SqsQueue) extendVisibility(message *sqs.Message, done <-chan struct{}) {
	timeout := s.config.VisibilityTimeout

	if timeout <= 0 {
		timeout = defaultVisibilityTimeout
	}

	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_, err := s.sqsQueue.ChangeMessageVisibilityWithContext(context.Background(), &sqs.ChangeMessageVisibilityInput{
				QueueUrl:          aws.String(s.config.QueueURL),
				ReceiptHandle:     message.ReceiptHandle,
				VisibilityTimeout: aws.Int64(int64(math.Ceil(timeout.Seconds()))),
			})

			if err != nil {
				log.Warn().Err(err).Str("id", aws.StringValue(message.MessageId)).Msg("failed to extend SQS message visibility")
			}
		}
	}
}

func (s *SqsQueue) SubmitMessageToQueue(ctx context.Context, data []byte) error {
	_, err := s.sqsQueue.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		MessageBody: aws.String(string(data)),
		QueueUrl:    aws.String(s.config.QueueURL),
	})

	return errors.Wrap(err, "failed to send SQS message")
}

func (s *SqsQueue) Stop() {
	s.once.Do(func() {
		log.Info().Msg("stopping SQS queue")

		s.cancel()
		s.wg.Wait()
	})
}
