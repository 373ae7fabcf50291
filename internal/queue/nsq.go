package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// touchInterval keeps long judging attempts from hitting the nsqd message
// timeout.
const touchInterval = 30 * time.Second

type NsqConfig struct {
	Topic            string
	Channel          string
	NsqLookupAddress string
	NsqLookupPort    int
	// Workers is the number of concurrent handlers, each handles one message
	// at a time.
	Workers  int
	Consumer bool
	Producer bool
}

type NsqQueue struct {
	config   *NsqConfig
	producer *nsq.Producer
	consumer *nsq.Consumer

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newNsqQueue(config *NsqConfig, handler Handler) (*NsqQueue, error) {
	address := fmt.Sprintf("%s:%d", config.NsqLookupAddress, config.NsqLookupPort)
	ctx, cancel := context.WithCancel(context.Background())

	queue := &NsqQueue{config: config, ctx: ctx, cancel: cancel}

	if config.Producer {
		producer, err := nsq.NewProducer(address, nsq.NewConfig())

		if err != nil {
			cancel()
			return nil, errors.Wrap(err, "failed to create NSQ producer")
		}

		queue.producer = producer
	}

	if config.Consumer {
		if handler == nil {
			cancel()
			return nil, errors.New("nsq consumer requires a handler")
		}

		workers := workerCount(config.Workers)

		nsqConfig := nsq.NewConfig()
		nsqConfig.MaxInFlight = workers

		consumer, err := nsq.NewConsumer(config.Topic, config.Channel, nsqConfig)

		if err != nil {
			cancel()
			return nil, errors.Wrap(err, "failed to create NSQ consumer")
		}

		consumer.AddConcurrentHandlers(&nsqMessageHandler{ctx: ctx, handler: handler}, workers)

		if err := consumer.ConnectToNSQD(address); err != nil {
			cancel()
			return nil, errors.Wrap(err, "failed to connect to NSQ")
		}

		queue.consumer = consumer
	}

	return queue, nil
}

type nsqMessageHandler struct {
	ctx     context.Context
	handler Handler
}

func (h *nsqMessageHandler) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(touchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.Touch()
			}
		}
	}()

	return h.handler.HandleMessage(h.ctx, m.Body)
}

func (n *NsqQueue) SubmitMessageToQueue(_ context.Context, data []byte) error {
	if n.producer == nil {
		return errors.New("nsq queue is not a producer")
	}

	return errors.Wrap(n.producer.Publish(n.config.Topic, data), "failed to publish NSQ message")
}

func (n *NsqQueue) Stop() {
	n.once.Do(func() {
		log.Info().Msg("stopping NSQ queue")

		if n.consumer != nil {
			n.consumer.Stop()
			<-n.consumer.StopChan
		}

		n.cancel()

		if n.producer != nil {
			n.producer.Stop()
		}
	})
}
