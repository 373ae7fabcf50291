package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSqs serves queued bodies one receive at a time.
type fakeSqs struct {
	sqsiface.SQSAPI

	mu       sync.Mutex
	bodies   []string
	sent     []string
	deleted  []string
	receives []int64
	extended map[string][]int64
}

func (f *fakeSqs) ReceiveMessageWithContext(ctx aws.Context, input *sqs.ReceiveMessageInput, _ ...request.Option) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()

	f.receives = append(f.receives, aws.Int64Value(input.MaxNumberOfMessages))

	if len(f.bodies) > 0 {
		body := f.bodies[0]
		f.bodies = f.bodies[1:]
		f.mu.Unlock()

		return &sqs.ReceiveMessageOutput{Messages: []*sqs.Message{{
			Body:          aws.String(body),
			MessageId:     aws.String("id-" + body),
			ReceiptHandle: aws.String("receipt-" + body),
		}}}, nil
	}

	f.mu.Unlock()

	// long polling without messages.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return &sqs.ReceiveMessageOutput{}, nil
	}
}

func (f *fakeSqs) DeleteMessageWithContext(_ aws.Context, input *sqs.DeleteMessageInput, _ ...request.Option) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, aws.StringValue(input.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSqs) ChangeMessageVisibilityWithContext(_ aws.Context, input *sqs.ChangeMessageVisibilityInput, _ ...request.Option) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.extended == nil {
		f.extended = map[string][]int64{}
	}

	receipt := aws.StringValue(input.ReceiptHandle)
	f.extended[receipt] = append(f.extended[receipt], aws.Int64Value(input.VisibilityTimeout))
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSqs) SendMessageWithContext(_ aws.Context, input *sqs.SendMessageInput, _ ...request.Option) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, aws.StringValue(input.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func TestSqsQueueConsumesAndDeletes(t *testing.T) {
	client := &fakeSqs{bodies: []string{"ok", "fail", "ok-again"}}

	var wg sync.WaitGroup
	wg.Add(3)

	queue, err := newSqsQueueWithClient(&SqsConfig{QueueURL: "https://sqs/judge", Consumer: true}, client,
		HandlerFunc(func(_ context.Context, body []byte) error {
			defer wg.Done()

			if string(body) == "fail" {
				return errors.New("store unavailable")
			}

			return nil
		}))

	require.NoError(t, err)

	wg.Wait()
	queue.Stop()

	client.mu.Lock()
	defer client.mu.Unlock()

	assert.Equal(t, []string{"receipt-ok", "receipt-ok-again"}, client.deleted, "failed messages stay on the queue")

	for _, max := range client.receives {
		assert.Equal(t, int64(1), max)
	}
}

func TestSqsQueueExtendsVisibilityWhileHandling(t *testing.T) {
	client := &fakeSqs{bodies: []string{"slow", "fast"}}

	var wg sync.WaitGroup
	wg.Add(2)

	queue, err := newSqsQueueWithClient(&SqsConfig{
		QueueURL:          "https://sqs/judge",
		VisibilityTimeout: 40 * time.Millisecond,
		Consumer:          true,
	}, client, HandlerFunc(func(_ context.Context, body []byte) error {
		defer wg.Done()

		if string(body) == "slow" {
			time.Sleep(150 * time.Millisecond)
		}

		return nil
	}))

	require.NoError(t, err)

	wg.Wait()
	queue.Stop()

	client.mu.Lock()
	defer client.mu.Unlock()

	extended := client.extended["receipt-slow"]
	require.NotEmpty(t, extended, "a long running message has its visibility extended")

	for _, seconds := range extended {
		assert.Equal(t, int64(1), seconds)
	}

	assert.Empty(t, client.extended["receipt-fast"])
	assert.Equal(t, []string{"receipt-slow", "receipt-fast"}, client.deleted)
}

func TestSqsQueueProducer(t *testing.T) {
	client := &fakeSqs{}

	queue, err := newSqsQueueWithClient(&SqsConfig{QueueURL: "https://sqs/judge"}, client, nil)
	require.NoError(t, err)

	defer queue.Stop()

	require.NoError(t, queue.SubmitMessageToQueue(context.Background(), []byte(`{"job_id":"1"}`)))
	assert.Equal(t, []string{`{"job_id":"1"}`}, client.sent)
	assert.Empty(t, client.receives, "producers never poll")
}
