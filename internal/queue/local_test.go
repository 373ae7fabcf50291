package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueForceLocalMode(t *testing.T) {
	queue, err := NewQueue(&Config{
		Backend:        SqsBackend,
		ForceLocalMode: true,
		Handler:        HandlerFunc(func(context.Context, []byte) error { return nil }),
	})

	require.NoError(t, err)
	defer queue.Stop()

	assert.IsType(t, &LocalQueue{}, queue)
}

func TestNewQueueValidation(t *testing.T) {
	_, err := NewQueue(&Config{Backend: SqsBackend})
	assert.Error(t, err)

	_, err = NewQueue(&Config{Backend: NsqBackend})
	assert.Error(t, err)

	_, err = NewQueue(&Config{Backend: "kafka"})
	assert.Error(t, err)

	_, err = NewQueue(&Config{Backend: LocalBackend})
	assert.Error(t, err, "a local queue always consumes and needs a handler")
}

func TestLocalQueueDeliversMessages(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
		wg       sync.WaitGroup
	)

	wg.Add(3)

	queue, err := newLocalQueue(&LocalConfig{}, HandlerFunc(func(_ context.Context, body []byte) error {
		defer wg.Done()

		mu.Lock()
		received = append(received, string(body))
		mu.Unlock()

		return nil
	}))

	require.NoError(t, err)
	defer queue.Stop()

	for _, message := range []string{"a", "b", "c"} {
		require.NoError(t, queue.SubmitMessageToQueue(context.Background(), []byte(message)))
	}

	wg.Wait()

	assert.Equal(t, []string{"a", "b", "c"}, received, "a single worker handles messages in order")
}

func TestLocalQueueWorkersHandleOneMessageEach(t *testing.T) {
	var inFlight, peak int32

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(4)

	queue, err := newLocalQueue(&LocalConfig{Workers: 2}, HandlerFunc(func(context.Context, []byte) error {
		defer wg.Done()

		current := atomic.AddInt32(&inFlight, 1)

		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}

		<-release
		atomic.AddInt32(&inFlight, -1)
		return errors.New("handled with an error")
	}))

	require.NoError(t, err)
	defer queue.Stop()

	for i := 0; i < 4; i++ {
		require.NoError(t, queue.SubmitMessageToQueue(context.Background(), []byte("job")))
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestLocalQueueStop(t *testing.T) {
	queue, err := newLocalQueue(&LocalConfig{}, HandlerFunc(func(context.Context, []byte) error { return nil }))
	require.NoError(t, err)

	queue.Stop()
	queue.Stop()

	assert.Error(t, queue.SubmitMessageToQueue(context.Background(), []byte("late")))
}
