package svc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission-judge/internal/files"
	"submission-judge/internal/parser"
	"submission-judge/internal/queue"
)

func TestNewFilesLocalMode(t *testing.T) {
	handler, err := NewFiles(parser.Arguments{
		StorageBackend:   "s3",
		StorageLocalRoot: t.TempDir(),
		ForceLocalMode:   true,
	})
	require.NoError(t, err)

	assert.IsType(t, &files.LocalFiles{}, handler)
}

func TestNewFilesUnknownBackend(t *testing.T) {
	_, err := NewFiles(parser.Arguments{StorageBackend: "ftp"})
	assert.Error(t, err)
}

func TestNewQueueLocalMode(t *testing.T) {
	svcCtx := &ServiceContext{Args: parser.Arguments{QueueBackend: "nsq", ForceLocalMode: true, Workers: 1}}

	var (
		mu       sync.Mutex
		received []string
	)

	q, err := svcCtx.NewQueue(queue.HandlerFunc(func(_ context.Context, body []byte) error {
		mu.Lock()
		defer mu.Unlock()

		received = append(received, string(body))
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, q.SubmitMessageToQueue(context.Background(), []byte(`{"job_id":"1"}`)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	q.Stop()
}

func TestNewQueueLocalModeNeedsConsumer(t *testing.T) {
	svcCtx := &ServiceContext{Args: parser.Arguments{ForceLocalMode: true}}

	_, err := svcCtx.NewQueue(nil)
	assert.Error(t, err)
}
