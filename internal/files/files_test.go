package files

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilesHandler(t *testing.T) {
	t.Run("force local mode overrides the backend", func(t *testing.T) {
		handler, err := NewFilesHandler(&Config{
			Backend:        S3Backend,
			Local:          &LocalConfig{LocalRootPath: t.TempDir()},
			ForceLocalMode: true,
		})

		require.NoError(t, err)
		assert.IsType(t, &LocalFiles{}, handler)
	})

	t.Run("s3 requires a bucket", func(t *testing.T) {
		_, err := NewFilesHandler(&Config{Backend: S3Backend, S3: &S3Config{}})
		assert.Error(t, err)
	})

	t.Run("minio requires an endpoint", func(t *testing.T) {
		_, err := NewFilesHandler(&Config{Backend: MinioBackend, Minio: &MinioConfig{BucketName: "testcases"}})
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewFilesHandler(&Config{Backend: "ftp"})
		assert.Error(t, err)
	})
}

func TestLocalFiles(t *testing.T) {
	ctx := context.Background()

	handler, err := newLocalFiles(&LocalConfig{LocalRootPath: t.TempDir()})
	require.NoError(t, err)

	t.Run("round trips a file", func(t *testing.T) {
		require.NoError(t, handler.WriteFile(ctx, &File{ID: "two-sum", Name: "testcases.json", Data: []byte(`{"testcases":[]}`)}))

		data, err := handler.GetFile(ctx, "two-sum", "testcases.json")
		require.NoError(t, err)
		assert.Equal(t, `{"testcases":[]}`, string(data))
	})

	t.Run("missing files are not found", func(t *testing.T) {
		_, err := handler.GetFile(ctx, "unknown", "testcases.json")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		_, err := handler.GetFile(ctx, "..", "testcases.json")
		assert.Error(t, err)

		_, err = handler.GetFile(ctx, "two-sum", "../../etc/passwd")
		assert.Error(t, err)
	})
}
