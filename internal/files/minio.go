package files

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioFiles reads and writes objects on a self hosted S3 compatible store.
type MinioFiles struct {
	config *MinioConfig
	client *minio.Client
}

func newMinioFiles(config *MinioConfig) (*MinioFiles, error) {
	if config.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}

	if config.BucketName == "" {
		return nil, errors.New("minio bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to create minio client")
	}

	return &MinioFiles{config: config, client: client}, nil
}

func (m *MinioFiles) WriteFile(ctx context.Context, file *File) error {
	_, err := m.client.PutObject(ctx, m.config.BucketName, objectKey(file.ID, file.Name),
		bytes.NewReader(file.Data), int64(len(file.Data)), minio.PutObjectOptions{ContentType: "application/json"})

	if err != nil {
		return errors.Wrapf(err, "failed to create %s file", file.Name)
	}

	return nil
}

func (m *MinioFiles) GetFile(ctx context.Context, id string, name string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.config.BucketName, objectKey(id, name), minio.GetObjectOptions{})

	if err != nil {
		return nil, m.wrapError(err, id, name)
	}

	defer object.Close()

	// the object is fetched lazily, a missing key only surfaces on read.
	data, err := io.ReadAll(object)

	if err != nil {
		return nil, m.wrapError(err, id, name)
	}

	return data, nil
}

func (m *MinioFiles) wrapError(err error, id string, name string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errors.Wrapf(ErrNotFound, "cannot locate file %s for %s", name, id)
	}

	return errors.Wrapf(err, "failed to get the minio file %s by id %s", name, id)
}
