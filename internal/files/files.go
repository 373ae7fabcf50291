package files

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the requested object does not exist in the
// configured storage.
var ErrNotFound = errors.New("file not found")

type Backend string

const (
	LocalBackend Backend = "local"
	S3Backend    Backend = "s3"
	MinioBackend Backend = "minio"
)

type File struct {
	ID   string
	Name string
	Data []byte
}

// Files stores objects addressed by an owning identifier (e.g. a problem id)
// and a name within it.
type Files interface {
	WriteFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, id string, name string) ([]byte, error)
}

type LocalConfig struct {
	LocalRootPath string
}

type S3Config struct {
	BucketName string
}

type MinioConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	BucketName string
}

type Config struct {
	Backend Backend

	Local *LocalConfig
	S3    *S3Config
	Minio *MinioConfig

	// ForceLocalMode ignores the backend and reads from local disk, used
	// during development.
	ForceLocalMode bool
}

// NewFilesHandler creates the storage handler for the configured backend.
func NewFilesHandler(config *Config) (Files, error) {
	backend := config.Backend

	if config.ForceLocalMode {
		backend = LocalBackend
	}

	log.Info().Str("backend", string(backend)).Msg("creating file handler")

	switch backend {
	case LocalBackend, "":
		if config.Local == nil {
			return nil, errors.New("local file configuration is required")
		}

		return newLocalFiles(config.Local)
	case S3Backend:
		if config.S3 == nil || config.S3.BucketName == "" {
			return nil, errors.New("s3 bucket name is required")
		}

		return newS3Files(config.S3)
	case MinioBackend:
		if config.Minio == nil {
			return nil, errors.New("minio configuration is required")
		}

		return newMinioFiles(config.Minio)
	}

	return nil, errors.Errorf("unknown file backend %s", backend)
}

func objectKey(id string, name string) string {
	return id + "/" + name
}
