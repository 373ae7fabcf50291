package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type LocalFiles struct {
	config *LocalConfig
}

// newLocalFiles is the local handler used during development to read test
// case documents from disk instead of a bucket.
func newLocalFiles(config *LocalConfig) (*LocalFiles, error) {
	if strings.TrimSpace(config.LocalRootPath) == "" {
		return nil, errors.New("local root path is required")
	}

	return &LocalFiles{config: config}, nil
}

func (l *LocalFiles) path(id string, name string) (string, error) {
	for _, part := range []string{id, name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", errors.Errorf("invalid file path segment %q", part)
		}
	}

	return filepath.Join(l.config.LocalRootPath, id, name), nil
}

func (l *LocalFiles) WriteFile(_ context.Context, file *File) error {
	filePath, err := l.path(file.ID, file.Name)

	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return errors.Wrap(err, "failed to make required directories")
	}

	if err := os.WriteFile(filePath, file.Data, 0o640); err != nil {
		return errors.Wrapf(err, "failed to write %s", file.Name)
	}

	return nil
}

func (l *LocalFiles) GetFile(_ context.Context, id string, name string) ([]byte, error) {
	filePath, err := l.path(id, name)

	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)

	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "cannot locate file %s for %s", name, id)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to get the local file %s by id %s", name, id)
	}

	return data, nil
}
