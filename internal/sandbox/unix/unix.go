package unix

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// BindSource returns the host side of a docker bind mount for the directory.
// Docker needs absolute paths, and unix style ones when the host is windows.
func BindSource(path string) (string, error) {
	abs, err := filepath.Abs(path)

	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve absolute path of %s", path)
	}

	if runtime.GOOS == "windows" {
		return ConvertPathToUnix(abs), nil
	}

	return abs, nil
}

// ConvertPathToUnix takes a complete windows path and converts it to the unix
// form docker understands. Instead of C:\a\b => /c/a/b
func ConvertPathToUnix(path string) string {
	split := strings.SplitN(path, ":", 2)

	if len(split) != 2 {
		return strings.ReplaceAll(path, "\\", "/")
	}

	rootDrive := strings.ToLower(split[0])

	return strings.ReplaceAll(fmt.Sprintf("/%s%s", rootDrive, split[1]), "\\", "/")
}
