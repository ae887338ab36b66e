// Package resolver maps a user-supplied executable name to an absolute path
// via the host's executable search path.
package resolver

import (
	"errors"
	"os/exec"
	"path/filepath"

	"github.com/azazo1/rex/internal/errx"
)

// ErrNotFound means the executable is not on the host's search path.
var ErrNotFound = errors.New("executable not found")

// ErrRelativePath means the search path resolved the executable to a
// relative path, which the caller cannot safely use as a current_dir anchor
// or pass to the OS process APIs.
var ErrRelativePath = errors.New("relative executable path is not supported")

// Resolve looks up executable on the host's search path and returns its
// absolute path. It holds no state and consults the filesystem fresh on
// every call.
func Resolve(executable string) (string, error) {
	path, err := exec.LookPath(executable)
	if err != nil {
		return "", errx.Wrap(ErrNotFound, err)
	}
	if !filepath.IsAbs(path) {
		return "", ErrRelativePath
	}
	return path, nil
}
