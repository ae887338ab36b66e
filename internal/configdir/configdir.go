// Package configdir resolves the directory rex reads and writes its
// certificate files in, absent an explicit override.
package configdir

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// ErrHomeNotSet is returned when neither HOME nor USERPROFILE is set.
var ErrHomeNotSet = errors.New("config dir: home directory environment variable not set")

// Default returns "<home>/.config/rex", reading HOME on Unix and
// USERPROFILE on Windows.
func Default() (string, error) {
	key := "HOME"
	if runtime.GOOS == "windows" {
		key = "USERPROFILE"
	}
	home := os.Getenv(key)
	if home == "" {
		return "", ErrHomeNotSet
	}
	return filepath.Join(home, ".config", "rex"), nil
}
