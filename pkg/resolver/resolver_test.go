package resolver

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFindsExecutableOnPath(t *testing.T) {
	path, err := Resolve("bash")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path), "expected absolute path, got %q", path)
	assert.True(t, strings.HasSuffix(path, "bash"))
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve("no-such-executable-rex-test")
	assert.True(t, errors.Is(err, ErrNotFound))
}
