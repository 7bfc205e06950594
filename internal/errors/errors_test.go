package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigErrorIsFatal(t *testing.T) {
	err := ConfigErrorf("no GxP.MD file found at %s", "/repo/GxP.MD")

	assert.True(t, err.IsFatal())
	assert.True(t, IsFatal(err))
	assert.True(t, IsConfig(err))
	assert.Equal(t, "no GxP.MD file found at /repo/GxP.MD", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := FileSystemError(cause, "write compliance-status.md")

	require.NotNil(t, err)
	assert.Equal(t, "write compliance-status.md: permission denied", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, Wrap(nil, ErrorTypeStorage, SeverityDegraded, "unused"))
}

func TestStorageErrorIsNotFatal(t *testing.T) {
	err := StorageError(fmt.Errorf("disk full"), "record sweep")
	assert.False(t, IsFatal(err))
	assert.Equal(t, ErrorTypeStorage, GetType(err))
}

func TestIsMatchesOnType(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", ConfigError("bad frontmatter"))

	assert.True(t, stderrors.Is(wrapped, ConfigError("")))
	assert.False(t, stderrors.Is(wrapped, StorageError(fmt.Errorf("x"), "")))
	assert.True(t, IsConfig(wrapped))
}

func TestDetailedString(t *testing.T) {
	err := ConfigError("invalid risk matrix").
		WithContext("level", "HIGH").
		WithContext("field", "coverage_threshold")

	assert.Equal(t,
		"[CONFIG] invalid risk matrix\n  field: coverage_threshold\n  level: HIGH\n",
		err.DetailedString())
}
