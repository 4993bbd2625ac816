package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationErrorFormatting(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewAIExtractionError("run-1", cause)

	assert.Contains(t, err.Error(), "AI_EXTRACTION_FAILED")
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorNetworkTimeout, CodeOf(NewNetworkTimeoutError("", 30*time.Second, nil)))
	assert.Equal(t, ErrorAuthFailed, CodeOf(NewAuthFailedError("", 401)))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))

	// Codes survive wrapping.
	wrapped := fmt.Errorf("extract: %w", NewStorageFailedError("run-2", nil))
	assert.Equal(t, ErrorStorageFailed, CodeOf(wrapped))
}

func TestIsTransport(t *testing.T) {
	assert.True(t, IsTransport(NewNetworkTimeoutError("", time.Second, nil)))
	assert.True(t, IsTransport(NewAuthFailedError("", 403)))
	assert.True(t, IsTransport(NewAIExtractionError("", nil)))
	assert.False(t, IsTransport(NewEngineFailedError("", "detect", nil)))
	assert.False(t, IsTransport(stderrors.New("plain")))
}

func TestToMap(t *testing.T) {
	err := NewEngineFailedError("run-3", "detect", stderrors.New("boom"))
	m := err.ToMap()

	assert.Equal(t, "ENGINE_FAILED", m["error_code"])
	assert.Equal(t, "detect", m["operation"])
	assert.Equal(t, "boom", m["cause"])
	require.Contains(t, m, "timestamp")
}
