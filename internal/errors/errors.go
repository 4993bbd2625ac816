/**
 * Custom error types for the calibration worker
 *
 * Every fault that crosses the calibrator boundary is wrapped in a
 * CalibrationError carrying a stable code, so callers can map failures
 * onto terminal pipeline states without inspecting error strings.
 */

package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Pipeline outcomes
	ErrorNoTextDetected     ErrorCode = "NO_TEXT_DETECTED"
	ErrorVerificationFailed ErrorCode = "VERIFICATION_FAILED"

	// Ground-truth extraction faults
	ErrorAIExtraction   ErrorCode = "AI_EXTRACTION_FAILED"
	ErrorNetworkTimeout ErrorCode = "NETWORK_TIMEOUT"
	ErrorAuthFailed     ErrorCode = "AUTH_FAILED"

	// Infrastructure faults
	ErrorEngineFailed  ErrorCode = "ENGINE_FAILED"
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// CalibrationError represents a structured calibration fault
type CalibrationError struct {
	Code      ErrorCode
	Message   string
	RunID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *CalibrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CalibrationError) Unwrap() error {
	return e.Cause
}

// CodeOf returns the error code carried by err, or "" when err is not a
// CalibrationError.
func CodeOf(err error) ErrorCode {
	var ce *CalibrationError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsTransport reports whether err originated at the transport layer of the
// AI vision call (timeout, auth, connection). Transport faults map onto the
// FailedAIError terminal state; anything else from the extractor is treated
// as "AI found nothing".
func IsTransport(err error) bool {
	switch CodeOf(err) {
	case ErrorNetworkTimeout, ErrorAuthFailed, ErrorAIExtraction:
		return true
	}
	return false
}

// Factory functions for common errors

func NewAIExtractionError(runID string, cause error) *CalibrationError {
	return &CalibrationError{
		Code:      ErrorAIExtraction,
		Message:   "AI vision text extraction failed",
		RunID:     runID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewNetworkTimeoutError(runID string, timeout time.Duration, cause error) *CalibrationError {
	return &CalibrationError{
		Code:      ErrorNetworkTimeout,
		Message:   fmt.Sprintf("AI vision call timed out after %v", timeout),
		RunID:     runID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout": timeout.String(),
		},
		Cause: cause,
	}
}

func NewAuthFailedError(runID string, status int) *CalibrationError {
	return &CalibrationError{
		Code:      ErrorAuthFailed,
		Message:   fmt.Sprintf("AI vision backend rejected credentials (HTTP %d)", status),
		RunID:     runID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"http_status": status,
		},
	}
}

func NewEngineFailedError(runID string, op string, cause error) *CalibrationError {
	return &CalibrationError{
		Code:      ErrorEngineFailed,
		Message:   fmt.Sprintf("OCR engine operation failed: %s", op),
		RunID:     runID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": op,
		},
		Cause: cause,
	}
}

func NewStorageFailedError(runID string, cause error) *CalibrationError {
	return &CalibrationError{
		Code:      ErrorStorageFailed,
		Message:   "failed to persist calibration profile",
		RunID:     runID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for diagnostics serialization
func (e *CalibrationError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
