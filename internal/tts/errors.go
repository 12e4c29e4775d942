package tts

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common TTS errors
var (
	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrEngineNotAvailable indicates the selected engine is not installed or configured
	ErrEngineNotAvailable = errors.New("selected TTS engine is not available")

	// ErrEngineClosed indicates the engine was used after Close
	ErrEngineClosed = errors.New("TTS engine is closed")

	// ErrTextTooLong indicates a chunk exceeds what the engine accepts
	ErrTextTooLong = errors.New("text too long for engine")

	// ErrAudioDeviceUnavailable indicates audio device cannot be accessed
	ErrAudioDeviceUnavailable = errors.New("audio device unavailable")
)

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Synthesis errors. Only ErrorCodeNetwork is retried.
	ErrorCodeNetwork           ErrorCode = "NETWORK"
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"

	// Audio errors
	ErrorCodeAudioFailure ErrorCode = "AUDIO_FAILURE"
	ErrorCodeAudioDevice  ErrorCode = "AUDIO_DEVICE"
	ErrorCodeAudioFormat  ErrorCode = "AUDIO_FORMAT"

	// Input errors
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// System errors
	ErrorCodeCanceled ErrorCode = "CANCELED"
)

// TTSError represents a TTS-specific error with additional context
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// NewTTSError creates a new TTS error with context
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *TTSError) WithContext(key string, value any) *TTSError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsFatal returns true if the error means the engine or device cannot be
// used again without reconfiguration.
func (e *TTSError) IsFatal() bool {
	switch e.Code {
	case ErrorCodeEngineUnavailable, ErrorCodeAudioDevice:
		return true
	default:
		return false
	}
}

// IsRetryable returns true if the whole playback may be attempted again.
func (e *TTSError) IsRetryable() bool {
	return e.Code == ErrorCodeNetwork
}

// NetworkError marks cause as a transient network failure.
func NetworkError(message string, cause error) *TTSError {
	return NewTTSError(ErrorCodeNetwork, message, cause)
}

// EngineError marks cause as a local synthesis failure.
func EngineError(message string, cause error) *TTSError {
	return NewTTSError(ErrorCodeEngineFailure, message, cause)
}

// IsRetryable classifies err. A TTSError decides by its code; otherwise any
// net.Error in the chain counts as network-class. Cancellation never does.
func IsRetryable(err error) bool {
	if err == nil || IsCanceled(err) {
		return false
	}
	var te *TTSError
	if errors.As(err, &te) {
		return te.IsRetryable()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsCanceled reports whether err is a cancellation rather than a failure.
func IsCanceled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var te *TTSError
	return errors.As(err, &te) && te.Code == ErrorCodeCanceled
}
