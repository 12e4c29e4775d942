package tts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network code", NetworkError("gtts request failed", errors.New("503")), true},
		{"wrapped network code", fmt.Errorf("chunk 2: %w", NetworkError("reset", nil)), true},
		{"engine failure", EngineError("piper exited", errors.New("exit status 1")), false},
		{"engine failure wrapping net error", EngineError("bad model", opErr), false},
		{"bare net error", fmt.Errorf("synthesize: %w", opErr), true},
		{"plain error", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
		{"canceled code", NewTTSError(ErrorCodeCanceled, "stopped", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTTSError(t *testing.T) {
	cause := errors.New("device busy")
	err := NewTTSError(ErrorCodeAudioDevice, "open output", cause).WithContext("sample_rate", 44100)

	if got, want := err.Error(), "AUDIO_DEVICE: open output: device busy"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() did not find the cause")
	}
	if !err.IsFatal() {
		t.Error("audio device errors should be fatal")
	}
	if err.Context["sample_rate"] != 44100 {
		t.Errorf("Context = %v", err.Context)
	}

	bare := &TTSError{Code: ErrorCodeInvalidInput, Message: "empty"}
	bare.WithContext("k", "v")
	if got := bare.Error(); got != "INVALID_INPUT: empty" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsCanceled(t *testing.T) {
	if !IsCanceled(fmt.Errorf("wait: %w", context.Canceled)) {
		t.Error("wrapped context.Canceled not detected")
	}
	if IsCanceled(context.DeadlineExceeded) {
		t.Error("deadline exceeded is not a cancellation")
	}
	if IsCanceled(errors.New("other")) {
		t.Error("plain error treated as cancellation")
	}
}
