package tts

import (
	"context"

	"github.com/dgnsrekt/narrate/internal/audio"
)

// Synthesizer converts one chunk of text to audio. Implementations may
// serialize calls internally; callers must not rely on real parallelism.
type Synthesizer interface {
	// Synthesize returns PCM audio for text. Network failures should be
	// reported with NetworkError so that playback can be retried.
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Close releases any resources held by the engine.
	Close() error
}

// Warmer is implemented by engines with a slow start, such as a model that
// must load before the first request.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Sink schedules audio for immediate playback. Play must not block until
// the clip finishes; the caller waits for the clip duration itself.
type Sink interface {
	// Play queues clip behind anything already playing.
	Play(clip *audio.Clip) error

	// Stop discards queued and playing audio.
	Stop() error
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name       string  // Engine name (e.g., "daemon", "piper")
	Voice      string  // Voice or model identifier
	Speed      float64 // Speaking rate multiplier
	SampleRate int     // Audio sample rate in Hz
	IsOnline   bool    // Whether the engine requires internet
}
