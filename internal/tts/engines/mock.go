package engines

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/tts"
)

// MockConfig configures the mock engine.
type MockConfig struct {
	// WordsPerMinute sizes the silent output. Defaults to 180.
	WordsPerMinute int `yaml:"words_per_minute" mapstructure:"words_per_minute"`

	// Latency is added to every request.
	Latency time.Duration `yaml:"latency" mapstructure:"latency"`

	// SampleRate of the output. Defaults to 16000.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MockEngine returns silence as long as the text would take to read. It
// needs no external tools and is used for tests, dry runs and --mute.
type MockEngine struct {
	cfg MockConfig

	mu       sync.Mutex
	failures []error
	requests []string
	closed   bool
}

// NewMockEngine creates a mock engine.
func NewMockEngine(cfg MockConfig) *MockEngine {
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = 180
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &MockEngine{cfg: cfg}
}

// FailNext makes the next calls fail with errs, in order.
func (e *MockEngine) FailNext(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, errs...)
}

// Requests returns every text passed to Synthesize.
func (e *MockEngine) Requests() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.requests...)
}

// Synthesize waits for the configured latency and returns silence.
func (e *MockEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, tts.ErrEngineClosed
	}
	e.requests = append(e.requests, text)
	var fail error
	if len(e.failures) > 0 {
		fail, e.failures = e.failures[0], e.failures[1:]
	}
	e.mu.Unlock()

	if e.cfg.Latency > 0 {
		timer := time.NewTimer(e.cfg.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	format := audio.Mono16(e.cfg.SampleRate)
	return &audio.Clip{Data: format.Silence(e.readingTime(text)), Format: format}, nil
}

func (e *MockEngine) readingTime(text string) time.Duration {
	words := max(len(strings.Fields(text)), 1)
	return time.Duration(words) * time.Minute / time.Duration(e.cfg.WordsPerMinute)
}

// Info returns engine capabilities and configuration.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{Name: "mock", Speed: 1, SampleRate: e.cfg.SampleRate}
}

// Close marks the engine closed.
func (e *MockEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
