package app

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/config"
	"github.com/dgnsrekt/narrate/internal/pipeline"
	"github.com/dgnsrekt/narrate/internal/tts"
	"github.com/dgnsrekt/narrate/internal/tts/engines"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.TTS.Engine = engines.NameMock
	cfg.TTS.Mock.WordsPerMinute = 60000
	cfg.Audio.Mute = true
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Playback.Retry.Delay = time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, log.New(io.Discard), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSpeakRecordsHistory(t *testing.T) {
	ctx := context.Background()
	mock := engines.NewMockEngine(engines.MockConfig{WordsPerMinute: 60000})
	a := newTestApp(t, testConfig(t), Options{Synthesizer: mock})

	st, err := a.Speak(ctx, "Hello there.\n\nGeneral Kenobi.")
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if st.State != pipeline.StateComplete || st.Total != 2 {
		t.Fatalf("Speak() status = %+v", st)
	}

	entries, err := a.History().Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != st.ID || e.Outcome != "complete" || e.Engine != "mock" {
		t.Errorf("entry = %+v", e)
	}
	if e.Chunks != 2 || e.Played != 2 || e.Attempts != 1 {
		t.Errorf("entry counts = %d/%d after %d attempts", e.Played, e.Chunks, e.Attempts)
	}
	if e.Preview != "Hello there." {
		t.Errorf("entry preview = %q", e.Preview)
	}
}

func TestSpeakUsesCache(t *testing.T) {
	ctx := context.Background()
	mock := engines.NewMockEngine(engines.MockConfig{WordsPerMinute: 60000})
	a := newTestApp(t, testConfig(t), Options{Synthesizer: mock})

	for i := 0; i < 2; i++ {
		if _, err := a.Speak(ctx, "Same words twice."); err != nil {
			t.Fatalf("Speak() error = %v", err)
		}
	}
	if got := len(mock.Requests()); got != 1 {
		t.Errorf("engine saw %d requests, want 1", got)
	}
	if a.Cache() == nil {
		t.Fatal("Cache() is nil with caching enabled")
	}
	if st := a.Cache().Stats(); st.MemoryHits != 1 {
		t.Errorf("memory hits = %d, want 1", st.MemoryHits)
	}
}

func TestSpeakRecordsFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	mock := engines.NewMockEngine(engines.MockConfig{WordsPerMinute: 60000})
	mock.FailNext(nil, tts.EngineError("model crashed", nil))
	a := newTestApp(t, cfg, Options{Synthesizer: mock})

	st, err := a.Speak(ctx, "First part.\n\nSecond part.")
	if err == nil {
		t.Fatal("Speak() succeeded")
	}
	if st.State != pipeline.StateFailed {
		t.Errorf("state = %v, want failed", st.State)
	}

	entries, err := a.History().Recent(ctx, 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Recent() = %v, %v", entries, err)
	}
	if entries[0].Outcome != "failed" || entries[0].Error == "" || entries[0].Played != 1 {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestSpeakWithoutHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = false
	a := newTestApp(t, cfg, Options{})

	if a.History() != nil {
		t.Error("History() is set with history disabled")
	}
	if _, err := a.Speak(context.Background(), "Just speak."); err != nil {
		t.Errorf("Speak() error = %v", err)
	}
	if a.EngineInfo().Name != "mock" {
		t.Errorf("engine = %q, want mock", a.EngineInfo().Name)
	}
}

type warmSynth struct {
	*engines.MockEngine
	err    error
	called chan struct{}
}

func (w *warmSynth) Warmup(context.Context) error {
	close(w.called)
	return w.err
}

func TestStart(t *testing.T) {
	boom := errors.New("model missing")
	tests := []struct {
		name  string
		synth tts.Synthesizer
		want  error
	}{
		{"no warm-up step", engines.NewMockEngine(engines.MockConfig{}), nil},
		{"warm-up succeeds", &warmSynth{MockEngine: engines.NewMockEngine(engines.MockConfig{}), called: make(chan struct{})}, nil},
		{"warm-up fails", &warmSynth{MockEngine: engines.NewMockEngine(engines.MockConfig{}), err: boom, called: make(chan struct{})}, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, testConfig(t), Options{Synthesizer: tt.synth})

			select {
			case err, ok := <-a.Start(context.Background()):
				if !ok {
					t.Fatal("Start() channel closed without a result")
				}
				if !errors.Is(err, tt.want) {
					t.Errorf("Start() = %v, want %v", err, tt.want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Start() never reported")
			}

			if w, ok := tt.synth.(*warmSynth); ok {
				select {
				case <-w.called:
				default:
					t.Error("Warmup was not called")
				}
			}
		})
	}
}

func TestCloseStopsPlayback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	player := audio.NewMockPlayer(audio.MockCallbacks{})
	slow := engines.NewMockEngine(engines.MockConfig{WordsPerMinute: 60})
	a, err := New(context.Background(), cfg, log.New(io.Discard), Options{Synthesizer: slow, Sink: player})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	done := make(chan pipeline.Status, 1)
	go func() {
		st, _ := a.Speak(context.Background(), "This sentence takes a long while to read aloud.")
		done <- st
	}()

	deadline := time.Now().Add(2 * time.Second)
	for player.GetMetrics().PlayCount == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	select {
	case st := <-done:
		if st.State != pipeline.StateCancelled {
			t.Errorf("state after Close = %v, want cancelled", st.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Speak() did not return after Close")
	}
}
