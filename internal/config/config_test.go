package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLoader(t *testing.T, yml string, environ map[string]string) *Loader {
	t.Helper()
	dir := t.TempDir()
	if yml != "" {
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(yml), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if environ == nil {
		environ = map[string]string{}
	}
	return &Loader{
		Dirs:    []string{dir},
		Paths:   &Paths{CacheDir: filepath.Join(dir, "cache"), DataDir: filepath.Join(dir, "data")},
		Environ: environ,
		Logger:  log.New(io.Discard),
	}
}

func TestLoadDefaults(t *testing.T) {
	l := testLoader(t, "", nil)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Used() != "" {
		t.Errorf("Used() = %q with no config file", l.Used())
	}
	if cfg.TTS.Engine != "daemon" {
		t.Errorf("engine = %q, want daemon", cfg.TTS.Engine)
	}
	if cfg.Splitter.MaxChunkChars != 80 || cfg.Playback.Retry.Attempts != 3 {
		t.Errorf("defaults not applied: %+v %+v", cfg.Splitter, cfg.Playback)
	}
	if !strings.HasSuffix(cfg.Cache.Dir, filepath.Join("cache", "audio")) {
		t.Errorf("cache dir = %q", cfg.Cache.Dir)
	}
	if !strings.HasSuffix(cfg.History.Path, filepath.Join("data", "history.db")) {
		t.Errorf("history path = %q", cfg.History.Path)
	}
}

func TestLoadFile(t *testing.T) {
	l := testLoader(t, `
tts:
  engine: piper
  piper:
    model: ~/voices/en.onnx
    speed: 1.25
splitter:
  max_chunk_chars: 120
playback:
  silence: 500ms
  retry:
    attempts: 5
    delay: 2s
cache:
  memory_size: 8MB
history:
  max_entries: 10
`, nil)

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Used() == "" {
		t.Error("Used() is empty after reading a file")
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"engine", cfg.TTS.Engine, "piper"},
		{"piper speed", cfg.TTS.Piper.Speed, 1.25},
		{"max chunk chars", cfg.Splitter.MaxChunkChars, 120},
		{"min chunk chars kept", cfg.Splitter.MinChunkChars, 20},
		{"silence", cfg.Playback.Silence, 500 * time.Millisecond},
		{"retry attempts", cfg.Playback.Retry.Attempts, 5},
		{"retry delay", cfg.Playback.Retry.Delay, 2 * time.Second},
		{"memory size", cfg.Cache.MemorySize, "8MB"},
		{"history max", cfg.History.MaxEntries, 10},
		{"daemon voice kept", cfg.TTS.Daemon.Voice, "M1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if strings.HasPrefix(cfg.TTS.Piper.ModelPath, "~") {
		t.Errorf("model path not expanded: %q", cfg.TTS.Piper.ModelPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	l := testLoader(t, "tts:\n  engine: piper\n", map[string]string{
		"NARRATE_ENGINE":         "mock",
		"NARRATE_SPEED":          "1.5",
		"NARRATE_MUTE":           "true",
		"NARRATE_METRICS_LISTEN": "127.0.0.1:9099",
		"NARRATE_VOICE":          "F2",
	})

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TTS.Engine != "mock" {
		t.Errorf("engine = %q, want mock", cfg.TTS.Engine)
	}
	if cfg.TTS.Daemon.Speed != 1.5 || cfg.TTS.Piper.Speed != 1.5 {
		t.Errorf("speed not applied: daemon %v piper %v", cfg.TTS.Daemon.Speed, cfg.TTS.Piper.Speed)
	}
	if !cfg.Audio.Mute {
		t.Error("mute not applied")
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Listen != "127.0.0.1:9099" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if cfg.TTS.Daemon.Voice != "F2" {
		t.Errorf("voice = %q", cfg.TTS.Daemon.Voice)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		yml     string
		environ map[string]string
		want    string
	}{
		{"volume out of range", "audio:\n  volume: 5\n", nil, "volume"},
		{"unknown engine", "tts:\n  engine: espeak\n", nil, "espeak"},
		{"bad size band", "splitter:\n  min_chunk_chars: 200\n", nil, "min chunk chars"},
		{"bad cache size", "cache:\n  memory_size: lots\n", nil, "memory_size"},
		{"bad env value", "", map[string]string{"NARRATE_SPEED": "fast"}, "environment"},
		{"zero attempts", "playback:\n  retry:\n    attempts: 0\n", nil, "attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testLoader(t, tt.yml, tt.environ).Load()
			if err == nil {
				t.Fatal("Load() succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", FileName)

	cfg := Default()
	cfg.TTS.Engine = "gtts"
	cfg.TTS.GTTS.Language = "fr"
	cfg.Playback.InsertSilence = true
	cfg.Playback.Silence = 300 * time.Millisecond
	cfg.Cache.TTL = 48 * time.Hour
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	l := &Loader{
		File:    path,
		Paths:   &Paths{},
		Environ: map[string]string{},
		Logger:  log.New(io.Discard),
	}
	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TTS.Engine != "gtts" || got.TTS.GTTS.Language != "fr" {
		t.Errorf("tts = %+v", got.TTS)
	}
	if !got.Playback.InsertSilence || got.Playback.Silence != 300*time.Millisecond {
		t.Errorf("playback = %+v", got.Playback)
	}
	if got.Cache.TTL != 48*time.Hour {
		t.Errorf("cache ttl = %v", got.Cache.TTL)
	}
	if got.Splitter.Separator != " " {
		t.Errorf("separator = %q", got.Splitter.Separator)
	}
}
