package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/tts"
)

const (
	piperMaxText  = 5000
	piperMaxAudio = 10 << 20
)

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Command runs piper. Defaults to "piper".
	Command string `yaml:"command" mapstructure:"command"`

	// Model file path (required)
	ModelPath string `yaml:"model" mapstructure:"model"`

	// Config file path (optional, defaults to model path with .json extension)
	ConfigPath string `yaml:"config" mapstructure:"config"`

	// Speaker id for multi-speaker models (optional)
	Speaker string `yaml:"speaker" mapstructure:"speaker"`

	// Speed multiplier, 1.0 is the model's natural rate
	Speed float64 `yaml:"speed" mapstructure:"speed"`

	// Sample rate of the model (optional, defaults to 22050)
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`

	// Timeout per chunk (optional, defaults to 10s)
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PiperEngine synthesizes offline with Piper. Each chunk runs a fresh
// process with the text pre-loaded on stdin.
type PiperEngine struct {
	argv []string
	cfg  PiperConfig
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(cfg PiperConfig) (*PiperEngine, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = strings.TrimSuffix(cfg.ModelPath, filepath.Ext(cfg.ModelPath)) + ".json"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 22050
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	argv, err := commandLine(cfg.Command, "piper")
	if err != nil {
		return nil, err
	}
	return &PiperEngine{argv: argv, cfg: cfg}, nil
}

// Synthesize converts text to audio using Piper.
func (e *PiperEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "text cannot be empty", nil)
	}
	if len(text) > piperMaxText {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "piper request", tts.ErrTextTooLong).
			WithContext("bytes", len(text))
	}

	pcm, err := runCommand(ctx, e.cfg.Timeout, e.argv, e.args(), strings.NewReader(text))
	switch {
	case err == nil:
	case tts.IsCanceled(err):
		return nil, err
	case errors.Is(err, errTimeout):
		return nil, tts.NewTTSError(tts.ErrorCodeEngineTimeout, "piper synthesis", err)
	default:
		return nil, tts.EngineError("piper synthesis", err)
	}

	if len(pcm) == 0 {
		return nil, tts.EngineError("piper produced no audio", nil)
	}
	if len(pcm) > piperMaxAudio {
		return nil, tts.EngineError(fmt.Sprintf("piper output too large: %d bytes", len(pcm)), nil)
	}
	format := audio.Mono16(e.cfg.SampleRate)
	return audio.NewClip(alignFrames(pcm, format), format)
}

// args maps speed onto Piper's length scale: 2.0 speed is a 0.5 scale.
func (e *PiperEngine) args() []string {
	args := []string{
		"--model", e.cfg.ModelPath,
		"--config", e.cfg.ConfigPath,
		"--output-raw",
		"--length-scale", strconv.FormatFloat(1/e.cfg.Speed, 'f', 2, 64),
	}
	if e.cfg.Speaker != "" {
		args = append(args, "--speaker", e.cfg.Speaker)
	}
	return args
}

// Info returns engine capabilities and configuration.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       "piper",
		Voice:      filepath.Base(e.cfg.ModelPath) + speakerSuffix(e.cfg.Speaker),
		Speed:      e.cfg.Speed,
		SampleRate: e.cfg.SampleRate,
	}
}

// Close is a no-op; Piper runs one process per chunk.
func (e *PiperEngine) Close() error {
	return nil
}

func speakerSuffix(speaker string) string {
	if speaker == "" {
		return ""
	}
	return "#" + speaker
}

// alignFrames drops a trailing partial frame.
func alignFrames(pcm []byte, f audio.Format) []byte {
	return pcm[:len(pcm)-len(pcm)%f.FrameSize()]
}
