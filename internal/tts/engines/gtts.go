package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/tts"
)

const (
	gttsMaxText = 5000
	gttsMaxMP3  = 50 << 20
	gttsMaxPCM  = 20 << 20
)

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Command runs gtts-cli. Defaults to "gtts-cli".
	Command string `yaml:"command" mapstructure:"command"`

	// FFmpeg runs ffmpeg. Defaults to "ffmpeg".
	FFmpeg string `yaml:"ffmpeg" mapstructure:"ffmpeg"`

	// Language code (e.g., "en", "es", "fr") - defaults to "en"
	Language string `yaml:"language" mapstructure:"language"`

	// Slow speech (--slow flag)
	Slow bool `yaml:"slow" mapstructure:"slow"`

	// Speed applied with ffmpeg's atempo filter, clamped to 0.5-2.0
	Speed float64 `yaml:"speed" mapstructure:"speed"`

	// Requests per minute to avoid being blocked (defaults to 50)
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// GTTSEngine synthesizes with Google Translate's TTS through gtts-cli and
// converts the MP3 to PCM with ffmpeg. It needs no API key but does need
// the network, so gtts-cli failures are reported as network errors.
type GTTSEngine struct {
	argv    []string
	ffmpeg  []string
	cfg     GTTSConfig
	limiter *rate.Limiter
}

// NewGTTSEngine creates a new gTTS TTS engine.
func NewGTTSEngine(cfg GTTSConfig) (*GTTSEngine, error) {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 50
	}
	argv, err := commandLine(cfg.Command, "gtts-cli")
	if err != nil {
		return nil, err
	}
	ffmpeg, err := commandLine(cfg.FFmpeg, "ffmpeg")
	if err != nil {
		return nil, err
	}
	return &GTTSEngine{
		argv:    argv,
		ffmpeg:  ffmpeg,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Synthesize converts text to audio: text → gtts-cli → MP3 → ffmpeg → PCM.
func (e *GTTSEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "text cannot be empty", nil)
	}
	if len(text) > gttsMaxText {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "gtts request", tts.ErrTextTooLong).
			WithContext("bytes", len(text))
	}

	if err := e.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	mp3, err := e.fetchMP3(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.decode(ctx, mp3)
}

func (e *GTTSEngine) fetchMP3(ctx context.Context, text string) ([]byte, error) {
	args := []string{"-l", e.cfg.Language}
	if e.cfg.Slow {
		args = append(args, "--slow")
	}
	args = append(args, "-o", "-", "--", text)

	mp3, err := runCommand(ctx, 30*time.Second, e.argv, args, nil)
	if err != nil {
		if tts.IsCanceled(err) {
			return nil, err
		}
		return nil, tts.NetworkError("gtts-cli", err)
	}
	if len(mp3) == 0 {
		return nil, tts.NetworkError("gtts-cli produced no audio", nil)
	}
	if len(mp3) > gttsMaxMP3 {
		return nil, tts.EngineError(fmt.Sprintf("gtts-cli output too large: %d bytes", len(mp3)), nil)
	}
	return mp3, nil
}

func (e *GTTSEngine) decode(ctx context.Context, mp3 []byte) (*audio.Clip, error) {
	format := audio.DefaultFormat()
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", "1",
	}
	if speed := clampTempo(e.cfg.Speed); speed != 1.0 {
		args = append(args, "-filter:a", "atempo="+strconv.FormatFloat(speed, 'f', 2, 64))
	}
	args = append(args, "pipe:1")

	pcm, err := runCommand(ctx, 15*time.Second, e.ffmpeg, args, bytes.NewReader(mp3))
	switch {
	case err == nil:
	case tts.IsCanceled(err):
		return nil, err
	case errors.Is(err, errTimeout):
		return nil, tts.NewTTSError(tts.ErrorCodeEngineTimeout, "ffmpeg conversion", err)
	default:
		return nil, tts.EngineError("ffmpeg conversion", err)
	}
	if len(pcm) == 0 {
		return nil, tts.EngineError("ffmpeg produced no audio", nil)
	}
	if len(pcm) > gttsMaxPCM {
		return nil, tts.EngineError(fmt.Sprintf("ffmpeg output too large: %d bytes", len(pcm)), nil)
	}
	return audio.NewClip(alignFrames(pcm, format), format)
}

// clampTempo keeps speed within the range a single atempo filter accepts.
func clampTempo(speed float64) float64 {
	return min(max(speed, 0.5), 2.0)
}

// Info returns engine capabilities and configuration.
func (e *GTTSEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       "gtts",
		Voice:      e.cfg.Language,
		Speed:      e.cfg.Speed,
		SampleRate: audio.DefaultFormat().SampleRate,
		IsOnline:   true,
	}
}

// Close is a no-op.
func (e *GTTSEngine) Close() error {
	return nil
}
