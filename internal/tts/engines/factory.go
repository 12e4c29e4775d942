package engines

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/tts"
)

// Engine names accepted by New.
const (
	NameDaemon = "daemon"
	NamePiper  = "piper"
	NameGTTS   = "gtts"
	NameMock   = "mock"
)

// DaemonSettings is the config file form of DaemonConfig.
type DaemonSettings struct {
	Command      string        `yaml:"command" mapstructure:"command"`
	Voice        string        `yaml:"voice" mapstructure:"voice"`
	Lang         string        `yaml:"lang" mapstructure:"lang"`
	Speed        float64       `yaml:"speed" mapstructure:"speed"`
	SampleRate   int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	ReadyTimeout time.Duration `yaml:"ready_timeout" mapstructure:"ready_timeout"`
}

// Config selects and configures an engine.
type Config struct {
	Engine string         `yaml:"engine" mapstructure:"engine"`
	Daemon DaemonSettings `yaml:"daemon" mapstructure:"daemon"`
	Piper  PiperConfig    `yaml:"piper" mapstructure:"piper"`
	GTTS   GTTSConfig     `yaml:"gtts" mapstructure:"gtts"`
	Mock   MockConfig     `yaml:"mock" mapstructure:"mock"`
}

// DefaultConfig uses the synthesis daemon with its stock voice.
func DefaultConfig() Config {
	return Config{
		Engine: NameDaemon,
		Daemon: DaemonSettings{
			Command:      "python3 supertonic_daemon.py",
			Voice:        "M1",
			Lang:         "ko",
			Speed:        1.05,
			ReadyTimeout: 2 * time.Minute,
		},
		Piper: PiperConfig{Speed: 1.0},
		GTTS:  GTTSConfig{Language: "en", Speed: 1.0, RequestsPerMinute: 50},
	}
}

// Normalize resolves engine aliases.
func Normalize(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameDaemon, "supertonic":
		return NameDaemon, nil
	case NamePiper:
		return NamePiper, nil
	case NameGTTS, "google":
		return NameGTTS, nil
	case NameMock, "none":
		return NameMock, nil
	case "":
		return "", fmt.Errorf("%w: no engine selected\n\nSet one with --engine or in narrate.yml:\n  tts:\n    engine: daemon  # or piper, gtts, mock", tts.ErrInvalidEngine)
	default:
		return "", fmt.Errorf("%w: %s\n\nSupported engines:\n  - daemon (persistent local model)\n  - piper (offline TTS)\n  - gtts (Google TTS, online)\n  - mock (silence)", tts.ErrInvalidEngine, name)
	}
}

// New builds the engine cfg selects.
func New(cfg Config, logger *log.Logger) (tts.Synthesizer, error) {
	name, err := Normalize(cfg.Engine)
	if err != nil {
		return nil, err
	}
	switch name {
	case NameDaemon:
		d := cfg.Daemon
		return NewDaemonEngine(DaemonConfig{
			Command:      d.Command,
			Voice:        d.Voice,
			Lang:         d.Lang,
			Speed:        d.Speed,
			SampleRate:   d.SampleRate,
			ReadyTimeout: d.ReadyTimeout,
			Logger:       logger,
		})
	case NamePiper:
		return NewPiperEngine(cfg.Piper)
	case NameGTTS:
		return NewGTTSEngine(cfg.GTTS)
	default:
		return NewMockEngine(cfg.Mock), nil
	}
}
