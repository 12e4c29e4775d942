// Package config loads narrate.yml, applies NARRATE_* environment
// overrides and checks the result.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/history"
	"github.com/dgnsrekt/narrate/internal/pipeline"
	"github.com/dgnsrekt/narrate/internal/splitter"
	"github.com/dgnsrekt/narrate/internal/telemetry"
	"github.com/dgnsrekt/narrate/internal/tts/engines"
)

// AppName names the config file, the env prefix and the app directories.
const AppName = "narrate"

// Config is the whole of narrate.yml.
type Config struct {
	Debug     bool             `yaml:"debug" mapstructure:"debug"`
	Splitter  splitter.Options `yaml:"splitter" mapstructure:"splitter"`
	Playback  pipeline.Options `yaml:"playback" mapstructure:"playback"`
	Audio     AudioConfig      `yaml:"audio" mapstructure:"audio"`
	TTS       engines.Config   `yaml:"tts" mapstructure:"tts"`
	Cache     cache.Config     `yaml:"cache" mapstructure:"cache"`
	History   history.Config   `yaml:"history" mapstructure:"history"`
	Telemetry telemetry.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// AudioConfig configures the output device.
type AudioConfig struct {
	Volume     float64       `yaml:"volume" mapstructure:"volume"`
	Mute       bool          `yaml:"mute" mapstructure:"mute"`
	BufferSize time.Duration `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// Default returns the configuration used when no file exists. Directories
// are left empty until ResolvePaths fills them.
func Default() *Config {
	return &Config{
		Splitter: splitter.DefaultOptions(),
		Playback: pipeline.DefaultOptions(),
		Audio: AudioConfig{
			Volume:     1.0,
			BufferSize: 100 * time.Millisecond,
		},
		TTS:     engines.DefaultConfig(),
		Cache:   cache.DefaultConfig(),
		History: history.DefaultConfig(),
	}
}

// Paths holds the per-user directories derived from the platform.
type Paths struct {
	CacheDir string
	DataDir  string
}

// ResolvePaths expands ~ in every configured path and fills empty
// cache and history locations from p.
func (c *Config) ResolvePaths(p Paths) error {
	if err := c.TTS.ExpandPaths(); err != nil {
		return err
	}
	var err error
	if c.Cache.Dir, err = expand(c.Cache.Dir); err != nil {
		return err
	}
	if c.History.Path, err = expand(c.History.Path); err != nil {
		return err
	}
	if c.Telemetry.TraceFile, err = expand(c.Telemetry.TraceFile); err != nil {
		return err
	}
	if c.Cache.Dir == "" && p.CacheDir != "" {
		c.Cache.Dir = filepath.Join(p.CacheDir, "audio")
	}
	if c.History.Path == "" && p.DataDir != "" {
		c.History.Path = filepath.Join(p.DataDir, "history.db")
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Splitter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("splitter: %w", err))
	}
	if err := c.Playback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 2 {
		errs = append(errs, fmt.Errorf("audio: volume must be between 0.0 and 2.0, got %.2f", c.Audio.Volume))
	}
	if c.Audio.BufferSize < 0 {
		errs = append(errs, errors.New("audio: buffer size must not be negative"))
	}
	if _, err := engines.Normalize(c.TTS.Engine); err != nil {
		errs = append(errs, fmt.Errorf("tts: %w", err))
	}
	if s := c.TTS.Daemon.Speed; s != 0 && (s < 0.5 || s > 2.0) {
		errs = append(errs, fmt.Errorf("tts: daemon speed must be between 0.5 and 2.0, got %.2f", s))
	}
	if s := c.TTS.Piper.Speed; s != 0 && (s < 0.1 || s > 3.0) {
		errs = append(errs, fmt.Errorf("tts: piper speed must be between 0.1 and 3.0, got %.2f", s))
	}
	if l := c.TTS.GTTS.Language; l != "" && (len(l) < 2 || len(l) > 5) {
		errs = append(errs, fmt.Errorf("tts: gtts language code must be 2-5 characters, got %q", l))
	}
	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if c.History.MaxEntries < 0 {
		errs = append(errs, errors.New("history: max entries must not be negative"))
	}
	return errors.Join(errs...)
}
