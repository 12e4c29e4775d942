package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the config directories.
const FileName = AppName + ".yml"

// overrides are the NARRATE_* variables. Unset variables leave the
// loaded value alone.
type overrides struct {
	Engine        *string  `env:"NARRATE_ENGINE"`
	Voice         *string  `env:"NARRATE_VOICE"`
	Lang          *string  `env:"NARRATE_LANG"`
	Speed         *float64 `env:"NARRATE_SPEED"`
	DaemonCommand *string  `env:"NARRATE_DAEMON_COMMAND"`
	PiperModel    *string  `env:"NARRATE_PIPER_MODEL"`
	Mute          *bool    `env:"NARRATE_MUTE"`
	Volume        *float64 `env:"NARRATE_VOLUME"`
	CacheEnabled  *bool    `env:"NARRATE_CACHE"`
	CacheDir      *string  `env:"NARRATE_CACHE_DIR"`
	HistoryPath   *string  `env:"NARRATE_HISTORY"`
	MetricsListen *string  `env:"NARRATE_METRICS_LISTEN"`
	TraceFile     *string  `env:"NARRATE_TRACE_FILE"`
	Debug         *bool    `env:"NARRATE_DEBUG"`
}

// ConfigDirs returns the directories searched for narrate.yml, most
// specific first.
func ConfigDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("find config directories: %w", err)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("NARRATE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// DefaultPaths returns the platform cache and data directories.
func DefaultPaths() (Paths, error) {
	scope := gap.NewScope(gap.User, AppName)
	cacheDir, err := scope.CacheDir()
	if err != nil {
		return Paths{}, fmt.Errorf("find cache directory: %w", err)
	}
	dataDirs, err := scope.DataDirs()
	if err != nil {
		return Paths{}, fmt.Errorf("find data directory: %w", err)
	}
	if len(dataDirs) == 0 {
		return Paths{}, errors.New("find data directory: none available")
	}
	return Paths{CacheDir: cacheDir, DataDir: dataDirs[0]}, nil
}

// Loader reads configuration from a file and the environment.
type Loader struct {
	// File is an explicit config file. When empty the config
	// directories are searched.
	File string
	// Dirs overrides ConfigDirs.
	Dirs []string
	// Paths overrides DefaultPaths.
	Paths *Paths
	// Environ overrides os.Environ.
	Environ map[string]string
	Logger  *log.Logger

	used string
}

// Used returns the file the last Load read, or empty.
func (l *Loader) Used() string { return l.used }

// Load merges defaults, the config file and NARRATE_* variables, then
// resolves paths and validates the result.
func (l *Loader) Load() (*Config, error) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if l.File != "" {
		file, err := homedir.Expand(l.File)
		if err != nil {
			return nil, fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(file)
	} else {
		dirs := l.Dirs
		if dirs == nil {
			var err error
			if dirs, err = ConfigDirs(); err != nil {
				return nil, err
			}
		}
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
		v.SetConfigName(AppName)
	}

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Debug("no config file found, using defaults")
	} else {
		l.used = v.ConfigFileUsed()
		logger.Debug("using configuration file", "path", l.used)
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", l.used, err)
		}
	}

	environ := l.Environ
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	if err := applyEnv(cfg, environ); err != nil {
		return nil, err
	}

	paths := l.Paths
	if paths == nil {
		p, err := DefaultPaths()
		if err != nil {
			return nil, err
		}
		paths = &p
	}
	if err := cfg.ResolvePaths(*paths); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	var o overrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&cfg.TTS.Engine, o.Engine)
	setString(&cfg.TTS.Daemon.Voice, o.Voice)
	setString(&cfg.TTS.Daemon.Lang, o.Lang)
	setString(&cfg.TTS.Daemon.Command, o.DaemonCommand)
	setString(&cfg.TTS.Piper.ModelPath, o.PiperModel)
	setString(&cfg.Cache.Dir, o.CacheDir)
	setString(&cfg.History.Path, o.HistoryPath)
	if o.MetricsListen != nil {
		cfg.Telemetry.Listen = *o.MetricsListen
		cfg.Telemetry.Enabled = true
	}
	if o.TraceFile != nil {
		cfg.Telemetry.TraceFile = *o.TraceFile
		cfg.Telemetry.Enabled = true
	}
	if o.Speed != nil {
		cfg.TTS.Daemon.Speed = *o.Speed
		cfg.TTS.Piper.Speed = *o.Speed
		cfg.TTS.GTTS.Speed = *o.Speed
	}
	if o.Mute != nil {
		cfg.Audio.Mute = *o.Mute
	}
	if o.Volume != nil {
		cfg.Audio.Volume = *o.Volume
	}
	if o.CacheEnabled != nil {
		cfg.Cache.Enabled = *o.CacheEnabled
	}
	if o.Debug != nil {
		cfg.Debug = *o.Debug
	}
	return nil
}

func expand(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	out, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return out, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return b, nil
}

// Save writes cfg to path, creating its directory.
func Save(cfg *Config, path string) error {
	b, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
