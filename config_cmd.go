package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/config"
)

const defaultConfig = `# narrate configuration

# log to stderr at debug level
debug: false

# how text is cut into chunks
splitter:
  min_words_per_sentence: 5
  # lines longer than this are split into sentences
  max_line_chars: 80
  # pieces shorter than this are merged with their neighbours
  min_chunk_chars: 20
  max_chunk_chars: 80
  separator: " "

playback:
  # network errors restart playback from the first chunk
  retry:
    attempts: 3
    delay: 1s
  insert_silence: false
  silence: 250ms

audio:
  # 0.0 to 2.0
  volume: 1.0
  mute: false
  buffer_size: 100ms

tts:
  # daemon, piper, gtts or mock
  engine: daemon

  # persistent local model speaking a framed protocol on stdin/stdout
  daemon:
    command: python3 supertonic_daemon.py
    voice: M1
    lang: ko
    speed: 1.05
    ready_timeout: 2m

  piper:
    command: piper
    # model: ~/.local/share/piper/en_US-lessac-medium.onnx
    speed: 1.0
    timeout: 10s

  # Google TTS through gtts-cli and ffmpeg (online)
  gtts:
    language: en
    slow: false
    speed: 1.0
    requests_per_minute: 50

  mock:
    words_per_minute: 180
    latency: 0s

# synthesized audio, keyed by engine, voice, speed and text
cache:
  enabled: true
  memory_size: 64MB
  disk_size: 512MB
  # dir: ~/.cache/narrate/audio
  compression_level: 3
  ttl: 168h
  cleanup_interval: 1h

history:
  enabled: true
  # path: ~/.local/share/narrate/history.db
  max_entries: 500

# Prometheus metrics and span export
telemetry:
  enabled: false
  # listen: 127.0.0.1:9464
  # trace_file: ~/.cache/narrate/traces.jsonl
`

var printConfig bool

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrate config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrate config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrate config\nnarrate config --config path/to/narrate.yml\nnarrate config --print"),
	Args:    cobra.NoArgs,
	// The file may be broken; editing must not depend on loading it.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		if printConfig {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			b, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(b)
			return err
		}

		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrate", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&printConfig, "print", false, "print the effective configuration instead of editing")
}

// defaultConfigFile returns the first existing narrate.yml in the config
// directories, or where a new one belongs.
func defaultConfigFile() (string, error) {
	dirs, err := config.ConfigDirs()
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", errors.New("no configuration directory available")
	}
	for _, d := range dirs {
		p := filepath.Join(d, config.FileName)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return filepath.Join(dirs[0], config.FileName), nil
}

func ensureConfigFile() error {
	if configFile == "" {
		p, err := defaultConfigFile()
		if err != nil {
			return fmt.Errorf("could not locate configuration file: %w", err)
		}
		configFile = p
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
