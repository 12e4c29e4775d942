package engines

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Report is the result of checking an engine's prerequisites without
// running a synthesis.
type Report struct {
	Engine    string
	Available bool
	Err       error
	Guidance  string
	Details   map[string]string
}

// Check validates that cfg's engine is installed and configured.
func Check(cfg Config) *Report {
	name, err := Normalize(cfg.Engine)
	r := &Report{Engine: name, Details: make(map[string]string)}
	if err != nil {
		r.Err = err
		r.Guidance = "Supported engines: daemon, piper, gtts, mock"
		return r
	}

	switch name {
	case NameDaemon:
		checkDaemon(cfg.Daemon, r)
	case NamePiper:
		checkPiper(cfg.Piper, r)
	case NameGTTS:
		checkGTTS(cfg.GTTS, r)
	default:
		r.Details["engine"] = "Mock (silence)"
		r.Available = true
	}
	return r
}

func checkDaemon(cfg DaemonSettings, r *Report) {
	r.Details["engine"] = "Synthesis daemon (persistent local model)"
	argv, err := commandLine(cfg.Command, "")
	if err != nil {
		r.Err = fmt.Errorf("daemon command: %w", err)
		r.Guidance = daemonGuidance
		return
	}
	if !lookPath(argv[0], "binary_path", r) {
		r.Guidance = daemonGuidance
		return
	}
	// A script argument must exist too; python would only fail after start.
	for _, arg := range argv[1:] {
		if strings.HasSuffix(arg, ".py") {
			if _, err := os.Stat(arg); err != nil {
				r.Err = fmt.Errorf("daemon script not accessible: %w", err)
				r.Guidance = daemonGuidance
				return
			}
			r.Details["script"] = arg
		}
	}
	r.Details["voice"] = cfg.Voice
	r.Details["lang"] = cfg.Lang
	r.Available = true
}

func checkPiper(cfg PiperConfig, r *Report) {
	r.Details["engine"] = "Piper (Offline TTS)"
	argv, err := commandLine(cfg.Command, "piper")
	if err != nil {
		r.Err = err
		return
	}
	if !lookPath(argv[0], "binary_path", r) {
		r.Guidance = piperInstallGuidance
		return
	}
	if cfg.ModelPath == "" {
		r.Err = fmt.Errorf("piper model path not configured")
		r.Guidance = piperModelGuidance
		return
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		r.Err = fmt.Errorf("model file not accessible: %w", err)
		r.Guidance = piperModelGuidance
		return
	}
	r.Details["model_path"] = cfg.ModelPath

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = strings.TrimSuffix(cfg.ModelPath, filepath.Ext(cfg.ModelPath)) + ".json"
	}
	if _, err := os.Stat(configPath); err == nil {
		r.Details["config_path"] = configPath
	} else {
		r.Details["config_note"] = "Config file not found (using model defaults)"
	}
	r.Available = true
}

func checkGTTS(cfg GTTSConfig, r *Report) {
	r.Details["engine"] = "Google TTS (gTTS - Free)"
	for _, c := range []struct{ command, fallback, detail, guidance string }{
		{cfg.Command, "gtts-cli", "gtts_path", gttsInstallGuidance},
		{cfg.FFmpeg, "ffmpeg", "ffmpeg_path", ffmpegInstallGuidance},
	} {
		argv, err := commandLine(c.command, c.fallback)
		if err != nil {
			r.Err = err
			return
		}
		if !lookPath(argv[0], c.detail, r) {
			r.Guidance = c.guidance
			return
		}
	}
	r.Details["language"] = cfg.Language
	r.Available = true
}

func lookPath(bin, detail string, r *Report) bool {
	path, err := exec.LookPath(bin)
	if err != nil {
		r.Err = fmt.Errorf("%s not found in PATH: %w", bin, err)
		return false
	}
	r.Details[detail] = path
	return true
}

// ExpandPaths resolves a leading ~ in every configured file path.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Piper.ModelPath, &c.Piper.ConfigPath} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

const daemonGuidance = `The synthesis daemon could not be found. To set it up:

1. Install the model runtime:
   pip install supertonic numpy

2. Point narrate at the daemon script in ~/.config/narrate/narrate.yml:
   tts:
     engine: daemon
     daemon:
       command: python3 /path/to/supertonic_daemon.py

The daemon prints "READY sample_rate=44100" on stderr once the model is loaded.`

const piperInstallGuidance = `Piper TTS is not installed. To install:

1. Download Piper binary from: https://github.com/rhasspy/piper/releases
2. Extract and add to PATH, or install via package manager:

   # Arch Linux
   yay -S piper-tts

   # macOS (Homebrew)
   brew install piper-tts

3. Download a voice model from: https://github.com/rhasspy/piper/blob/master/VOICES.md
4. Configure the model path in ~/.config/narrate/narrate.yml`

const piperModelGuidance = `Piper model path not configured. To configure:

1. Download a voice model, for example:
   mkdir -p ~/.local/share/piper/models
   cd ~/.local/share/piper/models
   wget https://huggingface.co/rhasspy/piper-voices/resolve/v1.0.0/en/en_US/amy/medium/en_US-amy-medium.onnx
   wget https://huggingface.co/rhasspy/piper-voices/resolve/v1.0.0/en/en_US/amy/medium/en_US-amy-medium.onnx.json

2. Configure the model path in ~/.config/narrate/narrate.yml:
   tts:
     engine: piper
     piper:
       model: ~/.local/share/piper/models/en_US-amy-medium.onnx`

const gttsInstallGuidance = `gTTS (Google Text-to-Speech) is not installed. To install:

   pipx install gtts

No API key is required, but gTTS needs an internet connection.`

const ffmpegInstallGuidance = `ffmpeg is required for gTTS audio conversion. To install:

# Ubuntu/Debian
sudo apt update && sudo apt install ffmpeg

# macOS (Homebrew)
brew install ffmpeg

# Or download from: https://ffmpeg.org/download.html`
