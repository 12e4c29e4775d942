package engines

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-shellwords"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/tts"
)

// DaemonConfig holds configuration for the daemon engine.
type DaemonConfig struct {
	// Command starts the daemon, e.g. "python3 supertonic_daemon.py".
	Command string

	// Voice, Lang and Speed are sent as control commands once the daemon
	// is ready. Empty or zero values keep the daemon's own defaults.
	Voice string
	Lang  string
	Speed float64

	// SampleRate is used when the readiness line does not announce one.
	// Defaults to 44100.
	SampleRate int

	// ReadyTimeout bounds model loading. Defaults to 2 minutes.
	ReadyTimeout time.Duration

	Logger *log.Logger
}

// DaemonEngine speaks to a long-running synthesis process over its stdin
// and stdout. Requests are serialized. A request cancelled mid-flight
// kills the process, since the stream position is then unknown; the next
// request starts a fresh one.
type DaemonEngine struct {
	argv   []string
	cfg    DaemonConfig
	logger *log.Logger

	// mu serializes requests and guards the process.
	mu     sync.Mutex
	proc   *daemonProcess
	closed bool

	// settingsMu guards cfg's voice settings and rate. It is never held
	// across a request.
	settingsMu sync.RWMutex
	rate       int
}

type daemonProcess struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	sampleRate int
	exited     chan struct{}
	stderrTail *tailBuffer
}

// NewDaemonEngine parses the command line but does not start the process.
// Call Warmup to load the model ahead of the first request.
func NewDaemonEngine(cfg DaemonConfig) (*DaemonEngine, error) {
	argv, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse daemon command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("daemon command is required")
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultFormat().SampleRate
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &DaemonEngine{
		argv:   argv,
		cfg:    cfg,
		rate:   cfg.SampleRate,
		logger: logger.WithPrefix("daemon"),
	}, nil
}

// Synthesize sends text to the daemon and returns its PCM.
func (e *DaemonEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "text cannot be empty", nil)
	}
	if isControl(text) {
		text = " " + text
	}
	if len(text) > maxRequestBytes {
		return nil, tts.NewTTSError(tts.ErrorCodeInvalidInput, "daemon request", tts.ErrTextTooLong).
			WithContext("bytes", len(text))
	}

	var (
		pcm  []byte
		rate int
	)
	err := e.exchange(ctx, func(p *daemonProcess) error {
		if err := writeFrame(p.stdin, []byte(text)); err != nil {
			return err
		}
		var err error
		pcm, err = readFrame(p.stdout, maxResponseBytes)
		rate = p.sampleRate
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, tts.EngineError("daemon returned no audio", nil).WithContext("text", text)
	}
	clip, err := audio.NewClip(pcm, audio.Mono16(rate))
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeAudioFormat, "daemon output", err)
	}
	return clip, nil
}

// Warmup starts the daemon, waits for the model to load and checks that
// it answers a ping.
func (e *DaemonEngine) Warmup(ctx context.Context) error {
	return e.Ping(ctx)
}

// Ping checks that the daemon is alive, starting it if needed.
func (e *DaemonEngine) Ping(ctx context.Context) error {
	return e.exchange(ctx, func(p *daemonProcess) error {
		if err := writeFrame(p.stdin, []byte(cmdPing)); err != nil {
			return err
		}
		return readPong(p.stdout)
	})
}

// SetVoice changes the voice style for subsequent requests.
func (e *DaemonEngine) SetVoice(ctx context.Context, voice string) error {
	if err := e.control(ctx, cmdVoice+voice); err != nil {
		return err
	}
	e.settingsMu.Lock()
	e.cfg.Voice = voice
	e.settingsMu.Unlock()
	return nil
}

// SetLang changes the synthesis language.
func (e *DaemonEngine) SetLang(ctx context.Context, lang string) error {
	if err := e.control(ctx, cmdLang+lang); err != nil {
		return err
	}
	e.settingsMu.Lock()
	e.cfg.Lang = lang
	e.settingsMu.Unlock()
	return nil
}

// SetSpeed changes the speaking rate.
func (e *DaemonEngine) SetSpeed(ctx context.Context, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("invalid speed %v", speed)
	}
	if err := e.control(ctx, cmdSpeed+formatSpeed(speed)); err != nil {
		return err
	}
	e.settingsMu.Lock()
	e.cfg.Speed = speed
	e.settingsMu.Unlock()
	return nil
}

func (e *DaemonEngine) control(ctx context.Context, command string) error {
	return e.exchange(ctx, func(p *daemonProcess) error {
		return sendControl(p, command)
	})
}

func sendControl(p *daemonProcess, command string) error {
	if err := writeFrame(p.stdin, []byte(command)); err != nil {
		return err
	}
	ack, err := readFrame(p.stdout, maxResponseBytes)
	if err != nil {
		return err
	}
	if len(ack) != 0 {
		return fmt.Errorf("unexpected %d byte reply to %q", len(ack), command)
	}
	return nil
}

// Info returns engine capabilities and configuration.
func (e *DaemonEngine) Info() tts.EngineInfo {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	return tts.EngineInfo{
		Name:       "daemon",
		Voice:      e.cfg.Voice,
		Speed:      e.cfg.Speed,
		SampleRate: e.rate,
	}
}

// Close asks the daemon to quit and kills it if it does not.
func (e *DaemonEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.proc == nil {
		return nil
	}
	p := e.proc
	e.proc = nil

	if err := writeFrame(p.stdin, []byte(cmdQuit)); err == nil {
		_ = p.stdin.Close()
		select {
		case <-p.exited:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
	p.kill()
	return nil
}

// exchange runs fn against a live daemon while holding the request lock.
// fn runs in its own goroutine so that cancellation does not wait for a
// blocked read.
func (e *DaemonEngine) exchange(ctx context.Context, fn func(*daemonProcess) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return tts.ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := e.ensureLocked(ctx)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn(p) }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		e.logger.Warn("daemon request failed, restarting on next use", "err", err, "stderr", p.stderrTail.String())
		e.discardLocked(p)
		return tts.EngineError("daemon request", err)
	case <-p.exited:
		<-done
		e.discardLocked(p)
		return tts.NewTTSError(tts.ErrorCodeEngineFailure, "daemon exited", nil).
			WithContext("stderr", p.stderrTail.String())
	case <-ctx.Done():
		e.logger.Debug("request cancelled, killing daemon")
		e.discardLocked(p)
		<-done
		return ctx.Err()
	}
}

func (e *DaemonEngine) discardLocked(p *daemonProcess) {
	p.kill()
	if e.proc == p {
		e.proc = nil
	}
}

func (e *DaemonEngine) ensureLocked(ctx context.Context) (*daemonProcess, error) {
	if e.proc != nil {
		select {
		case <-e.proc.exited:
			e.logger.Warn("daemon exited", "stderr", e.proc.stderrTail.String())
			e.proc = nil
		default:
			return e.proc, nil
		}
	}

	start := time.Now()
	p, err := e.startLocked(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Info("daemon ready", "sample_rate", p.sampleRate, "took", time.Since(start).Round(time.Millisecond))
	e.proc = p
	return p, nil
}

func (e *DaemonEngine) startLocked(ctx context.Context) (*daemonProcess, error) {
	cmd := exec.Command(e.argv[0], e.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "start daemon", err).
			WithContext("command", e.cfg.Command)
	}

	p := &daemonProcess{
		cmd:        cmd,
		stdin:      stdin,
		stdout:     bufio.NewReader(stdout),
		sampleRate: e.cfg.SampleRate,
		exited:     make(chan struct{}),
		stderrTail: &tailBuffer{max: 20},
	}

	ready := make(chan int, 1)
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		signalled := false
		for scanner.Scan() {
			line := scanner.Text()
			p.stderrTail.add(line)
			e.logger.Debug(line)
			if rate, ok := parseReady(line); ok && !signalled {
				signalled = true
				ready <- rate
			}
		}
	}()
	go func() {
		<-stderrDone
		err := cmd.Wait()
		e.logger.Debug("daemon process exited", "err", err)
		close(p.exited)
	}()

	timer := time.NewTimer(e.cfg.ReadyTimeout)
	defer timer.Stop()
	select {
	case rate := <-ready:
		if rate > 0 {
			p.sampleRate = rate
			e.settingsMu.Lock()
			e.rate = rate
			e.settingsMu.Unlock()
		}
	case <-p.exited:
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "daemon exited before ready", nil).
			WithContext("stderr", p.stderrTail.String())
	case <-timer.C:
		p.kill()
		return nil, tts.NewTTSError(tts.ErrorCodeEngineTimeout, "daemon not ready", nil).
			WithContext("timeout", e.cfg.ReadyTimeout)
	case <-ctx.Done():
		p.kill()
		return nil, ctx.Err()
	}

	if err := e.configure(ctx, p); err != nil {
		p.kill()
		return nil, err
	}
	return p, nil
}

// configure sends the current settings to a fresh daemon. A daemon that
// does not acknowledge them within ReadyTimeout is treated as not ready.
func (e *DaemonEngine) configure(ctx context.Context, p *daemonProcess) error {
	cmds := e.settingsCommands()
	if len(cmds) == 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		for _, c := range cmds {
			if err := sendControl(p, c); err != nil {
				done <- tts.EngineError("configure daemon", err).WithContext("command", c)
				return
			}
		}
		done <- nil
	}()

	timer := time.NewTimer(e.cfg.ReadyTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-p.exited:
		<-done
		return tts.NewTTSError(tts.ErrorCodeEngineFailure, "daemon exited while configuring", nil).
			WithContext("stderr", p.stderrTail.String())
	case <-timer.C:
		p.kill()
		<-done
		return tts.NewTTSError(tts.ErrorCodeEngineTimeout, "daemon did not acknowledge settings", nil).
			WithContext("timeout", e.cfg.ReadyTimeout)
	case <-ctx.Done():
		p.kill()
		<-done
		return ctx.Err()
	}
}

func (e *DaemonEngine) settingsCommands() []string {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	var cmds []string
	if e.cfg.Voice != "" {
		cmds = append(cmds, cmdVoice+e.cfg.Voice)
	}
	if e.cfg.Lang != "" {
		cmds = append(cmds, cmdLang+e.cfg.Lang)
	}
	if e.cfg.Speed > 0 {
		cmds = append(cmds, cmdSpeed+formatSpeed(e.cfg.Speed))
	}
	return cmds
}

func (p *daemonProcess) kill() {
	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.exited
}

func formatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64)
}

// tailBuffer keeps the last lines a process wrote to stderr.
type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (b *tailBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
