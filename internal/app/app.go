// Package app wires configuration into a running narrator: splitter,
// engine, cache, playback, history and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/config"
	"github.com/dgnsrekt/narrate/internal/history"
	"github.com/dgnsrekt/narrate/internal/pipeline"
	"github.com/dgnsrekt/narrate/internal/splitter"
	"github.com/dgnsrekt/narrate/internal/telemetry"
	"github.com/dgnsrekt/narrate/internal/tts"
	"github.com/dgnsrekt/narrate/internal/tts/engines"
)

// Sink is an output device the app owns.
type Sink interface {
	tts.Sink
	Close() error
}

// Options replace parts of the stack that New would otherwise build.
type Options struct {
	Version string
	// Synthesizer is used instead of the configured engine.
	Synthesizer tts.Synthesizer
	// Sink is used instead of the audio device.
	Sink Sink
}

// App holds everything a narration needs. Build it with New and release it
// with Close.
type App struct {
	cfg    *config.Config
	logger *log.Logger

	splitter  *splitter.Splitter
	synth     tts.Synthesizer
	cache     *cache.Manager
	history   *history.Store
	sink      Sink
	engine    *pipeline.Engine
	telemetry *telemetry.Telemetry

	engineName string
}

// New builds the app described by cfg. Any component that fails to start
// is closed again before the error is returned.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if cfg.Telemetry.Enabled {
		if a.telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, opts.Version, logger); err != nil {
			return nil, err
		}
	}

	if a.splitter, err = splitter.New(cfg.Splitter); err != nil {
		return nil, fmt.Errorf("splitter: %w", err)
	}

	a.synth = opts.Synthesizer
	if a.synth == nil {
		if a.synth, err = engines.New(cfg.TTS, logger); err != nil {
			return nil, err
		}
	}
	a.engineName = a.synth.Info().Name

	if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
		if a.cache, err = cache.NewManager(cfg.Cache, logger); err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}

	if cfg.History.Enabled && cfg.History.Path != "" {
		if a.history, err = history.Open(ctx, cfg.History, logger); err != nil {
			return nil, err
		}
	}

	if a.sink = opts.Sink; a.sink == nil {
		if a.sink, err = newSink(cfg.Audio, logger); err != nil {
			return nil, err
		}
	}

	var synth tts.Synthesizer = a.synth
	if a.cache != nil {
		synth = engines.NewCachedEngine(a.synth, a.cache, logger)
	}
	if a.engine, err = pipeline.New(a.splitter, synth, a.sink, cfg.Playback, logger); err != nil {
		return nil, err
	}
	a.engine.OnFinish(a.record)
	return a, nil
}

func newSink(cfg config.AudioConfig, logger *log.Logger) (Sink, error) {
	if cfg.Mute {
		return audio.NewMockPlayer(audio.MockCallbacks{}), nil
	}
	pc := audio.DefaultPlayerConfig()
	pc.Volume = cfg.Volume
	if cfg.BufferSize > 0 {
		pc.BufferSize = cfg.BufferSize
	}
	p, err := audio.NewPlayer(pc, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrAudioDeviceUnavailable, err)
	}
	return p, nil
}

// Start warms the engine up in the background. The returned channel
// receives the outcome once and is then closed. Engines without a warm-up
// step report success immediately.
func (a *App) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	w, ok := a.synth.(tts.Warmer)
	if !ok {
		done <- nil
		close(done)
		return done
	}

	go func() {
		defer close(done)
		start := time.Now()
		err := w.Warmup(ctx)
		if err != nil {
			a.logger.Warn("engine warm-up failed", "engine", a.engineName, "err", err)
		} else {
			a.logger.Debug("engine ready", "engine", a.engineName, "took", time.Since(start))
		}
		done <- err
	}()
	return done
}

// Speak plays text and blocks until it finishes.
func (a *App) Speak(ctx context.Context, text string) (pipeline.Status, error) {
	return a.engine.PlayText(ctx, text)
}

// Stop cancels the current narration.
func (a *App) Stop() { a.engine.Stop() }

// Engine exposes the playback engine for state subscriptions.
func (a *App) Engine() *pipeline.Engine { return a.engine }

// Splitter returns the configured splitter.
func (a *App) Splitter() *splitter.Splitter { return a.splitter }

// History returns the history store, or nil when history is disabled.
func (a *App) History() *history.Store { return a.history }

// Cache returns the audio cache, or nil when caching is disabled.
func (a *App) Cache() *cache.Manager { return a.cache }

// EngineInfo describes the synthesizer in use.
func (a *App) EngineInfo() tts.EngineInfo { return a.synth.Info() }

func (a *App) record(st pipeline.Status) {
	if a.history == nil {
		return
	}
	e := history.Entry{
		ID:       st.ID,
		Started:  st.Started,
		Finished: st.Finished,
		Engine:   a.engineName,
		Outcome:  st.State.String(),
		Chunks:   st.Total,
		Played:   played(st),
		Attempts: st.Attempt,
		Preview:  st.Preview,
	}
	if st.Err != nil {
		e.Error = st.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.history.Record(ctx, e); err != nil {
		a.logger.Warn("could not record history", "err", err)
	}
}

// played counts the chunks that finished playing.
func played(st pipeline.Status) int {
	if st.State == pipeline.StateComplete {
		return st.Total
	}
	return st.Index
}

// Close stops playback and releases every component in reverse order of
// creation.
func (a *App) Close() error {
	var errs []error
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.synth != nil {
		errs = append(errs, a.synth.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.telemetry.Shutdown(ctx))
		cancel()
	}
	return errors.Join(errs...)
}
