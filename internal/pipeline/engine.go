package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/splitter"
	"github.com/dgnsrekt/narrate/internal/tts"
)

// RetryConfig bounds the whole-playback retry for network errors.
type RetryConfig struct {
	// Attempts is the total number of runs, including the first.
	Attempts int           `yaml:"attempts" mapstructure:"attempts"`
	Delay    time.Duration `yaml:"delay" mapstructure:"delay"`
}

// Options configures an Engine.
type Options struct {
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`
	// InsertSilence pads every chunk after the first with Silence.
	InsertSilence bool          `yaml:"insert_silence" mapstructure:"insert_silence"`
	Silence       time.Duration `yaml:"silence" mapstructure:"silence"`
}

// DefaultOptions returns three attempts one second apart and no padding.
func DefaultOptions() Options {
	return Options{
		Retry:   RetryConfig{Attempts: 3, Delay: time.Second},
		Silence: 250 * time.Millisecond,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", o.Retry.Attempts)
	}
	if o.Retry.Delay < 0 || o.Silence < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Engine speaks text through a synthesizer and a sink. It runs at most one
// session at a time: starting a new one cancels the previous session and
// waits for it to release the sink.
type Engine struct {
	splitter *splitter.Splitter
	synth    tts.Synthesizer
	sink     tts.Sink
	opts     Options
	logger   *log.Logger
	metrics  *metrics

	mu       sync.Mutex
	active   *Session
	onState  func(Status)
	onFinish func(Status)
}

// New creates an Engine.
func New(sp *splitter.Splitter, synth tts.Synthesizer, sink tts.Sink, opts Options, logger *log.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sp == nil || synth == nil || sink == nil {
		return nil, errors.New("pipeline: splitter, synthesizer and sink are required")
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("pipeline")
	return &Engine{
		splitter: sp,
		synth:    synth,
		sink:     sink,
		opts:     opts,
		logger:   logger,
		metrics:  newMetrics(logger),
	}, nil
}

// OnStateChange registers fn to receive every session state change. It is
// called from the goroutine driving the session and must not block.
func (e *Engine) OnStateChange(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onState = fn
}

// OnFinish registers fn to receive the final status of every session.
func (e *Engine) OnFinish(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFinish = fn
}

// PlayText splits text and plays it. It returns once every chunk has
// played, the session was cancelled, or a chunk failed. Only a failure
// produces an error, a *ChunkError naming the chunk. Text that yields no
// chunks stops any running session and completes immediately.
func (e *Engine) PlayText(ctx context.Context, text string) (Status, error) {
	chunks := e.splitter.SplitText(text)
	if len(chunks) == 0 {
		e.Stop()
		e.logger.Debug("nothing to speak")
		return Status{State: StateComplete, Started: time.Now(), Finished: time.Now()}, nil
	}

	ctx, span := tracer().Start(ctx, "narrate.session", trace.WithAttributes(
		attribute.Int("chunks", len(chunks)),
		attribute.String("engine", e.synth.Info().Name),
	))
	s := e.begin(ctx, chunks)
	defer e.end(s)

	e.logger.Debug("session started", "id", s.ID(), "chunks", len(chunks))
	err := e.runWithRetry(s)
	st := s.finish(err)

	e.metrics.sessionFinished(st.State)
	span.SetAttributes(attribute.String("outcome", st.State.String()), attribute.Int("attempts", st.Attempt))
	endSpan(span, st.Err)
	e.logger.Debug("session finished", "id", st.ID, "state", st.State, "attempts", st.Attempt)

	e.mu.Lock()
	onFinish := e.onFinish
	e.mu.Unlock()
	if onFinish != nil {
		onFinish(st)
	}
	return st, st.Err
}

// Stop cancels the active session, if any, and waits for it to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.active
	e.mu.Unlock()
	if s == nil {
		return
	}
	s.Cancel()
	<-s.Done()
}

// Active returns the status of the running session.
func (e *Engine) Active() (Status, bool) {
	e.mu.Lock()
	s := e.active
	e.mu.Unlock()
	if s == nil {
		return Status{}, false
	}
	return s.Status(), true
}

func (e *Engine) begin(ctx context.Context, chunks []splitter.Chunk) *Session {
	e.mu.Lock()
	s := newSession(ctx, chunks, e.onState)
	prev := e.active
	e.active = s
	e.mu.Unlock()

	if prev != nil {
		e.logger.Debug("cancelling previous session", "id", prev.ID())
		prev.Cancel()
		<-prev.Done()
	}
	return s
}

func (e *Engine) end(s *Session) {
	e.mu.Lock()
	if e.active == s {
		e.active = nil
	}
	e.mu.Unlock()
	close(s.done)
}

func (e *Engine) runWithRetry(s *Session) error {
	for attempt := 1; ; attempt++ {
		s.beginAttempt(attempt)
		err := Run(s.ctx, s.chunks, e.synthesize, e.play, s.hooks())
		if err == nil || s.ctx.Err() != nil {
			return err
		}
		if !tts.IsRetryable(err) || attempt >= e.opts.Retry.Attempts {
			return err
		}

		e.logger.Warn("network error, restarting playback", "attempt", attempt, "err", err)
		e.metrics.retried()
		s.reset()

		timer := time.NewTimer(e.opts.Retry.Delay)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			return s.ctx.Err()
		}
	}
}

func (e *Engine) synthesize(ctx context.Context, i int, chunk splitter.Chunk) (*audio.Clip, error) {
	engine := e.synth.Info().Name
	ctx, span := tracer().Start(ctx, "narrate.synthesize", trace.WithAttributes(
		attribute.Int("index", i),
		attribute.String("engine", engine),
	))
	start := time.Now()
	clip, err := e.synth.Synthesize(ctx, chunk.Text)
	elapsed := time.Since(start)
	e.metrics.synthesized(engine, elapsed, err)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("chunk synthesized", "index", i, "text", preview(chunk.Text), "took", elapsed, "audio", clip.Duration())
	return clip, nil
}

// play hands clip to the sink and waits for its duration. Cancellation
// stops the sink so nothing of the chunk keeps playing.
func (e *Engine) play(ctx context.Context, i int, clip *audio.Clip) error {
	if e.opts.InsertSilence && i > 0 && !clip.Empty() {
		clip = clip.WithLeadingSilence(e.opts.Silence)
	}
	if clip.Empty() {
		return nil
	}
	if err := e.sink.Play(clip); err != nil {
		return tts.NewTTSError(tts.ErrorCodeAudioFailure, "schedule clip", err).WithContext("index", i)
	}

	timer := time.NewTimer(clip.Duration())
	defer timer.Stop()
	select {
	case <-timer.C:
		e.metrics.chunkPlayed()
		return nil
	case <-ctx.Done():
		if err := e.sink.Stop(); err != nil {
			e.logger.Warn("stopping sink", "err", err)
		}
		return ctx.Err()
	}
}

func preview(text string) string {
	return runewidth.Truncate(text, 40, "…")
}
