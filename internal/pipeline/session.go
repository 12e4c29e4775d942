package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/narrate/internal/splitter"
	"github.com/dgnsrekt/narrate/internal/tts"
)

// Status is a snapshot of a session.
type Status struct {
	ID          string
	State       State
	Index       int
	Total       int
	Preview     string
	Prefetching bool
	Attempt     int
	Err         error
	Started     time.Time
	Finished    time.Time
}

// Session is one PlayText invocation. It owns its cancellation and is
// finished exactly once.
type Session struct {
	id      string
	chunks  []splitter.Chunk
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	notify  func(Status)
	started time.Time

	mu          sync.Mutex
	sm          *StateMachine
	index       int
	prefetching bool
	attempt     int
	err         error
	finished    time.Time
}

func newSession(parent context.Context, chunks []splitter.Chunk, notify func(Status)) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:      uuid.NewString(),
		chunks:  chunks,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		notify:  notify,
		started: time.Now(),
		sm:      NewStateMachine(),
	}
	for _, st := range []State{StateComplete, StateCancelled, StateFailed} {
		s.sm.OnEnter(st, func() { s.finished = time.Now() })
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Cancel stops the session. It is safe to call more than once.
func (s *Session) Cancel() { s.cancel() }

// Done is closed once the session has finished and released the sink.
func (s *Session) Done() <-chan struct{} { return s.done }

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	return Status{
		ID:          s.id,
		State:       s.sm.Current(),
		Index:       s.index,
		Total:       len(s.chunks),
		Preview:     preview(s.chunks[0].Text),
		Prefetching: s.prefetching,
		Attempt:     s.attempt,
		Err:         s.err,
		Started:     s.started,
		Finished:    s.finished,
	}
}

func (s *Session) transition(to State, index int, prefetching bool) bool {
	s.mu.Lock()
	if !s.sm.Transition(to) {
		s.mu.Unlock()
		return false
	}
	s.index, s.prefetching = index, prefetching
	st := s.statusLocked()
	s.mu.Unlock()

	if s.notify != nil {
		s.notify(st)
	}
	return true
}

func (s *Session) hooks() Hooks {
	return Hooks{
		OnSynthesizing: func(i int) { s.transition(StateSynthesizing, i, false) },
		OnPlaying:      func(i int, prefetching bool) { s.transition(StatePlaying, i, prefetching) },
	}
}

func (s *Session) beginAttempt(n int) {
	s.mu.Lock()
	s.attempt = n
	s.mu.Unlock()
}

// reset returns the session to idle before a retry.
func (s *Session) reset() {
	s.transition(StateIdle, 0, false)
}

// finish moves the session to its terminal state and reports it.
func (s *Session) finish(err error) Status {
	to := StateComplete
	switch {
	case err == nil:
	case s.ctx.Err() != nil || tts.IsCanceled(err):
		to, err = StateCancelled, nil
	default:
		to = StateFailed
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.transition(to, s.Status().Index, false)
	s.cancel()
	return s.Status()
}
