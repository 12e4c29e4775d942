package audio

import (
	"errors"
	"sync"
	"time"
)

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay func(clip *Clip)
	OnStop func()
}

// MockPlayer is a sink that records clips instead of producing sound. It
// backs the --mute flag and the pipeline tests.
type MockPlayer struct {
	mu        sync.Mutex
	clips     []*Clip
	callbacks MockCallbacks
	playErr   error
	closed    bool

	playCount int
	stopCount int
}

// MockPlayerMetrics summarizes what a MockPlayer has seen.
type MockPlayerMetrics struct {
	PlayCount     int
	StopCount     int
	TotalDuration time.Duration
}

// NewMockPlayer creates a mock player with optional callbacks.
func NewMockPlayer(callbacks MockCallbacks) *MockPlayer {
	return &MockPlayer{callbacks: callbacks}
}

// Play records clip.
func (mp *MockPlayer) Play(clip *Clip) error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return errors.New("player is closed")
	}
	if mp.playErr != nil {
		err := mp.playErr
		mp.mu.Unlock()
		return err
	}
	mp.playCount++
	mp.clips = append(mp.clips, clip)
	onPlay := mp.callbacks.OnPlay
	mp.mu.Unlock()

	if onPlay != nil {
		onPlay(clip)
	}
	return nil
}

// Stop records a stop request.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	mp.stopCount++
	onStop := mp.callbacks.OnStop
	mp.mu.Unlock()

	if onStop != nil {
		onStop()
	}
	return nil
}

// Close marks the player closed; later Play calls fail.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.closed = true
	return nil
}

// SetPlayError makes every following Play call return err.
func (mp *MockPlayer) SetPlayError(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.playErr = err
}

// Clips returns the clips played so far, in order.
func (mp *MockPlayer) Clips() []*Clip {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]*Clip, len(mp.clips))
	copy(out, mp.clips)
	return out
}

// GetMetrics returns playback counters.
func (mp *MockPlayer) GetMetrics() MockPlayerMetrics {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	m := MockPlayerMetrics{PlayCount: mp.playCount, StopCount: mp.stopCount}
	for _, c := range mp.clips {
		m.TotalDuration += c.Duration()
	}
	return m
}
