//go:build nocgo

package audio

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// ErrNoDevice is returned when the binary was built without audio support.
var ErrNoDevice = errors.New("audio not available in nocgo build")

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int
	Channels   int
	Volume     float64
	BufferSize time.Duration
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{Channels: 1, Volume: 1.0, BufferSize: 100 * time.Millisecond}
}

// Player is a stub for builds without cgo.
type Player struct{}

// NewPlayer always fails in nocgo builds.
func NewPlayer(PlayerConfig, *log.Logger) (*Player, error) {
	return nil, ErrNoDevice
}

func (p *Player) Play(*Clip) error { return ErrNoDevice }

func (p *Player) Stop() error { return nil }

func (p *Player) SetVolume(float64) error { return ErrNoDevice }

func (p *Player) Close() error { return nil }
