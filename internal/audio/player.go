//go:build !nocgo

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat Format
	otoErr    error
)

func sharedContext(format Format, buffer time.Duration) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   buffer,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoFormat = ctx, format
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoFormat != format {
		return nil, fmt.Errorf("%w: device is %d Hz/%d ch, clip is %d Hz/%d ch",
			ErrFormatMismatch, otoFormat.SampleRate, otoFormat.Channels, format.SampleRate, format.Channels)
	}
	return otoCtx, nil
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	// SampleRate of the output device. Zero opens the device with the
	// format of the first clip played.
	SampleRate int
	Channels   int
	Volume     float64
	BufferSize time.Duration
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Channels:   1,
		Volume:     1.0,
		BufferSize: 100 * time.Millisecond,
	}
}

func validateConfig(config PlayerConfig) error {
	if config.SampleRate != 0 {
		if err := Mono16(config.SampleRate).Validate(); err != nil {
			return err
		}
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.Volume < 0 || config.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", config.Volume)
	}
	if config.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

// Player plays clips on the default output device through oto. Clips
// queued with Play are started immediately; the caller paces them.
type Player struct {
	mu      sync.Mutex
	config  PlayerConfig
	ctx     *oto.Context
	streams []*stream
	closed  bool
	logger  *log.Logger
}

// stream keeps the PCM bytes reachable while oto reads from them.
type stream struct {
	player *oto.Player
	data   []byte
}

// NewPlayer creates a player. The device is opened lazily unless a sample
// rate is configured.
func NewPlayer(config PlayerConfig, logger *log.Logger) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Player{config: config, logger: logger.WithPrefix("audio")}
	if config.SampleRate != 0 {
		ctx, err := sharedContext(Format{SampleRate: config.SampleRate, Channels: config.Channels, BitDepth: 16}, config.BufferSize)
		if err != nil {
			return nil, err
		}
		p.ctx = ctx
	}
	return p, nil
}

// Play starts clip without waiting for it to finish.
func (p *Player) Play(clip *Clip) error {
	if clip.Empty() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player is closed")
	}
	ctx, err := sharedContext(clip.Format, p.config.BufferSize)
	if err != nil {
		return err
	}
	p.ctx = ctx

	p.reap()

	data := make([]byte, len(clip.Data))
	copy(data, clip.Data)
	player := p.ctx.NewPlayer(bytes.NewReader(data))
	player.SetVolume(p.config.Volume)
	player.Play()
	p.streams = append(p.streams, &stream{player: player, data: data})

	p.logger.Debug("clip scheduled", "duration", clip.Duration(), "bytes", len(data))
	return nil
}

// reap closes streams that have drained.
func (p *Player) reap() {
	live := p.streams[:0]
	for _, s := range p.streams {
		if s.player.IsPlaying() {
			live = append(live, s)
			continue
		}
		if err := s.player.Close(); err != nil {
			p.logger.Warn("closing finished stream", "err", err)
		}
	}
	p.streams = live
}

// Stop silences everything that is playing or buffered.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	var errs []error
	for _, s := range p.streams {
		s.player.Pause()
		if err := s.player.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.streams = nil
	return errors.Join(errs...)
}

// SetVolume sets the playback volume (0.0 to 1.0) for current and future clips.
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Volume = volume
	for _, s := range p.streams {
		s.player.SetVolume(volume)
	}
	return nil
}

// Close stops playback. The oto context stays open for the process.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.stopLocked()
}
