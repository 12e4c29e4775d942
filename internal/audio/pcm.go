package audio

import (
	"errors"
	"fmt"
	"time"
)

// Format describes signed little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is 44.1kHz 16-bit mono, what the synthesis daemon emits.
func DefaultFormat() Format {
	return Format{SampleRate: 44100, Channels: 1, BitDepth: 16}
}

// Mono16 returns a 16-bit mono format at the given sample rate.
func Mono16(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: 1, BitDepth: 16}
}

// FrameSize returns the number of bytes per sample frame.
func (f Format) FrameSize() int {
	return f.BitDepth / 8 * f.Channels
}

// Validate checks the format is something the players can handle.
func (f Format) Validate() error {
	if f.SampleRate < 8000 || f.SampleRate > 96000 {
		return fmt.Errorf("sample rate must be between 8000 and 96000 Hz, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", f.BitDepth)
	}
	return nil
}

// Duration returns how long n bytes of audio in this format play for.
func (f Format) Duration(n int) time.Duration {
	frame := f.FrameSize()
	if f.SampleRate <= 0 || frame <= 0 {
		return 0
	}
	frames := n / frame
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Silence returns zero-amplitude PCM lasting d.
func (f Format) Silence(d time.Duration) []byte {
	if d <= 0 || f.SampleRate <= 0 {
		return nil
	}
	frames := int(d * time.Duration(f.SampleRate) / time.Second)
	return make([]byte, frames*f.FrameSize())
}

// Clip is a synthesized audio segment. The pipeline owns a clip from the
// moment synthesis returns it until it is handed to a sink.
type Clip struct {
	Data   []byte
	Format Format
}

// NewClip wraps PCM data, rejecting buffers that are not frame aligned.
func NewClip(data []byte, format Format) (*Clip, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(data)%format.FrameSize() != 0 {
		return nil, fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(data), format.FrameSize())
	}
	return &Clip{Data: data, Format: format}, nil
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil {
		return 0
	}
	return c.Format.Duration(len(c.Data))
}

// Empty reports whether the clip holds no audio.
func (c *Clip) Empty() bool {
	return c == nil || len(c.Data) == 0
}

// WithLeadingSilence returns a new clip with d of silence before the audio.
func (c *Clip) WithLeadingSilence(d time.Duration) *Clip {
	pad := c.Format.Silence(d)
	if len(pad) == 0 {
		return c
	}
	data := make([]byte, 0, len(pad)+len(c.Data))
	data = append(data, pad...)
	data = append(data, c.Data...)
	return &Clip{Data: data, Format: c.Format}
}

// ErrFormatMismatch is returned by a player asked to play a clip whose
// format differs from the device format.
var ErrFormatMismatch = errors.New("clip format does not match output format")
