package engines

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/tts"
)

// CachedEngine serves repeated requests from the audio cache.
type CachedEngine struct {
	tts.Synthesizer
	cache  *cache.Manager
	logger *log.Logger
}

// NewCachedEngine wraps s. The cache is not closed by Close; it belongs to
// the caller.
func NewCachedEngine(s tts.Synthesizer, c *cache.Manager, logger *log.Logger) *CachedEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedEngine{Synthesizer: s, cache: c, logger: logger.WithPrefix("cache")}
}

// Synthesize returns the cached clip for text or synthesizes and stores it.
func (e *CachedEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	info := e.Info()
	key := cache.Key(info.Name, info.Voice, info.Speed, text)

	if data, ok := e.cache.Get(key); ok {
		clip, err := decodeClip(data)
		if err == nil {
			e.logger.Debug("cache hit", "key", key[:12])
			return clip, nil
		}
		e.logger.Warn("dropping unreadable cache entry", "key", key[:12], "err", err)
	}

	clip, err := e.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Put(key, encodeClip(clip)); err != nil {
		e.logger.Warn("cache store failed", "err", err)
	}
	return clip, nil
}

// Warmup forwards to the wrapped engine when it supports warm-up.
func (e *CachedEngine) Warmup(ctx context.Context) error {
	if w, ok := e.Synthesizer.(tts.Warmer); ok {
		return w.Warmup(ctx)
	}
	return nil
}

// Cached clips carry an 8-byte header: magic, channels, bit depth and the
// sample rate as a little-endian uint32.
const clipMagic = "NR"

var errBadClip = errors.New("bad cached clip")

func encodeClip(c *audio.Clip) []byte {
	buf := make([]byte, 8+len(c.Data))
	copy(buf, clipMagic)
	buf[2] = byte(c.Format.Channels)
	buf[3] = byte(c.Format.BitDepth)
	binary.LittleEndian.PutUint32(buf[4:], uint32(c.Format.SampleRate))
	copy(buf[8:], c.Data)
	return buf
}

func decodeClip(b []byte) (*audio.Clip, error) {
	if len(b) < 8 || string(b[:2]) != clipMagic {
		return nil, errBadClip
	}
	format := audio.Format{
		Channels:   int(b[2]),
		BitDepth:   int(b[3]),
		SampleRate: int(binary.LittleEndian.Uint32(b[4:8])),
	}
	return audio.NewClip(b[8:], format)
}
