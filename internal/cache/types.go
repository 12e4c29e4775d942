package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cache data is corrupted
	ErrCacheCorrupted = errors.New("cache data corrupted")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("cache is closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the in-memory cache (fastest)
	LevelMemory Level = iota

	// LevelDisk is the disk cache (persistent)
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int64
	Size      int64
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or zero before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds configuration for the cache manager. Sizes are written the
// way people write them ("100MB", "1 GiB").
type Config struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	MemorySize       string        `yaml:"memory_size" mapstructure:"memory_size"`
	DiskSize         string        `yaml:"disk_size" mapstructure:"disk_size"`
	Dir              string        `yaml:"dir" mapstructure:"dir"`
	CompressionLevel int           `yaml:"compression_level" mapstructure:"compression_level"`
	TTL              time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// DefaultConfig returns default cache configuration. Dir is left empty
// and filled in by the caller from the user cache directory.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MemorySize:       "64MB",
		DiskSize:         "512MB",
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := c.memoryBytes(); err != nil {
		return err
	}
	if _, err := c.diskBytes(); err != nil {
		return err
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 22 {
		return fmt.Errorf("compression level must be between 0 and 22, got %d", c.CompressionLevel)
	}
	if c.TTL < 0 || c.CleanupInterval < 0 {
		return errors.New("cache durations must not be negative")
	}
	return nil
}

func (c Config) memoryBytes() (int64, error) {
	return parseSize("memory_size", c.MemorySize)
}

func (c Config) diskBytes() (int64, error) {
	return parseSize("disk_size", c.DiskSize)
}

func parseSize(name, s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("cache %s: %w", name, err)
	}
	return int64(n), nil
}

// Key derives the cache key for a synthesis request. Every input that
// changes the audio must be part of it.
func Key(engine, voice string, speed float64, text string) string {
	h := sha256.New()
	for _, part := range []string{engine, voice, strconv.FormatFloat(speed, 'g', -1, 64), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
