package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Manager coordinates the memory and disk levels. Disk hits are promoted
// to memory, writes go to memory at once and to disk in the background,
// and a cleanup loop expires old entries.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	cfg    Config
	logger *log.Logger

	writes      sync.WaitGroup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
	closeOnce   sync.Once

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats summarizes both levels.
type ManagerStats struct {
	Memory     Stats
	Disk       Stats
	MemoryHits int64
	DiskHits   int64
	Misses     int64
	Promotions int64
	Cleanups   int64
}

// NewManager opens the cache described by cfg. cfg.Dir must be set.
func NewManager(cfg Config, logger *log.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	memBytes, _ := cfg.memoryBytes()
	diskBytes, _ := cfg.diskBytes()

	disk, err := NewDiskCache(cfg.Dir, diskBytes, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	m := &Manager{
		memory:      NewMemoryCache(memBytes),
		disk:        disk,
		cfg:         cfg,
		logger:      logger.WithPrefix("cache"),
		cleanupStop: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	ds := disk.Stats()
	m.logger.Debug("cache opened", "dir", cfg.Dir, "entries", ds.Items,
		"size", humanize.IBytes(uint64(ds.Size)), "limit", humanize.IBytes(uint64(diskBytes)))

	if cfg.CleanupInterval > 0 {
		go m.cleanupLoop()
	} else {
		close(m.cleanupDone)
	}
	return m, nil
}

// Get looks in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.count(func(s *ManagerStats) { s.MemoryHits++ })
		return data, true
	}
	if data, ok := m.disk.Get(key); ok {
		m.count(func(s *ManagerStats) { s.DiskHits++; s.Promotions++ })
		_ = m.memory.Put(key, data)
		return data, true
	}
	m.count(func(s *ManagerStats) { s.Misses++ })
	return nil, false
}

// Put stores value in memory and schedules the disk write.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}
	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		if err := m.disk.Put(key, value); err != nil && !errors.Is(err, ErrClosed) {
			m.logger.Warn("disk cache write failed", "size", humanize.IBytes(uint64(len(value))), "err", err)
		}
	}()
	return nil
}

// Flush waits for scheduled disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Clear removes every entry from both levels.
func (m *Manager) Clear() error {
	m.Flush()
	m.memory.Clear()
	return m.disk.Clear()
}

// Stats returns counters for both levels.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()
	s.Memory = m.memory.Stats()
	s.Disk = m.disk.Stats()
	return s
}

// Cleanup expires entries older than the configured TTL.
func (m *Manager) Cleanup() {
	m.count(func(s *ManagerStats) { s.Cleanups++ })
	if m.cfg.TTL <= 0 {
		return
	}
	memRemoved := m.memory.Prune(m.cfg.TTL)
	diskRemoved := m.disk.RemoveOlderThan(time.Now().Add(-m.cfg.TTL))
	if memRemoved+diskRemoved > 0 {
		m.logger.Debug("expired cache entries", "memory", memRemoved, "disk", diskRemoved)
	}
}

// Close stops the cleanup loop, waits for pending writes and closes the
// disk level.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.cleanupStop)
		<-m.cleanupDone
		m.Flush()
		err = m.disk.Close()
	})
	return err
}

func (m *Manager) cleanupLoop() {
	defer close(m.cleanupDone)
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.cleanupStop:
			return
		}
	}
}

func (m *Manager) count(fn func(*ManagerStats)) {
	m.mu.Lock()
	fn(&m.stats)
	m.mu.Unlock()
}
