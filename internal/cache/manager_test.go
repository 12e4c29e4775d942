package cache

import (
	"bytes"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.MemorySize = "1KiB"
	cfg.DiskSize = "1MiB"
	cfg.CleanupInterval = 0
	return cfg
}

func TestManager_PromotesDiskHits(t *testing.T) {
	cfg := testConfig(t)
	m, err := NewManager(cfg, nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	value := []byte("pcm bytes")
	if err := m.Put("k", value); err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Get("k"); !ok || !bytes.Equal(got, value) {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	// A fresh manager has an empty memory level, so the hit comes from disk.
	m, err = NewManager(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	for i := 0; i < 2; i++ {
		if got, ok := m.Get("k"); !ok || !bytes.Equal(got, value) {
			t.Fatalf("Get() #%d = %q, %v", i, got, ok)
		}
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) hit")
	}

	s := m.Stats()
	if s.DiskHits != 1 || s.MemoryHits != 1 || s.Promotions != 1 || s.Misses != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestManager_LargeValuesSkipMemory(t *testing.T) {
	m, err := NewManager(testConfig(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	big := bytes.Repeat([]byte{7}, 4096)
	if err := m.Put("big", big); err != nil {
		t.Fatalf("Put() = %v", err)
	}
	m.Flush()
	if got, ok := m.Get("big"); !ok || !bytes.Equal(got, big) {
		t.Fatal("large value not served from disk")
	}
	if s := m.Stats(); s.Memory.Items != 0 || s.Disk.Items != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestManager_CleanupExpires(t *testing.T) {
	cfg := testConfig(t)
	cfg.TTL = 10 * time.Millisecond
	m, err := NewManager(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	_ = m.Put("k", []byte("v"))
	m.Flush()
	time.Sleep(30 * time.Millisecond)
	m.Cleanup()

	if _, ok := m.Get("k"); ok {
		t.Error("expired entry still cached")
	}
	if s := m.Stats(); s.Cleanups != 1 {
		t.Errorf("Cleanups = %d", s.Cleanups)
	}
}

func TestManager_ClearAndClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.CleanupInterval = time.Millisecond
	m, err := NewManager(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Put("k", []byte("v"))
	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Get("k"); ok {
		t.Error("Clear() left entries")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad size", func(c *Config) { c.MemorySize = "lots" }, true},
		{"bad level", func(c *Config) { c.CompressionLevel = 30 }, true},
		{"disabled ignores sizes", func(c *Config) { c.Enabled = false; c.DiskSize = "??" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKey(t *testing.T) {
	a := Key("daemon", "M1", 1.05, "hello")
	if len(a) != 64 {
		t.Fatalf("Key() length = %d", len(a))
	}
	if a != Key("daemon", "M1", 1.05, "hello") {
		t.Error("Key() is not deterministic")
	}
	for _, other := range []string{
		Key("piper", "M1", 1.05, "hello"),
		Key("daemon", "M2", 1.05, "hello"),
		Key("daemon", "M1", 1.1, "hello"),
		Key("daemon", "M1", 1.05, "hello!"),
		Key("daemon", "M1h", 1.05, "ello"),
	} {
		if other == a {
			t.Error("distinct inputs produced the same key")
		}
	}
}
