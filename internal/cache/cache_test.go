package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCacheSetGet(t *testing.T) {
	c := New(Config{MaxSize: 10, TTL: time.Hour}, clockwork.NewFakeClock(), nil, nil)

	if _, ok := c.Get("flood safety", ""); ok {
		t.Fatal("hit on empty cache")
	}

	c.Set("flood safety", "Move to higher ground.", "")
	got, ok := c.Get("flood safety", "")
	if !ok {
		t.Fatal("miss after Set")
	}
	if got != "Move to higher ground." {
		t.Errorf("response = %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCacheNormalizesQueries(t *testing.T) {
	c := New(Config{MaxSize: 10, TTL: time.Hour}, clockwork.NewFakeClock(), nil, nil)

	c.Set("  FLOOD Safety  ", "Move to higher ground.", "")

	tests := []struct {
		query string
		want  bool
	}{
		{"flood safety", true},
		{"FLOOD SAFETY", true},
		{"\tflood safety\n", true},
		{"flood  safety", false}, // interior whitespace is significant
		{"flood safety tips", false},
	}
	for _, tt := range tests {
		if _, ok := c.Get(tt.query, ""); ok != tt.want {
			t.Errorf("Get(%q) hit = %v, want %v", tt.query, ok, tt.want)
		}
	}
}

func TestCacheContextDiscriminator(t *testing.T) {
	c := New(Config{MaxSize: 10, TTL: time.Hour}, clockwork.NewFakeClock(), nil, nil)

	c.Set("what should I do", "Evacuate now.", "flood:district-7")
	c.Set("what should I do", "Stay indoors.", "storm:district-7")

	if got, ok := c.Get("what should I do", "flood:district-7"); !ok || got != "Evacuate now." {
		t.Errorf("flood context = %q, %v", got, ok)
	}
	if got, ok := c.Get("what should I do", "storm:district-7"); !ok || got != "Stay indoors." {
		t.Errorf("storm context = %q, %v", got, ok)
	}
	if _, ok := c.Get("what should I do", ""); ok {
		t.Error("contextless lookup hit a contextual entry")
	}
}

func TestCacheExpiresLazily(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := New(Config{MaxSize: 10, TTL: time.Hour}, fc, nil, nil)

	c.Set("flood safety", "Move to higher ground.", "")

	fc.Advance(time.Hour - time.Second)
	if _, ok := c.Get("flood safety", ""); !ok {
		t.Fatal("entry expired before its TTL")
	}

	fc.Advance(2 * time.Second)
	if c.Len() != 1 {
		t.Fatal("expiry ran eagerly, want lazy")
	}
	if _, ok := c.Get("flood safety", ""); ok {
		t.Fatal("hit on expired entry")
	}
	if c.Len() != 0 {
		t.Error("expired entry not deleted on Get")
	}
}

func TestCacheEvictsOldestOnOverflow(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := New(Config{MaxSize: 3, TTL: time.Hour}, fc, nil, nil)

	for i := 1; i <= 3; i++ {
		c.Set(fmt.Sprintf("query %d", i), fmt.Sprintf("answer %d", i), "")
		fc.Advance(time.Second)
	}

	// Reads do not refresh insertion time, so query 1 stays the eviction
	// candidate even though it was just used.
	if _, ok := c.Get("query 1", ""); !ok {
		t.Fatal("query 1 missing before overflow")
	}

	c.Set("query 4", "answer 4", "")

	if c.Len() != 3 {
		t.Fatalf("Len = %d after overflow, want 3", c.Len())
	}
	if _, ok := c.Get("query 1", ""); ok {
		t.Error("oldest entry survived the overflow")
	}
	for i := 2; i <= 4; i++ {
		if _, ok := c.Get(fmt.Sprintf("query %d", i), ""); !ok {
			t.Errorf("query %d evicted, want only the oldest gone", i)
		}
	}
}

func TestCacheHitCounter(t *testing.T) {
	c := New(Config{MaxSize: 10, TTL: time.Hour}, clockwork.NewFakeClock(), nil, nil)

	c.Set("flood safety", "Move to higher ground.", "")
	c.Get("flood safety", "")
	c.Get("flood safety", "")

	c.mu.Lock()
	e := c.entries[cacheKey("flood safety", "")]
	c.mu.Unlock()
	if e.Hits != 2 {
		t.Errorf("hits = %d, want 2", e.Hits)
	}
}

func TestCacheClear(t *testing.T) {
	c := New(Config{MaxSize: 10, TTL: time.Hour}, clockwork.NewFakeClock(), nil, nil)

	c.Set("a", "1", "")
	c.Set("b", "2", "")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", c.Len())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	fc := clockwork.NewFakeClock()

	first := New(Config{MaxSize: 10, TTL: time.Hour}, fc, NewFileStore(path), nil)
	first.Set("flood safety", "Move to higher ground.", "")

	second := New(Config{MaxSize: 10, TTL: time.Hour}, fc, NewFileStore(path), nil)
	got, ok := second.Get("flood safety", "")
	if !ok {
		t.Fatal("restored cache missed a persisted entry")
	}
	if got != "Move to higher ground." {
		t.Errorf("response = %q", got)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestCacheSurvivesStoreFailure(t *testing.T) {
	// A file path under an existing *file* makes MkdirAll fail.
	base := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(base, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s := NewFileStore(filepath.Join(base, "cache.json"))

	c := New(Config{MaxSize: 10, TTL: time.Hour}, clockwork.NewFakeClock(), s, nil)
	c.Set("flood safety", "Move to higher ground.", "")

	if got, ok := c.Get("flood safety", ""); !ok || got != "Move to higher ground." {
		t.Fatal("in-memory cache degraded by persist failure")
	}
}
