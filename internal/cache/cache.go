// Package cache holds query responses keyed by operation and arguments,
// bounded by a byte budget and a fixed entry age.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	DefaultMaxBytes int64 = 50 << 20
	DefaultTTL            = 24 * time.Hour

	// evictFraction of the entries is removed per eviction pass.
	evictFraction = 0.25
)

// ErrTooLarge is returned by Set when a single value exceeds the budget.
var ErrTooLarge = errors.New("cache: value larger than cache budget")

// Entry is a cached value. Data holds the JSON encoding of the value and
// SizeBytes its length at insertion.
type Entry struct {
	Key       string
	Data      []byte
	Timestamp time.Time
	HitCount  int
	SizeBytes int
}

// Scorer rates how much an entry is worth keeping. Lower scores are
// evicted first.
type Scorer func(e *Entry, now time.Time) float64

// HitsPerAge scores an entry by hits per millisecond of age.
func HitsPerAge(e *Entry, now time.Time) float64 {
	age := now.Sub(e.Timestamp).Milliseconds()
	if age < 1 {
		age = 1
	}
	return float64(e.HitCount) / float64(age)
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Entries   int
	SizeBytes int64
	Hits      int
	Misses    int
}

// HitRate is hits over lookups, 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Manager is a bounded response cache. It is not safe for concurrent use;
// the worker that owns it serializes access.
type Manager struct {
	enabled  bool
	maxBytes int64
	ttl      time.Duration
	scorer   Scorer
	now      func() time.Time

	entries map[string]*Entry
	size    int64
	hits    int
	misses  int
}

// Option configures a Manager.
type Option func(*Manager)

// WithEnabled turns caching on or off. A disabled cache never stores.
func WithEnabled(enabled bool) Option {
	return func(m *Manager) { m.enabled = enabled }
}

// WithMaxBytes sets the resident byte budget.
func WithMaxBytes(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxBytes = n
		}
	}
}

// WithTTL sets the maximum entry age.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithScorer replaces the eviction scorer.
func WithScorer(s Scorer) Option {
	return func(m *Manager) {
		if s != nil {
			m.scorer = s
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates an enabled cache with default budget and TTL.
func New(opts ...Option) *Manager {
	m := &Manager{
		enabled:  true,
		maxBytes: DefaultMaxBytes,
		ttl:      DefaultTTL,
		scorer:   HitsPerAge,
		now:      time.Now,
		entries:  make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key builds a cache key from an operation name and its arguments.
func Key(op string, args any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	return op + ":" + string(data), nil
}

// Enabled reports whether the cache stores values.
func (m *Manager) Enabled() bool { return m.enabled }

// Get returns the encoded value for key. Expired entries are removed and
// reported absent.
func (m *Manager) Get(key string) ([]byte, bool) {
	if !m.enabled {
		return nil, false
	}
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	if m.now().Sub(e.Timestamp) > m.ttl {
		m.remove(key)
		m.misses++
		return nil, false
	}
	e.HitCount++
	m.hits++
	return e.Data, true
}

// GetJSON decodes the value for key into out.
func (m *Manager) GetJSON(key string, out any) (bool, error) {
	data, ok := m.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cache decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores the JSON encoding of value under key, evicting entries first
// when the budget would be exceeded.
func (m *Manager) Set(key string, value any) error {
	if !m.enabled {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}
	size := int64(len(data))
	if size > m.maxBytes {
		return ErrTooLarge
	}
	m.remove(key)
	for m.size+size > m.maxBytes && len(m.entries) > 0 {
		m.Evict()
	}
	m.entries[key] = &Entry{
		Key:       key,
		Data:      data,
		Timestamp: m.now(),
		SizeBytes: len(data),
	}
	m.size += size
	return nil
}

// Evict removes the least desirable quarter of the entries, at least one.
// It returns the number removed.
func (m *Manager) Evict() int {
	if len(m.entries) == 0 {
		return 0
	}
	now := m.now()
	type scored struct {
		e     *Entry
		score float64
	}
	all := make([]scored, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, scored{e: e, score: m.scorer(e, now)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score < all[j].score
		}
		if !all[i].e.Timestamp.Equal(all[j].e.Timestamp) {
			return all[i].e.Timestamp.Before(all[j].e.Timestamp)
		}
		return all[i].e.Key < all[j].e.Key
	})
	n := int(float64(len(all)) * evictFraction)
	if n < 1 {
		n = 1
	}
	for _, s := range all[:n] {
		m.remove(s.e.Key)
	}
	return n
}

// Clear removes entries whose key contains scope, or every entry when scope
// is empty. It returns the number removed.
func (m *Manager) Clear(scope string) int {
	if scope == "" {
		n := len(m.entries)
		m.entries = make(map[string]*Entry)
		m.size = 0
		return n
	}
	n := 0
	for key := range m.entries {
		if strings.Contains(key, scope) {
			m.remove(key)
			n++
		}
	}
	return n
}

// Size is the resident byte total.
func (m *Manager) Size() int64 { return m.size }

// Len is the number of entries.
func (m *Manager) Len() int { return len(m.entries) }

// Stats returns a snapshot of cache activity.
func (m *Manager) Stats() Stats {
	return Stats{Entries: len(m.entries), SizeBytes: m.size, Hits: m.hits, Misses: m.misses}
}

func (m *Manager) remove(key string) {
	if e, ok := m.entries[key]; ok {
		m.size -= int64(e.SizeBytes)
		delete(m.entries, key)
	}
}
