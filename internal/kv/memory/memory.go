package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/uptimecore/internal/kv"
)

var _ kv.Store = (*Store)(nil)

type entry struct {
	value   string
	expires time.Time // zero means no expiry
}

type Store struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

func New() *Store {
	return &Store{m: make(map[string]entry), now: time.Now}
}

// WithClock replaces the time source; used by tests to expire entries.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) live(e entry, now time.Time) bool {
	return e.expires.IsZero() || now.Before(e.expires)
}

func (s *Store) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return "", false, nil
	}
	if !s.live(e, s.now()) {
		delete(s.m, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = entry{value: value, expires: s.expiry(ttl)}
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok && s.live(e, s.now()) {
		return false, nil
	}
	s.m[key] = entry{value: value, expires: s.expiry(ttl)}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Sweep drops expired entries that were never read again, such as dedup
// markers.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for k, e := range s.m {
		if !s.live(e, now) {
			delete(s.m, k)
			n++
		}
	}
	return n, nil
}
