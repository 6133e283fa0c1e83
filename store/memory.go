package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/patrickmn/go-cache"
)

// MemoryStore backs every store interface with process-local state. It is
// the default for tests and single-node deployments.
type MemoryStore struct {
	replayWindow int

	mu         sync.Mutex
	failures   map[string]int
	rings      map[string][]string
	lastSeen   map[string]time.Time
	audits     map[string][]*config.AuthAttemptRecord
	references map[string]*config.ReferencePhoto

	locks   *cache.Cache
	replays *cache.Cache
}

func NewMemoryStore(cfg *config.LivenessParams) *MemoryStore {
	return &MemoryStore{
		replayWindow: cfg.ReplayWindow,
		failures:     map[string]int{},
		rings:        map[string][]string{},
		lastSeen:     map[string]time.Time{},
		audits:       map[string][]*config.AuthAttemptRecord{},
		references:   map[string]*config.ReferencePhoto{},
		locks:        cache.New(cache.NoExpiration, time.Minute),
		replays:      cache.New(cfg.ReplayTTL, 2*cfg.ReplayTTL),
	}
}

func memReplayKey(identityKey, digest string) string {
	return fmt.Sprintf("%s/%s", identityKey, digest)
}

func (s *MemoryStore) RecordFailure(_ context.Context, identityKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[identityKey]++
	return s.failures[identityKey], nil
}

func (s *MemoryStore) ResetFailures(_ context.Context, identityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failures, identityKey)
	return nil
}

func (s *MemoryStore) FailureCount(_ context.Context, identityKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failures[identityKey], nil
}

func (s *MemoryStore) Lock(_ context.Context, identityKey string, until time.Time) error {
	s.locks.Set(identityKey, until, time.Until(until))
	return nil
}

func (s *MemoryStore) LockedUntil(_ context.Context, identityKey string) (time.Time, bool, error) {
	v, found := s.locks.Get(identityKey)
	if !found {
		return time.Time{}, false, nil
	}

	until, ok := v.(time.Time)
	if !ok || !until.After(time.Now()) {
		return time.Time{}, false, nil
	}

	return until, true, nil
}

func (s *MemoryStore) Unlock(_ context.Context, identityKey string) error {
	s.locks.Delete(identityKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, identityKey)

	return nil
}

func (s *MemoryStore) Seen(_ context.Context, identityKey, digest string) (bool, error) {
	_, found := s.replays.Get(memReplayKey(identityKey, digest))
	return found, nil
}

func (s *MemoryStore) Remember(_ context.Context, identityKey, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replays.Set(memReplayKey(identityKey, digest), struct{}{}, cache.DefaultExpiration)

	ring := append(s.rings[identityKey], digest)
	if len(ring) > s.replayWindow {
		evicted := ring[0]
		ring = ring[1:]
		s.replays.Delete(memReplayKey(identityKey, evicted))
	}
	s.rings[identityKey] = ring

	return nil
}

func (s *MemoryStore) LastAttempt(_ context.Context, identityKey string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.lastSeen[identityKey]
	return at, ok, nil
}

func (s *MemoryStore) Touch(_ context.Context, identityKey string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen[identityKey] = at
	return nil
}

func (s *MemoryStore) Append(_ context.Context, record *config.AuthAttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audits[record.IdentityKey] = append(s.audits[record.IdentityKey], record)
	return nil
}

func (s *MemoryStore) History(_ context.Context, identityKey string, limit int) ([]*config.AuthAttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.audits[identityKey]
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}

	out := make([]*config.AuthAttemptRecord, 0, limit)
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}

	return out, nil
}

func (s *MemoryStore) CountFailuresSince(_ context.Context, identityKey string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, record := range s.audits[identityKey] {
		if record.Status == config.StatusFailed && !record.AttemptedAt.Before(since) {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStore) Get(_ context.Context, identityKey string) (*config.ReferencePhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photo, ok := s.references[identityKey]
	if !ok {
		return nil, ErrNotFound
	}

	return photo, nil
}

func (s *MemoryStore) Put(_ context.Context, photo *config.ReferencePhoto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.references[photo.IdentityKey] = photo
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, identityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.references, identityKey)
	return nil
}
