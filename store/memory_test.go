package store

import (
	"context"
	"testing"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/stretchr/testify/assert"
)

var (
	_ LockoutStore   = (*MemoryStore)(nil)
	_ ReplayStore    = (*MemoryStore)(nil)
	_ AuditStore     = (*MemoryStore)(nil)
	_ ReferenceStore = (*MemoryStore)(nil)
)

func TestMemoryStore_LockoutFlow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.DefaultLivenessParams)

	for i := 1; i <= 5; i++ {
		count, err := s.RecordFailure(ctx, "identity-1")
		assert.NoError(t, err)
		assert.Equal(t, i, count)
	}

	count, err := s.FailureCount(ctx, "identity-1")
	assert.NoError(t, err)
	assert.Equal(t, 5, count)

	until := time.Now().Add(15 * time.Minute)
	assert.NoError(t, s.Lock(ctx, "identity-1", until))

	lockedUntil, locked, err := s.LockedUntil(ctx, "identity-1")
	assert.NoError(t, err)
	assert.True(t, locked)
	assert.WithinDuration(t, until, lockedUntil, time.Second)

	// Other identities are unaffected.
	_, locked, err = s.LockedUntil(ctx, "identity-2")
	assert.NoError(t, err)
	assert.False(t, locked)

	assert.NoError(t, s.Unlock(ctx, "identity-1"))

	_, locked, err = s.LockedUntil(ctx, "identity-1")
	assert.NoError(t, err)
	assert.False(t, locked)

	count, err = s.RecordFailure(ctx, "identity-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStore_ResetFailures(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.DefaultLivenessParams)

	_, err := s.RecordFailure(ctx, "identity-1")
	assert.NoError(t, err)
	_, err = s.RecordFailure(ctx, "identity-1")
	assert.NoError(t, err)

	assert.NoError(t, s.ResetFailures(ctx, "identity-1"))

	count, err := s.FailureCount(ctx, "identity-1")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = s.RecordFailure(ctx, "identity-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStore_LockExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.DefaultLivenessParams)

	assert.NoError(t, s.Lock(ctx, "identity-1", time.Now().Add(30*time.Millisecond)))

	_, locked, err := s.LockedUntil(ctx, "identity-1")
	assert.NoError(t, err)
	assert.True(t, locked)

	time.Sleep(60 * time.Millisecond)

	_, locked, err = s.LockedUntil(ctx, "identity-1")
	assert.NoError(t, err)
	assert.False(t, locked)
}

func TestMemoryStore_ReplayRingEviction(t *testing.T) {
	ctx := context.Background()
	cfg := *config.DefaultLivenessParams
	cfg.ReplayWindow = 3
	s := NewMemoryStore(&cfg)

	digests := []string{"d1", "d2", "d3", "d4"}
	for _, digest := range digests {
		assert.NoError(t, s.Remember(ctx, "identity-1", digest))
	}

	seen, err := s.Seen(ctx, "identity-1", "d1")
	assert.NoError(t, err)
	assert.False(t, seen)

	for _, digest := range digests[1:] {
		seen, err := s.Seen(ctx, "identity-1", digest)
		assert.NoError(t, err)
		assert.True(t, seen)
	}

	// Digests are scoped per identity.
	seen, err = s.Seen(ctx, "identity-2", "d2")
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStore_ReplayTTL(t *testing.T) {
	ctx := context.Background()
	cfg := *config.DefaultLivenessParams
	cfg.ReplayTTL = 30 * time.Millisecond
	s := NewMemoryStore(&cfg)

	assert.NoError(t, s.Remember(ctx, "identity-1", "d1"))

	seen, err := s.Seen(ctx, "identity-1", "d1")
	assert.NoError(t, err)
	assert.True(t, seen)

	time.Sleep(60 * time.Millisecond)

	seen, err = s.Seen(ctx, "identity-1", "d1")
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStore_LastAttempt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.DefaultLivenessParams)

	_, ok, err := s.LastAttempt(ctx, "identity-1")
	assert.NoError(t, err)
	assert.False(t, ok)

	at := time.Now()
	assert.NoError(t, s.Touch(ctx, "identity-1", at))

	got, ok, err := s.LastAttempt(ctx, "identity-1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, at, got, time.Millisecond)
}

func TestMemoryStore_AuditHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.DefaultLivenessParams)

	now := time.Now()
	records := []*config.AuthAttemptRecord{
		{ID: "a1", IdentityKey: "identity-1", Status: config.StatusFailed, AttemptedAt: now.Add(-48 * time.Hour)},
		{ID: "a2", IdentityKey: "identity-1", Status: config.StatusFailed, AttemptedAt: now.Add(-time.Hour)},
		{ID: "a3", IdentityKey: "identity-1", Status: config.StatusSuccess, AttemptedAt: now},
	}
	for _, record := range records {
		assert.NoError(t, s.Append(ctx, record))
	}

	history, err := s.History(ctx, "identity-1", 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(history))
	assert.Equal(t, "a3", history[0].ID)
	assert.Equal(t, "a2", history[1].ID)

	history, err = s.History(ctx, "identity-1", 0)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(history))

	count, err := s.CountFailuresSince(ctx, "identity-1", now.Add(-24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.CountFailuresSince(ctx, "identity-1", now.Add(-72*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryStore_ReferenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.DefaultLivenessParams)

	_, err := s.Get(ctx, "identity-1")
	assert.ErrorIs(t, err, ErrNotFound)

	photo := &config.ReferencePhoto{
		IdentityKey: "identity-1",
		Data:        []byte("jpeg bytes"),
		ContentType: "image/jpeg",
		Source:      "government_api",
		UpdatedAt:   time.Now(),
	}
	assert.NoError(t, s.Put(ctx, photo))

	got, err := s.Get(ctx, "identity-1")
	assert.NoError(t, err)
	assert.Equal(t, photo.Data, got.Data)
	assert.Equal(t, photo.Source, got.Source)

	assert.NoError(t, s.Delete(ctx, "identity-1"))

	_, err = s.Get(ctx, "identity-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing reference is not an error.
	assert.NoError(t, s.Delete(ctx, "identity-1"))
}
