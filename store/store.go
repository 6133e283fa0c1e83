package store

import (
	"context"
	"errors"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// LockoutStore tracks consecutive verification failures and temporary locks
// per identity. Implementations must be safe for concurrent use.
type LockoutStore interface {
	// RecordFailure increments the consecutive failure count for the identity
	// and returns the new count.
	RecordFailure(ctx context.Context, identityKey string) (int, error)

	// ResetFailures clears the consecutive failure count.
	ResetFailures(ctx context.Context, identityKey string) error

	// FailureCount reads the current consecutive failure count.
	FailureCount(ctx context.Context, identityKey string) (int, error)

	// Lock marks the identity as locked until the given time.
	Lock(ctx context.Context, identityKey string, until time.Time) error

	// LockedUntil reports whether the identity is currently locked and until
	// when.
	LockedUntil(ctx context.Context, identityKey string) (time.Time, bool, error)

	// Unlock removes an active lock and clears the failure count.
	Unlock(ctx context.Context, identityKey string) error
}

// ReplayStore remembers recent capture digests and the last attempt time per
// identity. The liveness guard consumes it to reject resubmitted captures and
// rapid-fire attempts.
type ReplayStore interface {
	// Seen reports whether the digest was recently submitted by the identity.
	Seen(ctx context.Context, identityKey, digest string) (bool, error)

	// Remember records a digest in the identity's bounded recent set.
	Remember(ctx context.Context, identityKey, digest string) error

	// LastAttempt returns the time of the identity's most recent attempt.
	LastAttempt(ctx context.Context, identityKey string) (time.Time, bool, error)

	// Touch records the time of the identity's latest attempt.
	Touch(ctx context.Context, identityKey string, at time.Time) error
}

// AuditStore persists the outcome of every verification attempt.
type AuditStore interface {
	// Append stores one attempt record.
	Append(ctx context.Context, record *config.AuthAttemptRecord) error

	// History returns the identity's most recent attempts, newest first.
	History(ctx context.Context, identityKey string, limit int) ([]*config.AuthAttemptRecord, error)

	// CountFailuresSince counts attempts with status FAILED recorded at or
	// after the given time.
	CountFailuresSince(ctx context.Context, identityKey string, since time.Time) (int, error)
}

// ReferenceStore holds the trusted reference photo per identity.
type ReferenceStore interface {
	// Get returns the reference photo, or ErrNotFound when none is stored.
	Get(ctx context.Context, identityKey string) (*config.ReferencePhoto, error)

	// Put stores or replaces the reference photo.
	Put(ctx context.Context, photo *config.ReferencePhoto) error

	// Delete removes the reference photo. Deleting a missing photo is not an
	// error.
	Delete(ctx context.Context, identityKey string) error
}
