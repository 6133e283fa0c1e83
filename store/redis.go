package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/redis/go-redis/v9"
)

// Failure counters decay after a day without attempts.
const failureCounterTTL = 24 * time.Hour

// RedisStore backs the lockout and replay stores with Redis so multiple
// pipeline instances share failure counts, locks and capture digests.
type RedisStore struct {
	client       *redis.Client
	namespace    string
	replayWindow int
	replayTTL    time.Duration
}

func NewRedisStore(client *redis.Client, namespace string, cfg *config.LivenessParams) *RedisStore {
	return &RedisStore{
		client:       client,
		namespace:    namespace,
		replayWindow: cfg.ReplayWindow,
		replayTTL:    cfg.ReplayTTL,
	}
}

func (s *RedisStore) failureKey(identityKey string) string {
	return fmt.Sprintf("%s:failures:%s", s.namespace, identityKey)
}

func (s *RedisStore) lockKey(identityKey string) string {
	return fmt.Sprintf("%s:lock:%s", s.namespace, identityKey)
}

func (s *RedisStore) replayKey(identityKey string) string {
	return fmt.Sprintf("%s:replays:%s", s.namespace, identityKey)
}

func (s *RedisStore) lastAttemptKey(identityKey string) string {
	return fmt.Sprintf("%s:last_attempt:%s", s.namespace, identityKey)
}

func (s *RedisStore) RecordFailure(ctx context.Context, identityKey string) (int, error) {
	count, err := s.client.IncrBy(ctx, s.failureKey(identityKey), 1).Result()
	if err != nil {
		return 0, err
	}
	if err := s.client.Expire(ctx, s.failureKey(identityKey), failureCounterTTL).Err(); err != nil {
		return 0, err
	}

	return int(count), nil
}

func (s *RedisStore) ResetFailures(ctx context.Context, identityKey string) error {
	return s.client.Del(ctx, s.failureKey(identityKey)).Err()
}

func (s *RedisStore) FailureCount(ctx context.Context, identityKey string) (int, error) {
	count, err := s.client.Get(ctx, s.failureKey(identityKey)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *RedisStore) Lock(ctx context.Context, identityKey string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.lockKey(identityKey), until.Format(time.RFC3339Nano), ttl).Err()
}

func (s *RedisStore) LockedUntil(ctx context.Context, identityKey string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.lockKey(identityKey)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	until, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	if !until.After(time.Now()) {
		return time.Time{}, false, nil
	}

	return until, true, nil
}

func (s *RedisStore) Unlock(ctx context.Context, identityKey string) error {
	return s.client.Del(ctx, s.lockKey(identityKey), s.failureKey(identityKey)).Err()
}

func (s *RedisStore) Seen(ctx context.Context, identityKey, digest string) (bool, error) {
	digests, err := s.client.LRange(ctx, s.replayKey(identityKey), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}

	for _, known := range digests {
		if known == digest {
			return true, nil
		}
	}

	return false, nil
}

func (s *RedisStore) Remember(ctx context.Context, identityKey, digest string) error {
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.replayKey(identityKey), digest)
	pipe.LTrim(ctx, s.replayKey(identityKey), 0, int64(s.replayWindow-1))
	pipe.Expire(ctx, s.replayKey(identityKey), s.replayTTL)

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) LastAttempt(ctx context.Context, identityKey string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.lastAttemptKey(identityKey)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, err
	}

	return at, true, nil
}

func (s *RedisStore) Touch(ctx context.Context, identityKey string, at time.Time) error {
	return s.client.Set(ctx, s.lastAttemptKey(identityKey), at.Format(time.RFC3339Nano), s.replayTTL).Err()
}
