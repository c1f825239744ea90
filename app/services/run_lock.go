package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrRunLockHeld = errors.New("another ingestion is already running")

// RunLock serialises ingestion runs. Acquire returns a release func that is safe to call once.
type RunLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// NewRunLock returns a redis lock when a client is configured, otherwise an in-process lock
func NewRunLock(rc *redis.Client, key string, ttl time.Duration, logger zerolog.Logger) RunLock {
	if rc == nil {
		return &LocalRunLock{}
	}
	return &RedisRunLock{
		rc:     rc,
		key:    key,
		ttl:    ttl,
		logger: logger.With().Str("component", "run_lock").Str("key", key).Logger(),
	}
}

// LocalRunLock guards runs within one process
type LocalRunLock struct {
	mu sync.Mutex
}

func (l *LocalRunLock) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.mu.TryLock() {
		return nil, ErrRunLockHeld
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock guards runs across processes sharing a redis instance
type RedisRunLock struct {
	rc     *redis.Client
	key    string
	ttl    time.Duration
	logger zerolog.Logger
}

func (l *RedisRunLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	// Acquire distributed lock (SETNX with TTL)
	ok, err := l.rc.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ingestion lock: %w", err)
	}
	if !ok {
		return nil, ErrRunLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(token) })
	}, nil
}

// release drops the lock if it still carries token. A lock that expired and was taken
// by another run is left alone.
func (l *RedisRunLock) release(token string) {
	deleted, err := releaseScript.Run(context.Background(), l.rc, []string{l.key}, token).Int64()
	if err != nil {
		l.logger.Error().Err(err).Msg("failed to release ingestion lock")
		return
	}
	if deleted == 0 {
		l.logger.Warn().Msg("ingestion lock expired before release")
	}
}

// RedisKey prefixes a key with the configured namespace
func RedisKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
