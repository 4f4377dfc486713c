package utils

import (
	"context"
	"sync"
	"time"

	"github.com/bsm/redislock"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
)

// KeyLock serializes work on a string key. When Redis is configured it takes
// a distributed lock so concurrent instances cannot run the same key at the
// same time; otherwise it degrades to an in-process mutex per key.
type KeyLock struct {
	mu    sync.Mutex
	local map[string]*sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{local: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the key is held and returns a release func.
// The distributed lock is retried on a linear backoff until ttl expires.
func (kl *KeyLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, key, ttl, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(250 * time.Millisecond),
		})
		if err != nil {
			return nil, err
		}
		return func() { _ = lock.Release(context.Background()) }, nil
	}

	kl.mu.Lock()
	m, ok := kl.local[key]
	if !ok {
		m = &sync.Mutex{}
		kl.local[key] = m
	}
	kl.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
