package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RunLock implements ports.RunLock using Redis SET NX. The lease is never
// released early; it simply expires after ttl.
type RunLock struct {
	client goredis.Cmdable
	prefix string
}

// NewRunLock creates a new Redis-backed run lock.
func NewRunLock(client goredis.Cmdable) *RunLock {
	return &RunLock{
		client: client,
		prefix: "lock:",
	}
}

// Acquire takes the named lease if nobody holds it.
// Returns true if the lease is now ours, false if already held.
func (l *RunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+name, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lock acquire: %w", err)
	}
	return result == "OK", nil
}
