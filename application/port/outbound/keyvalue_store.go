package outbound

import (
	"context"
	"time"
)

// KeyValueStore is the TTL-keyed store consumed by the token blacklist and the
// rate limiter. Implementations return plain errors for infrastructure faults;
// callers decide fail-secure or fail-open per operation.
type KeyValueStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
