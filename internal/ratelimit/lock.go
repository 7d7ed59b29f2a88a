package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Delete only when the stored token is ours. A key that expired and
// was granted to another replica must not be torn down by the old
// holder.
const leaseReleaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

// Lease is a held single-holder lock. It stays valid until released or
// until its TTL lapses, whichever comes first.
type Lease struct {
	client *redis.Client
	script *redis.Script
	key    string
	token  string
}

// Release gives the lease back. Calling it after the TTL lapsed is
// harmless: the compare-and-delete leaves a re-granted key alone.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// Locker grants expiring leases backed by Redis SET NX, used to keep
// concurrent replicas from running the same sweep.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(leaseReleaseScript),
	}
}

// Acquire attempts to take the lease on key for ttl. It returns a nil
// lease, with no error, when another holder already has the key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("lock client not configured")
	}
	if key == "" {
		return nil, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	granted, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, nil
	}
	return &Lease{client: l.client, script: l.release, key: key, token: token}, nil
}
