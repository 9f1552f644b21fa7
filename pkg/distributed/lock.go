package distributed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds this owner's value,
// so a lock that expired and was re-acquired elsewhere is never released by
// the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-holder lease on a Redis key. It is advisory: holders
// cooperate by checking TryLock, nothing stops a client that ignores it.
type Lock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{
		client: client,
		key:    key,
		value:  lockValue(),
		ttl:    ttl,
	}
}

func lockValue() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// TryLock attempts to acquire the lease without blocking. It reports whether
// this holder now owns the lock.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	return acquired, nil
}

// Extend pushes the lease expiry out by another TTL. Fails if the lock is no
// longer held by this owner.
func (l *Lock) Extend(ctx context.Context) error {
	current, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil || (err == nil && current != l.value) {
		return fmt.Errorf("lock %s is no longer held", l.key)
	}
	if err != nil {
		return fmt.Errorf("failed to check lock %s: %w", l.key, err)
	}
	return l.client.Expire(ctx, l.key, l.ttl).Err()
}

// Unlock releases the lease if this owner still holds it.
func (l *Lock) Unlock(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
