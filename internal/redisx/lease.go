package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease is a named, expiring lock owned by this process. A holder that stops
// renewing loses the lease after its TTL.
type Lease struct {
	rdb    redis.Cmdable
	prefix string
	owner  string
}

func NewLease(rdb redis.Cmdable, prefix string) *Lease {
	return &Lease{rdb: rdb, prefix: prefix, owner: uuid.NewString()}
}

// TryAcquire takes or renews the lease for ttl. It reports false when another
// owner holds it.
func (l *Lease) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := l.prefix + fmt.Sprintf(KeyLease, name)

	ok, err := l.rdb.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if ok {
		return true, nil
	}

	renewed, err := renewScript.Run(ctx, l.rdb, []string{key}, l.owner, ttl.Milliseconds()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("renew lease %s: %w", name, err)
	}
	return renewed == 1, nil
}

// Release gives the lease up if this process still owns it.
func (l *Lease) Release(ctx context.Context, name string) error {
	key := l.prefix + fmt.Sprintf(KeyLease, name)
	if err := releaseScript.Run(ctx, l.rdb, []string{key}, l.owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}
