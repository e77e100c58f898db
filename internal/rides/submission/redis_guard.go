package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseTimeout = 5 * time.Second

// releaseScript deletes the lock only while it still carries our owner token,
// so an expired lock re-taken by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared by every API replica pointing at the same Redis.
type RedisGuard struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisGuard creates a guard whose keys live under prefix and expire after ttl.
func NewRedisGuard(client redis.Cmdable, prefix string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

// TryAcquire claims key with SET NX PX.
func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	redisKey := g.prefix + key
	owner := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, owner, g.ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire %s: %w", redisKey, err)
	}
	if !ok {
		return func() {}, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, g.client, []string{redisKey}, owner).Err()
		})
	}, true, nil
}

var _ Guard = (*RedisGuard)(nil)
