package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
)

// finishScript only touches the key while it still holds our token.
var finishScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) ~= ARGV[1] then
		return 0
	end
	local cooldown = tonumber(ARGV[2])
	if cooldown > 0 then
		return redis.call('PEXPIRE', KEYS[1], cooldown)
	end
	return redis.call('DEL', KEYS[1])
`)

// RedisGuard implements Guard with SET NX PX, so every instance sharing the
// Redis server sees the same keys.
type RedisGuard struct {
	client *redis.Client
	token  func() string
}

// NewRedisGuard creates a RedisGuard on the given client.
func NewRedisGuard(client *redis.Client) (*RedisGuard, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create token generator: %w", err)
	}
	return &RedisGuard{client: client, token: gen}, nil
}

// Acquire claims key for at most hold.
func (g *RedisGuard) Acquire(ctx context.Context, key string, hold time.Duration) (Lease, error) {
	token := g.token()

	ok, err := g.client.SetNX(ctx, key, token, hold).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx error: %w", err)
	}
	if !ok {
		ttl, err := g.client.PTTL(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis pttl error: %w", err)
		}
		// A key without expiry reports a negative PTTL.
		if ttl <= 0 {
			ttl = hold
		}
		return nil, &BusyError{RetryAfter: ttl}
	}

	return &redisLease{client: g.client, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLease) Finish(ctx context.Context, cooldown time.Duration) error {
	if err := finishScript.Run(ctx, l.client, []string{l.key}, l.token, cooldown.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis script error: %w", err)
	}
	return nil
}
