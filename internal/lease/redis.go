package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the shared lease key; all instances pointed at the same
// Redis must use the same key.
const DefaultKey = "menurota:run-lease"

// releaseScript deletes the lease key only if this holder still owns it,
// so a slow run cannot release a lease that already expired and was
// re-acquired elsewhere.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease backed by a Redis SET NX PX key, for deployments with
// more than one instance.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// NewRedis creates a Redis-backed lease with the given key and TTL.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

func (r *Redis) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
	return true, nil
}

func (r *Redis) Release(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.token = ""
	r.mu.Unlock()

	if token == "" {
		return nil
	}
	return releaseScript.Run(ctx, r.client, []string{r.key}, token).Err()
}
