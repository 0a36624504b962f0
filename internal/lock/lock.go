package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Namespace prefixes every key so the engine can share a redis database.
const Namespace = "tradebook:lock:"

var (
	ErrEmptyKey   = errors.New("lock key is empty")
	ErrInvalidTTL = errors.New("lock ttl must be positive")
)

// compare-and-delete: only the holder's token may release the key
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a best-effort single-holder lock. A nil Locker grants every
// request so callers fall back on database concurrency control alone.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

func (l *Locker) Enabled() bool {
	return l != nil && l.client != nil
}

// TryLock returns the holder token when the key was free. ok is false when
// someone else holds it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key, err = namespaced(key)
	if err != nil {
		return "", false, err
	}
	if ttl <= 0 {
		return "", false, ErrInvalidTTL
	}

	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release is a no-op for an empty token, which is what a disabled locker
// hands out.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if !l.Enabled() || token == "" {
		return nil
	}
	key, err := namespaced(key)
	if err != nil {
		return err
	}
	return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}

func namespaced(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	return Namespace + key, nil
}
