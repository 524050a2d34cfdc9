package cache

import (
	"context"
	"sync"
	"time"

	"repurposer/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "repurposer:lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// NewLocker returns a Redis locker when a client is available and an
// in-process one otherwise.
func NewLocker(client *redis.Client) repository.ILocker {
	if client == nil {
		return NewMemoryLocker()
	}
	return &RedisLocker{client: client}
}

type RedisLocker struct {
	client *redis.Client
	tokens sync.Map
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	l.tokens.Store(key, token)
	return true, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	v, ok := l.tokens.LoadAndDelete(key)
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{lockPrefix + key}, v.(string)).Err()
}

// MemoryLocker serialises sweep units within one process.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]time.Time{}, clock: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
	return nil
}
