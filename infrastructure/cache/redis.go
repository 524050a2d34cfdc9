package cache

import (
	"context"
	"errors"
	"time"

	"repurposer/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis. An empty address means Redis is not configured.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	if addr == "" || addr[0] == ':' {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.GetLogger().WithField("addr", addr).Info("Redis connection established")
	return client, nil
}
