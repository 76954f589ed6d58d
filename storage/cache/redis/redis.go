package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/alumnihub/backend/core"
)

// Open connects to redis and waits for it to answer.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	_ = client.Close()
	return nil, errors.Wrap(err, "redis ping timeout")
}
