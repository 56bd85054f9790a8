package redis_repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func Conn(ctx context.Context, host, port, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    pass,
		DB:          db,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	return client, nil
}
