package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection used to split one wordlist between
// several assessor hosts: candidates live in one list, confirmed addresses
// are appended to another.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and pings it to make sure it's alive.
func New(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// DrainCandidates pops usernames off the list until it is empty. Each pop is
// atomic, so hosts sharing the list never probe the same name twice.
func (c *Client) DrainCandidates(ctx context.Context, key string) ([]string, error) {
	var users []string
	for {
		val, err := c.rdb.LPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return users, nil
		}
		if err != nil {
			return nil, fmt.Errorf("redis LPOP %s: %w", key, err)
		}
		if val != "" {
			users = append(users, val)
		}
	}
}

// PublishValid appends confirmed-valid addresses to the shared results list.
func (c *Client) PublishValid(ctx context.Context, key string, addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}
	vals := make([]interface{}, len(addresses))
	for i, addr := range addresses {
		vals[i] = addr
	}
	if err := c.rdb.RPush(ctx, key, vals...).Err(); err != nil {
		return fmt.Errorf("redis RPUSH %s: %w", key, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
