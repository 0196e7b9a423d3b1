// Package redis stores consumed one-time token ids so a token authorizes at
// most one transfer, across every API instance sharing the Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/redis/go-redis/v9"
)

const noncePrefix = "onetime:used:"

var _ repository.Nonces = (*Nonces)(nil)

type Nonces struct{ client redis.UniversalClient }

func NewNonces(client redis.UniversalClient) *Nonces { return &Nonces{client: client} }

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Consume is a single SET NX EX, so two concurrent uses of the same id
// cannot both succeed.
func (n *Nonces) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := n.client.SetNX(ctx, noncePrefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume nonce: %w", err)
	}
	return ok, nil
}

func (n *Nonces) Ping(ctx context.Context) error { return n.client.Ping(ctx).Err() }
