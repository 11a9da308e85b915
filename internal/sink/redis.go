package sink

import (
	"context"
	"fmt"
	"time"

	"barrage/internal/config"
	"barrage/internal/core"

	"github.com/redis/go-redis/v9"
)

// redisPublisher appends each payload to a Redis stream named after the
// task topic.
type redisPublisher struct {
	client *redis.Client
	stream string
}

func newRedisPublisher(ctx context.Context, addr, topic string, timeout time.Duration) (*redisPublisher, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: redis: %w", core.ErrConstruction, err)
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout
	opts.MaxRetries = -1

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %w", core.ErrConstruction, opts.Addr, err)
	}

	return &redisPublisher{client: client, stream: topic}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, payload []byte) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"key":     "",
			"payload": string(payload),
		},
	}).Err()
}

func (p *redisPublisher) Transport() config.Transport { return TransportRedisStream }

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
