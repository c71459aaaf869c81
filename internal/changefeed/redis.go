package changefeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const noticePayload = "changed"

// Redis fans notices out over Redis pub/sub so every server node sees them.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, topic string) error {
	if err := r.client.Publish(ctx, topic, noticePayload).Err(); err != nil {
		return fmt.Errorf("failed to publish change on %s: %w", topic, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topic string) (<-chan struct{}, func(), error) {
	pubsub := r.client.Subscribe(ctx, topic)
	// Wait for the subscription to be confirmed so no publish is missed
	// between Subscribe returning and the first snapshot load.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	out := make(chan struct{}, 1)
	stop := make(chan struct{})
	go func() {
		msgs := pubsub.Channel()
		for {
			select {
			case <-stop:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(stop)
			pubsub.Close()
		})
	}, nil
}
