// Package changefeed delivers "something changed" notices per topic so
// subscribers can reload a fresh snapshot from the store.
package changefeed

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Feed publishes and subscribes to change notices. Notices carry no data;
// several notices may be coalesced into one.
type Feed interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, func(), error)
}

func SessionsTopic(owner uuid.UUID) string {
	return "sessions:" + owner.String()
}

func IntervalsTopic(owner uuid.UUID) string {
	return "intervals:" + owner.String()
}

func SettingsTopic(owner uuid.UUID) string {
	return "settings:" + owner.String()
}

// Watch loads an initial snapshot, hands it to onChange, then reloads on
// every notice until the returned cancel func is called.
func Watch[T any](ctx context.Context, feed Feed, topic string, load func(ctx context.Context) ([]T, error), onChange func([]T)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	notices, unsubscribe, err := feed.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := load(ctx)
	if err != nil {
		unsubscribe()
		cancel()
		return nil, err
	}
	onChange(initial)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notices:
				if !ok {
					return
				}
				snapshot, err := load(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Printf("changefeed: reload %s failed: %v", topic, err)
					}
					continue
				}
				onChange(snapshot)
			}
		}
	}()

	return func() {
		cancel()
		unsubscribe()
		<-done
	}, nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
