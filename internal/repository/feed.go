package repository

import (
	"context"
	"log"

	"github.com/Th3drata/Tomodoro/internal/changefeed"
)

// publish announces a change. Store writes have already committed, so a
// failed notice is logged rather than returned.
func publish(ctx context.Context, feed changefeed.Feed, topic string) {
	if feed == nil {
		return
	}
	if err := feed.Publish(ctx, topic); err != nil {
		log.Printf("repository: change notice on %s failed: %v", topic, err)
	}
}
