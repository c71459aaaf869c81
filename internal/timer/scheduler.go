package timer

import (
	"context"
	"sync"
	"time"
)

// Scheduler calls fn periodically until the returned stop func is called.
type Scheduler interface {
	Every(interval time.Duration, fn func(now time.Time)) (stop func())
}

// TickerScheduler runs each schedule on its own goroutine around a time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func(now time.Time)) func() {
	ticker := time.NewTicker(interval)
	stopCh := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case now := <-ticker.C:
				fn(now)
			}
		}
	}()

	return func() {
		once.Do(func() { close(stopCh) })
	}
}

// Dispatcher runs completion side effects off the countdown path.
type Dispatcher interface {
	Dispatch(task func(ctx context.Context))
}

// InlineDispatcher runs tasks on the caller's goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(task func(ctx context.Context)) {
	task(context.Background())
}

// NotificationSink delivers best-effort user alerts.
type NotificationSink interface {
	Notify(title, body string)
}

type nopSink struct{}

func (nopSink) Notify(string, string) {}
