package main

import (
	"context"
	"log"
	"os"
	"time"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// awaitShutdown stops the server on the first signal, then runs stops in
// order. The returned channel closes once every stop has returned.
func awaitShutdown(signals <-chan os.Signal, srv shutdowner, timeout time.Duration, stops ...func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-signals

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("✗ HTTP shutdown: %v", err)
		}

		for _, stop := range stops {
			stop()
		}
	}()
	return done
}
