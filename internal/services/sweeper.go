package services

import (
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	engineIdleAfter    = 30 * time.Minute
	enginePollInterval = 5 * time.Minute
)

type idleReleaser interface {
	ReleaseIdle(cutoff time.Time, keep func(owner uuid.UUID) bool) int
}

type connectionChecker interface {
	HasConnections(owner uuid.UUID) bool
}

// EngineSweeper releases timer engines that are stopped, untouched for a
// while, and not watched by any open WebSocket.
type EngineSweeper struct {
	engines     idleReleaser
	connections connectionChecker
	idleAfter   time.Duration
	interval    time.Duration
	stopChan    chan struct{}
}

func NewEngineSweeper(engines idleReleaser, connections connectionChecker) *EngineSweeper {
	return &EngineSweeper{
		engines:     engines,
		connections: connections,
		idleAfter:   engineIdleAfter,
		interval:    enginePollInterval,
		stopChan:    make(chan struct{}),
	}
}

func (s *EngineSweeper) Start() {
	if s.engines == nil {
		return
	}
	go s.loop()
	log.Printf("Engine sweeper started")
}

func (s *EngineSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *EngineSweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *EngineSweeper) sweep(now time.Time) int {
	released := s.engines.ReleaseIdle(sweepCutoff(now, s.idleAfter), s.keep)
	if released > 0 {
		log.Printf("engine sweeper: released %d idle engines", released)
	}
	return released
}

func (s *EngineSweeper) keep(owner uuid.UUID) bool {
	return s.connections != nil && s.connections.HasConnections(owner)
}

func sweepCutoff(now time.Time, idleAfter time.Duration) time.Time {
	if idleAfter <= 0 {
		return now
	}
	return now.Add(-idleAfter)
}
