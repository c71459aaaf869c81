package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

const taskTimeout = 30 * time.Second

// Pool runs background tasks, such as recording completed focus intervals,
// on a fixed set of goroutines.
type Pool struct {
	tasks       chan func(ctx context.Context)
	workerCount int
	stopChan    chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	stopped     bool
}

func NewPool(workerCount, queueSize int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		tasks:       make(chan func(ctx context.Context), queueSize),
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

// Stop refuses new tasks, drains the queue and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
}

// Dispatch queues a task. When the queue is full the task gets its own
// goroutine; after Stop it runs on the caller's goroutine.
func (p *Pool) Dispatch(task func(ctx context.Context)) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		run(-1, task)
		return
	}

	select {
	case p.tasks <- task:
	default:
		log.Printf("Worker queue full, running task on a dedicated goroutine")
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			run(-1, task)
		}()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			run(id, task)
		case <-p.stopChan:
			for {
				select {
				case task := <-p.tasks:
					run(id, task)
				default:
					log.Printf("Worker %d shutting down", id)
					return
				}
			}
		}
	}
}

func run(id int, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: task panicked: %v", id, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()
	task(ctx)
}
