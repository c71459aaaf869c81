package changefeed

import (
	"context"
	"sync"
)

// Local is an in-process Feed for single-node use and tests.
type Local struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan struct{}
	nextID int
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[int]chan struct{})}
}

func (l *Local) Publish(_ context.Context, topic string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs[topic] {
		signal(ch)
	}
	return nil
}

func (l *Local) Subscribe(_ context.Context, topic string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	if l.subs[topic] == nil {
		l.subs[topic] = make(map[int]chan struct{})
	}
	l.subs[topic][id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs[topic], id)
			if len(l.subs[topic]) == 0 {
				delete(l.subs, topic)
			}
		})
	}, nil
}

// Subscribers reports how many subscriptions are open on topic.
func (l *Local) Subscribers(topic string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[topic])
}
