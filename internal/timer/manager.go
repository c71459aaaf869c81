package timer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
)

// SettingsStore loads saved settings. A nil result means none were saved.
type SettingsStore interface {
	Load(ctx context.Context, owner uuid.UUID) (*models.UserSettings, error)
}

// SessionWatcher pushes snapshots of the owner's sessions.
type SessionWatcher interface {
	Subscribe(ctx context.Context, owner uuid.UUID, onChange func([]models.WorkSession)) (func(), error)
}

// EventSink receives every engine event, tagged with its owner.
type EventSink interface {
	PublishTimerEvent(owner uuid.UUID, event Event)
}

// UserNotifier delivers notifications to one user.
type UserNotifier interface {
	Notify(owner uuid.UUID, title, body string)
}

type ManagerConfig struct {
	Defaults models.TimerSettings
	Options  Options
	Sessions SessionStore
	Interval IntervalStore
	Settings SettingsStore
	Watcher  SessionWatcher
	Sink     EventSink
	Notifier UserNotifier
}

type managed struct {
	engine      *Engine
	unsubscribe func()
	done        chan struct{}
}

// Manager owns one Engine per user, created lazily.
type Manager struct {
	mu      sync.Mutex
	cfg     ManagerConfig
	engines map[uuid.UUID]*managed
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Defaults == (models.TimerSettings{}) {
		cfg.Defaults = models.DefaultTimerSettings()
	}
	return &Manager{
		cfg:     cfg,
		engines: make(map[uuid.UUID]*managed),
	}
}

type ownerNotifier struct {
	owner uuid.UUID
	n     UserNotifier
}

func (o ownerNotifier) Notify(title, body string) {
	o.n.Notify(o.owner, title, body)
}

// Get returns the owner's engine, creating it with saved settings on first use.
func (m *Manager) Get(ctx context.Context, owner uuid.UUID) (*Engine, error) {
	m.mu.Lock()
	if me, ok := m.engines[owner]; ok {
		m.mu.Unlock()
		return me.engine, nil
	}
	m.mu.Unlock()

	settings := m.cfg.Defaults
	if m.cfg.Settings != nil {
		saved, err := m.cfg.Settings.Load(ctx, owner)
		if err != nil {
			return nil, err
		}
		if saved != nil {
			settings = saved.Timer
		}
	}

	opts := m.cfg.Options
	if m.cfg.Notifier != nil {
		opts.Notifier = ownerNotifier{owner: owner, n: m.cfg.Notifier}
	}
	engine := NewEngine(owner, settings, m.cfg.Sessions, m.cfg.Interval, opts)

	m.mu.Lock()
	if me, ok := m.engines[owner]; ok {
		m.mu.Unlock()
		engine.Close()
		return me.engine, nil
	}
	me := &managed{engine: engine, done: make(chan struct{})}
	m.engines[owner] = me
	m.mu.Unlock()

	events := engine.Subscribe(64)
	go m.forward(owner, events, me.done)

	if m.cfg.Watcher != nil {
		unsubscribe, err := m.cfg.Watcher.Subscribe(context.Background(), owner, engine.SessionsChanged)
		if err != nil {
			log.Printf("timer: session feed for %s unavailable: %v", owner, err)
		} else {
			m.mu.Lock()
			_, live := m.engines[owner]
			if live {
				me.unsubscribe = unsubscribe
			}
			m.mu.Unlock()
			if !live {
				unsubscribe()
			}
		}
	}

	return engine, nil
}

func (m *Manager) forward(owner uuid.UUID, events <-chan Event, done chan struct{}) {
	defer close(done)
	for ev := range events {
		if m.cfg.Sink != nil {
			m.cfg.Sink.PublishTimerEvent(owner, ev)
		}
	}
}

// Lookup returns the owner's engine only if one is already live.
func (m *Manager) Lookup(owner uuid.UUID) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	me, ok := m.engines[owner]
	if !ok {
		return nil, false
	}
	return me.engine, true
}

// Release closes the owner's engine and its subscriptions.
func (m *Manager) Release(owner uuid.UUID) {
	m.mu.Lock()
	me, ok := m.engines[owner]
	delete(m.engines, owner)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.closeManaged(me)
}

func (m *Manager) closeManaged(me *managed) {
	m.mu.Lock()
	unsubscribe := me.unsubscribe
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	me.engine.Close()
	<-me.done
}

// ReleaseIdle closes engines that are stopped and untouched since cutoff,
// skipping owners for which keep returns true.
func (m *Manager) ReleaseIdle(cutoff time.Time, keep func(owner uuid.UUID) bool) int {
	m.mu.Lock()
	var idle []*managed
	for owner, me := range m.engines {
		if keep != nil && keep(owner) {
			continue
		}
		if me.engine.Idle(cutoff) {
			idle = append(idle, me)
			delete(m.engines, owner)
		}
	}
	m.mu.Unlock()

	for _, me := range idle {
		m.closeManaged(me)
	}
	return len(idle)
}

// Active reports how many engines are live.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

// Shutdown closes every engine.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.engines
	m.engines = make(map[uuid.UUID]*managed)
	m.mu.Unlock()

	for _, me := range all {
		m.closeManaged(me)
	}
	log.Printf("timer: released %d engines", len(all))
}
