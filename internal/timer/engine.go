// Package timer implements the focus/break countdown that records completed
// focus intervals against the user's selected session.
package timer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
	"github.com/Th3drata/Tomodoro/internal/reconcile"
)

// CyclesBeforeLongBreak is the number of focus phases per long break.
const CyclesBeforeLongBreak = 4

const (
	focusDoneTitle = "Focus complete"
	focusDoneBody  = "Time for a break!"
	breakDoneTitle = "Break over"
	breakDoneBody  = "Back to work!"
)

// SessionStore is the aggregate half of completion persistence.
type SessionStore interface {
	IncrementAggregate(ctx context.Context, id uuid.UUID, durationDelta, countDelta int) error
}

// IntervalStore is the record half of completion persistence.
type IntervalStore interface {
	Create(ctx context.Context, owner, session uuid.UUID, category models.Category, durationSeconds int) (uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Options contains runtime collaborators for an Engine.
type Options struct {
	TickInterval time.Duration
	Limits       models.TimerLimits
	Scheduler    Scheduler
	Dispatcher   Dispatcher
	Notifier     NotificationSink
	Clock        func() time.Time
}

// Engine is the per-user interval timer. All transitions are serialized by mu.
type Engine struct {
	mu        sync.Mutex
	owner     uuid.UUID
	settings  models.TimerSettings
	options   Options
	sessions  SessionStore
	intervals IntervalStore

	phase        Phase
	remaining    int
	phaseSeconds int
	cycle        int
	running      bool
	session      *reconcile.Layer[models.WorkSession]

	// gen invalidates ticks scheduled before the last stop.
	gen      uint64
	stop     func()
	lastTick time.Time
	events   []chan Event
	closed   bool
	touched  time.Time
}

type completion struct {
	job   models.CompletionJob
	layer *reconcile.Layer[models.WorkSession]
	token reconcile.Token
}

type notice struct {
	title, body string
}

// effects are collected under the lock and run after it is released.
type effects struct {
	completion *completion
	notice     *notice
}

func NewEngine(owner uuid.UUID, settings models.TimerSettings, sessions SessionStore, intervals IntervalStore, options Options) *Engine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Limits == (models.TimerLimits{}) {
		options.Limits = models.DefaultTimerLimits()
	}
	if options.Scheduler == nil {
		options.Scheduler = TickerScheduler{}
	}
	if options.Dispatcher == nil {
		options.Dispatcher = InlineDispatcher{}
	}
	if options.Notifier == nil {
		options.Notifier = nopSink{}
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}

	e := &Engine{
		owner:     owner,
		settings:  settings,
		options:   options,
		sessions:  sessions,
		intervals: intervals,
		cycle:     1,
	}
	e.enterPhaseLocked(PhaseFocus)
	e.touched = options.Clock()
	return e
}

// Subscribe registers a new observer channel. Slow observers miss events.
func (e *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	e.mu.Lock()
	if e.closed {
		close(ch)
	} else {
		e.events = append(e.events, ch)
	}
	e.mu.Unlock()
	return ch
}

func (e *Engine) Owner() uuid.UUID {
	return e.owner
}

// Idle reports whether the engine is stopped and untouched since cutoff.
func (e *Engine) Idle(cutoff time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.running && e.touched.Before(cutoff)
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Start begins counting down. Starting a running timer is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		err := &models.NoActiveSessionError{}
		e.emitLocked(Event{Type: EventWarning, Message: err.Error()})
		return err
	}
	if e.running || e.closed {
		return nil
	}

	e.running = true
	e.gen++
	gen := e.gen
	e.lastTick = e.options.Clock()
	e.stop = e.options.Scheduler.Every(e.options.TickInterval, func(now time.Time) {
		e.onTick(gen, now)
	})

	e.emitLocked(Event{Type: EventStateChange})
	return nil
}

// Pause freezes the countdown. Pausing a stopped timer is a no-op.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.stopLocked()
	e.emitLocked(Event{Type: EventStateChange})
}

// Reset returns to the first focus phase with a full countdown. Nothing is persisted.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.cycle = 1
	e.enterPhaseLocked(PhaseFocus)
	e.emitLocked(Event{Type: EventStateChange})
}

// Tick advances the countdown by one second.
func (e *Engine) Tick() {
	e.Advance(1)
}

// Advance applies n elapsed seconds at once. A phase completes at most once
// per call and remaining never goes below zero.
func (e *Engine) Advance(n int) {
	e.mu.Lock()
	if !e.running || n <= 0 {
		e.mu.Unlock()
		return
	}
	fx := e.advanceLocked(n)
	e.mu.Unlock()

	e.run(fx)
}

func (e *Engine) onTick(gen uint64, now time.Time) {
	e.mu.Lock()
	if gen != e.gen || !e.running {
		e.mu.Unlock()
		return
	}
	n := int(now.Sub(e.lastTick) / time.Second)
	if n < 1 {
		e.mu.Unlock()
		return
	}
	e.lastTick = e.lastTick.Add(time.Duration(n) * time.Second)
	fx := e.advanceLocked(n)
	e.mu.Unlock()

	e.run(fx)
}

func (e *Engine) advanceLocked(n int) effects {
	if n < e.remaining {
		e.remaining -= n
		e.emitLocked(Event{Type: EventTick})
		return effects{}
	}
	e.remaining = 0
	return e.phaseCompleteLocked()
}

func (e *Engine) phaseCompleteLocked() effects {
	var fx effects
	e.stopLocked()

	if e.phase == PhaseFocus {
		if e.session != nil {
			current := e.session.Value()
			duration := e.phaseSeconds
			token := e.session.Apply(func(s models.WorkSession) models.WorkSession {
				s.TotalSeconds += duration
				s.Pomodoros++
				return s
			})
			fx.completion = &completion{
				job: models.CompletionJob{
					OwnerID:         e.owner,
					SessionID:       current.ID,
					Category:        current.Category,
					DurationSeconds: duration,
				},
				layer: e.session,
				token: token,
			}
		}
		if e.cycle >= CyclesBeforeLongBreak {
			e.cycle = 1
			e.enterPhaseLocked(PhaseLongBreak)
		} else {
			e.cycle++
			e.enterPhaseLocked(PhaseBreak)
		}
		fx.notice = &notice{title: focusDoneTitle, body: focusDoneBody}
	} else {
		e.enterPhaseLocked(PhaseFocus)
		fx.notice = &notice{title: breakDoneTitle, body: breakDoneBody}
	}

	e.emitLocked(Event{Type: EventStateChange})
	if fx.notice != nil {
		e.emitLocked(Event{Type: EventNotification, Message: fx.notice.body})
	}
	return fx
}

func (e *Engine) run(fx effects) {
	if fx.notice != nil {
		e.options.Notifier.Notify(fx.notice.title, fx.notice.body)
	}
	if fx.completion != nil {
		c := *fx.completion
		e.options.Dispatcher.Dispatch(func(ctx context.Context) {
			e.persist(ctx, c)
		})
	}
}

// persist writes the interval, then the aggregate. A failed aggregate
// write removes the interval so the two never disagree.
func (e *Engine) persist(ctx context.Context, c completion) {
	job := c.job
	id, err := e.intervals.Create(ctx, job.OwnerID, job.SessionID, job.Category, job.DurationSeconds)
	if err != nil {
		e.completionFailed(c, &models.PersistenceError{Op: "create interval", Err: err})
		return
	}

	if err := e.sessions.IncrementAggregate(ctx, job.SessionID, job.DurationSeconds, 1); err != nil {
		if delErr := e.intervals.Delete(ctx, id); delErr != nil {
			log.Printf("timer: rollback of interval %s failed: %v", id, delErr)
		}
		e.completionFailed(c, &models.PersistenceError{Op: "increment session aggregate", Err: err})
		return
	}

	e.mu.Lock()
	e.emitLocked(Event{
		Type:       EventIntervalRecorded,
		IntervalID: id,
		SessionID:  job.SessionID,
		Duration:   job.DurationSeconds,
	})
	e.mu.Unlock()
}

func (e *Engine) completionFailed(c completion, err *models.PersistenceError) {
	log.Printf("timer: recording interval for session %s failed: %v", c.job.SessionID, err)

	e.mu.Lock()
	defer e.mu.Unlock()
	c.layer.Revert(c.token)
	e.emitLocked(Event{
		Type:      EventIntervalFailed,
		SessionID: c.job.SessionID,
		Message:   err.Error(),
		Err:       err,
	})
}

// ApplySettings stores new phase lengths. A stopped timer reloads the
// current phase if its length changed. A running countdown keeps its
// length; new values apply on the next phase entry or Reset.
func (e *Engine) ApplySettings(settings models.TimerSettings) error {
	if err := settings.Validate(e.options.Limits); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.settings
	e.settings = settings
	if !e.running && phaseLength(previous, e.phase) != phaseLength(settings, e.phase) {
		e.enterPhaseLocked(e.phase)
	}
	e.emitLocked(Event{Type: EventStateChange})
	return nil
}

// BindSession selects the session that focus completions are recorded against.
func (e *Engine) BindSession(session models.WorkSession) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil && e.session.Snapshot().ID == session.ID {
		e.session.Replace(session)
	} else {
		e.session = reconcile.New(session)
	}
	e.emitLocked(Event{Type: EventStateChange})
}

// UnbindSession quits the current session and pauses the countdown.
func (e *Engine) UnbindSession() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.session = nil
	e.emitLocked(Event{Type: EventStateChange})
}

// SessionsChanged applies a store snapshot of the owner's sessions. If the
// bound session is gone the engine unbinds and pauses.
func (e *Engine) SessionsChanged(sessions []models.WorkSession) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return
	}
	id := e.session.Snapshot().ID
	for _, s := range sessions {
		if s.ID == id {
			e.session.Replace(s)
			e.emitLocked(Event{Type: EventStateChange})
			return
		}
	}

	e.stopLocked()
	e.session = nil
	e.emitLocked(Event{Type: EventWarning, Message: "The selected session was deleted"})
	e.emitLocked(Event{Type: EventStateChange})
}

// Close stops the countdown and closes every observer channel.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.stopLocked()
	e.closed = true
	events := e.events
	e.events = nil
	e.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (e *Engine) stopLocked() {
	e.running = false
	e.gen++
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
}

func (e *Engine) enterPhaseLocked(p Phase) {
	e.phase = p
	e.phaseSeconds = int(phaseLength(e.settings, p) / time.Second)
	e.remaining = e.phaseSeconds
}

func phaseLength(s models.TimerSettings, p Phase) time.Duration {
	switch p {
	case PhaseBreak:
		return s.BreakDuration()
	case PhaseLongBreak:
		return s.LongBreakDuration()
	default:
		return s.FocusDuration()
	}
}

func (e *Engine) stateLocked() State {
	st := State{
		Phase:            e.phase,
		RemainingSeconds: e.remaining,
		PhaseSeconds:     e.phaseSeconds,
		Cycle:            e.cycle,
		Running:          e.running,
		Display:          FormatRemaining(e.remaining),
		Settings:         e.settings,
	}
	if e.session != nil {
		s := e.session.Value()
		st.Session = &s
	}
	return st
}

func (e *Engine) emitLocked(event Event) {
	event.State = e.stateLocked()
	if event.At.IsZero() {
		event.At = e.options.Clock()
	}
	e.touched = event.At
	for _, ch := range e.events {
		select {
		case ch <- event:
		default:
		}
	}
}
