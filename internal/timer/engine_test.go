package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Th3drata/Tomodoro/internal/models"
)

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled int
	stopped   int
	fn        func(time.Time)
}

func (s *fakeScheduler) Every(_ time.Duration, fn func(time.Time)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled++
	s.fn = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stopped++
	}
}

func (s *fakeScheduler) fire(now time.Time) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	fn(now)
}

type createCall struct {
	owner, session uuid.UUID
	category       models.Category
	duration       int
}

type fakeStores struct {
	mu           sync.Mutex
	creates      []createCall
	deletes      []uuid.UUID
	increments   int
	createErr    error
	incrementErr error
	lastID       uuid.UUID
}

func (f *fakeStores) Create(_ context.Context, owner, session uuid.UUID, category models.Category, duration int) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	f.creates = append(f.creates, createCall{owner, session, category, duration})
	f.lastID = uuid.New()
	return f.lastID, nil
}

func (f *fakeStores) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeStores) IncrementAggregate(_ context.Context, _ uuid.UUID, _, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	f.increments++
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	notices []string
}

func (r *recordingSink) Notify(_, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, body)
}

func newTestEngine(t *testing.T, settings models.TimerSettings) (*Engine, *fakeScheduler, *fakeStores, *recordingSink) {
	t.Helper()
	sched := &fakeScheduler{}
	stores := &fakeStores{}
	sink := &recordingSink{}
	e := NewEngine(uuid.New(), settings, stores, stores, Options{
		Scheduler:  sched,
		Dispatcher: InlineDispatcher{},
		Notifier:   sink,
	})
	t.Cleanup(e.Close)
	return e, sched, stores, sink
}

func testSession() models.WorkSession {
	return models.WorkSession{ID: uuid.New(), Title: "Calculus", Category: models.CategoryMaths}
}

func tickN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

func TestEngine_FocusCompletionEntersBreak(t *testing.T) {
	settings := []models.TimerSettings{
		{FocusMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 1},
		{FocusMinutes: 25, BreakMinutes: 5, LongBreakMinutes: 15},
		models.DefaultTimerSettings(),
	}
	for _, s := range settings {
		e, _, stores, _ := newTestEngine(t, s)
		session := testSession()
		e.BindSession(session)
		require.NoError(t, e.Start())

		tickN(e, s.FocusMinutes*60)

		st := e.State()
		assert.Equal(t, PhaseBreak, st.Phase)
		assert.Equal(t, 2, st.Cycle)
		assert.Equal(t, s.BreakMinutes*60, st.RemainingSeconds)
		assert.False(t, st.Running)
		require.Len(t, stores.creates, 1)
		assert.Equal(t, s.FocusMinutes*60, stores.creates[0].duration)
		assert.Equal(t, session.ID, stores.creates[0].session)
		assert.Equal(t, models.CategoryMaths, stores.creates[0].category)
		assert.Equal(t, 1, stores.increments)
	}
}

func TestEngine_FourthFocusEntersLongBreak(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 3}
	e, _, stores, _ := newTestEngine(t, s)
	e.BindSession(testSession())

	for i := 0; i < CyclesBeforeLongBreak; i++ {
		require.NoError(t, e.Start())
		tickN(e, 60)
		if i < CyclesBeforeLongBreak-1 {
			require.Equal(t, PhaseBreak, e.State().Phase)
			require.NoError(t, e.Start())
			tickN(e, 60)
			require.Equal(t, PhaseFocus, e.State().Phase)
		}
	}

	st := e.State()
	assert.Equal(t, PhaseLongBreak, st.Phase)
	assert.Equal(t, 1, st.Cycle)
	assert.Equal(t, 180, st.RemainingSeconds)
	assert.Len(t, stores.creates, CyclesBeforeLongBreak)
}

func TestEngine_BreakCompletionKeepsCycleAndPersistsNothing(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 1}
	e, _, stores, sink := newTestEngine(t, s)
	e.BindSession(testSession())
	require.NoError(t, e.Start())
	tickN(e, 60)

	require.NoError(t, e.Start())
	tickN(e, 60)

	st := e.State()
	assert.Equal(t, PhaseFocus, st.Phase)
	assert.Equal(t, 2, st.Cycle)
	assert.Equal(t, 60, st.RemainingSeconds)
	assert.Len(t, stores.creates, 1)
	assert.Equal(t, []string{focusDoneBody, breakDoneBody}, sink.notices)
}

func TestEngine_ResetFromAnyState(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 2, BreakMinutes: 1, LongBreakMinutes: 1}
	e, _, stores, _ := newTestEngine(t, s)
	e.BindSession(testSession())
	require.NoError(t, e.Start())
	tickN(e, 120)
	require.NoError(t, e.Start())
	tickN(e, 10)
	creates := len(stores.creates)

	e.Reset()

	st := e.State()
	assert.Equal(t, PhaseFocus, st.Phase)
	assert.Equal(t, 1, st.Cycle)
	assert.Equal(t, 120, st.RemainingSeconds)
	assert.False(t, st.Running)
	assert.Len(t, stores.creates, creates, "reset must not persist")
}

func TestEngine_PauseFreezesRemaining(t *testing.T) {
	e, sched, _, _ := newTestEngine(t, models.DefaultTimerSettings())
	e.BindSession(testSession())
	require.NoError(t, e.Start())
	tickN(e, 5)

	e.Pause()
	before := e.State().RemainingSeconds
	tickN(e, 30)
	sched.fire(time.Now().Add(time.Hour))

	assert.Equal(t, before, e.State().RemainingSeconds)
	assert.False(t, e.State().Running)
	assert.Equal(t, 1, sched.stopped)
}

func TestEngine_DoubleStartSchedulesOnce(t *testing.T) {
	e, sched, _, _ := newTestEngine(t, models.DefaultTimerSettings())
	e.BindSession(testSession())

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())

	assert.Equal(t, 1, sched.scheduled)
	tickN(e, 1)
	assert.Equal(t, 35*60-1, e.State().RemainingSeconds)
}

func TestEngine_StartWithoutSession(t *testing.T) {
	e, sched, _, _ := newTestEngine(t, models.DefaultTimerSettings())
	events := e.Subscribe(4)

	err := e.Start()

	var noSession *models.NoActiveSessionError
	require.ErrorAs(t, err, &noSession)
	assert.False(t, e.State().Running)
	assert.Zero(t, sched.scheduled)
	ev := <-events
	assert.Equal(t, EventWarning, ev.Type)
}

func TestEngine_AdvanceCoalescesAndClamps(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 1}
	e, _, stores, _ := newTestEngine(t, s)
	e.BindSession(testSession())
	require.NoError(t, e.Start())

	e.Advance(10_000)

	st := e.State()
	assert.Equal(t, PhaseBreak, st.Phase)
	assert.Equal(t, 60, st.RemainingSeconds, "a completed phase leaves the next one untouched")
	assert.Len(t, stores.creates, 1)
}

func TestEngine_ScheduledTickUsesElapsedSeconds(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	sched := &fakeScheduler{}
	stores := &fakeStores{}
	e := NewEngine(uuid.New(), models.DefaultTimerSettings(), stores, stores, Options{
		Scheduler: sched,
		Clock:     func() time.Time { return now },
	})
	defer e.Close()
	e.BindSession(testSession())
	require.NoError(t, e.Start())

	sched.fire(now.Add(1500 * time.Millisecond))
	assert.Equal(t, 35*60-1, e.State().RemainingSeconds)
	sched.fire(now.Add(2 * time.Second))
	assert.Equal(t, 35*60-2, e.State().RemainingSeconds)
	sched.fire(now.Add(62 * time.Second))
	assert.Equal(t, 35*60-62, e.State().RemainingSeconds)
}

func TestEngine_StaleTickAfterPauseIgnored(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	sched := &fakeScheduler{}
	stores := &fakeStores{}
	e := NewEngine(uuid.New(), models.DefaultTimerSettings(), stores, stores, Options{
		Scheduler: sched,
		Clock:     func() time.Time { return now },
	})
	defer e.Close()
	e.BindSession(testSession())
	require.NoError(t, e.Start())
	stale := sched.fn

	e.Pause()
	require.NoError(t, e.Start())
	stale(now.Add(10 * time.Second))

	assert.Equal(t, 35*60, e.State().RemainingSeconds)
}

func TestEngine_IncrementFailureRollsBackInterval(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 1}
	e, _, stores, _ := newTestEngine(t, s)
	stores.incrementErr = errors.New("connection reset")
	session := testSession()
	session.TotalSeconds = 600
	session.Pomodoros = 1
	e.BindSession(session)
	events := e.Subscribe(256)
	require.NoError(t, e.Start())

	tickN(e, 60)

	require.Len(t, stores.creates, 1)
	assert.Equal(t, []uuid.UUID{stores.lastID}, stores.deletes)
	st := e.State()
	assert.Equal(t, PhaseBreak, st.Phase, "transition is not rolled back")
	require.NotNil(t, st.Session)
	assert.Equal(t, 600, st.Session.TotalSeconds, "optimistic aggregate reverted")
	assert.Equal(t, 1, st.Session.Pomodoros)

	var failed *Event
	for len(events) > 0 {
		ev := <-events
		if ev.Type == EventIntervalFailed {
			failed = &ev
		}
	}
	require.NotNil(t, failed)
	var perr *models.PersistenceError
	assert.ErrorAs(t, failed.Err, &perr)
}

func TestEngine_CreateFailureDoesNotIncrement(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 1}
	e, _, stores, _ := newTestEngine(t, s)
	stores.createErr = errors.New("unavailable")
	e.BindSession(testSession())
	require.NoError(t, e.Start())

	tickN(e, 60)

	assert.Zero(t, stores.increments)
	assert.Empty(t, stores.deletes)
	assert.Equal(t, 0, e.State().Session.Pomodoros)
}

func TestEngine_OptimisticAggregateUntilSnapshot(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 1}
	sched := &fakeScheduler{}
	stores := &fakeStores{}
	var queued []func(context.Context)
	e := NewEngine(uuid.New(), s, stores, stores, Options{
		Scheduler:  sched,
		Dispatcher: dispatchFunc(func(task func(context.Context)) { queued = append(queued, task) }),
	})
	defer e.Close()
	session := testSession()
	e.BindSession(session)
	require.NoError(t, e.Start())

	tickN(e, 60)

	assert.Equal(t, 60, e.State().Session.TotalSeconds)
	assert.Empty(t, stores.creates, "persistence runs off the tick path")
	require.Len(t, queued, 1)

	confirmed := session
	confirmed.TotalSeconds = 60
	confirmed.Pomodoros = 1
	e.SessionsChanged([]models.WorkSession{confirmed})
	queued[0](context.Background())

	assert.Equal(t, 60, e.State().Session.TotalSeconds)
	assert.Equal(t, 1, e.State().Session.Pomodoros)
}

type dispatchFunc func(task func(context.Context))

func (f dispatchFunc) Dispatch(task func(context.Context)) { f(task) }

func TestEngine_ApplySettingsWhileStopped(t *testing.T) {
	e, _, _, _ := newTestEngine(t, models.DefaultTimerSettings())

	require.NoError(t, e.ApplySettings(models.TimerSettings{FocusMinutes: 50, BreakMinutes: 10, LongBreakMinutes: 30}))

	st := e.State()
	assert.Equal(t, 50*60, st.RemainingSeconds)
	assert.Equal(t, 50*60, st.PhaseSeconds)
}

func TestEngine_ApplySettingsStoppedOtherPhaseOnly(t *testing.T) {
	e, _, _, _ := newTestEngine(t, models.DefaultTimerSettings())
	e.BindSession(testSession())
	require.NoError(t, e.Start())
	tickN(e, 100)
	e.Pause()

	require.NoError(t, e.ApplySettings(models.TimerSettings{FocusMinutes: 35, BreakMinutes: 10, LongBreakMinutes: 30}))

	assert.Equal(t, 35*60-100, e.State().RemainingSeconds, "focus unchanged, countdown kept")
}

func TestEngine_ApplySettingsDeferredWhileRunning(t *testing.T) {
	s := models.TimerSettings{FocusMinutes: 2, BreakMinutes: 1, LongBreakMinutes: 1}
	e, _, stores, _ := newTestEngine(t, s)
	e.BindSession(testSession())
	require.NoError(t, e.Start())
	tickN(e, 30)

	require.NoError(t, e.ApplySettings(models.TimerSettings{FocusMinutes: 3, BreakMinutes: 4, LongBreakMinutes: 1}))
	assert.Equal(t, 90, e.State().RemainingSeconds)
	assert.Equal(t, 120, e.State().PhaseSeconds)

	e.Pause()
	assert.Equal(t, 90, e.State().RemainingSeconds, "pause does not apply deferred settings")

	require.NoError(t, e.Start())
	tickN(e, 90)

	require.Len(t, stores.creates, 1)
	assert.Equal(t, 120, stores.creates[0].duration, "duration captured at phase entry")
	assert.Equal(t, 240, e.State().RemainingSeconds, "new break length applies on entry")

	e.Reset()
	assert.Equal(t, 180, e.State().RemainingSeconds)
}

func TestEngine_ApplySettingsRejectsOutOfRange(t *testing.T) {
	e, _, _, _ := newTestEngine(t, models.DefaultTimerSettings())

	err := e.ApplySettings(models.TimerSettings{FocusMinutes: 0, BreakMinutes: 61, LongBreakMinutes: 20})

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "focus_time")
	assert.Contains(t, verr.Fields, "break_time")
	assert.Equal(t, 35*60, e.State().RemainingSeconds)
}

func TestEngine_DeletedSessionUnbinds(t *testing.T) {
	e, _, _, _ := newTestEngine(t, models.DefaultTimerSettings())
	e.BindSession(testSession())
	require.NoError(t, e.Start())

	e.SessionsChanged([]models.WorkSession{testSession()})

	st := e.State()
	assert.Nil(t, st.Session)
	assert.False(t, st.Running)
}

func TestEngine_CloseClosesSubscribers(t *testing.T) {
	e, _, _, _ := newTestEngine(t, models.DefaultTimerSettings())
	events := e.Subscribe(1)

	e.Close()

	_, ok := <-events
	assert.False(t, ok)
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{35 * 60, "35:00"},
		{120*60 + 5, "120:05"},
		{-3, "00:00"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, FormatRemaining(tc.seconds))
	}
}

func TestPhaseLength(t *testing.T) {
	settings := models.TimerSettings{FocusMinutes: 50, BreakMinutes: 10, LongBreakMinutes: 30}

	assert.Equal(t, 50*time.Minute, phaseLength(settings, PhaseFocus))
	assert.Equal(t, 10*time.Minute, phaseLength(settings, PhaseBreak))
	assert.Equal(t, 30*time.Minute, phaseLength(settings, PhaseLongBreak))
}
