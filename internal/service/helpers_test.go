package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/tasksync/internal/cache"
	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
	"github.com/alexanderramin/tasksync/internal/repository"
	"github.com/alexanderramin/tasksync/internal/testutil"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) last() Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return Event{}
	}
	return n.events[len(n.events)-1]
}

type recordingReminders struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	dismissed []string
}

func (r *recordingReminders) Schedule(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduled == nil {
		r.scheduled = map[string]time.Time{}
	}
	r.scheduled[t.ID] = *t.RemindAt
	return nil
}

func (r *recordingReminders) Dismiss(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scheduled, taskID)
	r.dismissed = append(r.dismissed, taskID)
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	fail    map[string]bool
	removed []string
}

func (b *fakeBlobs) Remove(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[path] {
		return errors.New("blob backend unavailable")
	}
	b.removed = append(b.removed, path)
	return nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

// idRewritingStore assigns its own ids on insert, like a store with
// server-generated keys.
type idRewritingStore struct {
	repository.TaskStore
}

func (s idRewritingStore) Insert(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	row := t.Clone()
	row.ID = "srv-" + t.ID
	return s.TaskStore.Insert(ctx, row)
}

type harness struct {
	s         *Session
	base      repository.TaskStore
	skips     repository.SkipLog
	notifier  *recordingNotifier
	reminders *recordingReminders
	blobs     *fakeBlobs
	observer  *recordingObserver
	logs      *bytes.Buffer
	clock     *testClock
}

// newHarness builds a session over an in-memory SQLite store. wrap, when
// given, decorates the store the session talks to.
func newHarness(t *testing.T, wrap func(repository.TaskStore) repository.TaskStore) *harness {
	t.Helper()
	base, database := testutil.NewTestStore(t)
	h := &harness{
		base:      base,
		skips:     repository.NewSQLiteSkipLog(database),
		notifier:  &recordingNotifier{},
		reminders: &recordingReminders{},
		blobs:     &fakeBlobs{fail: map[string]bool{}},
		observer:  &recordingObserver{},
		logs:      &bytes.Buffer{},
		clock:     &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	var store repository.TaskStore = base
	if wrap != nil {
		store = wrap(base)
	}
	s, err := NewSession(Options{
		OwnerID:   testutil.TestOwner,
		Store:     store,
		Skips:     h.skips,
		Blobs:     h.blobs,
		Reminders: h.reminders,
		Notifier:  h.notifier,
		Observer:  h.observer,
		Logger:    slog.New(slog.NewTextHandler(&syncWriter{buf: h.logs}, nil)),
		Tracker: cache.NewTracker(
			cache.WithClock(h.clock.Now),
			cache.WithSettleWindow(2*time.Second),
			cache.WithMaxHold(time.Minute),
		),
		StoreTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	h.s = s
	return h
}

type syncWriter struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// seed writes tasks straight to the store and loads them into the session.
func (h *harness) seed(t *testing.T, tasks ...*domain.Task) {
	t.Helper()
	ctx := context.Background()
	for _, task := range tasks {
		_, err := h.base.Insert(ctx, task)
		require.NoError(t, err)
	}
	require.NoError(t, h.s.Refresh(ctx))
}

func (h *harness) stored(t *testing.T) []*domain.Task {
	t.Helper()
	tasks, err := h.base.SelectByOwner(context.Background(), testutil.TestOwner, repository.TaskFilter{})
	require.NoError(t, err)
	return tasks
}

func (h *harness) storedByID(t *testing.T) map[string]*domain.Task {
	t.Helper()
	out := map[string]*domain.Task{}
	for _, task := range h.stored(t) {
		out[task.ID] = task
	}
	return out
}

func groupIDs(tasks []*domain.Task, g domain.Group) []string {
	var ids []string
	for _, t := range ordering.Siblings(tasks, g) {
		ids = append(ids, t.ID)
	}
	return ids
}

func s1() domain.Group { return domain.Group{SectionID: "S1"} }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
