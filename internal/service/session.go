package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/tasksync/internal/cache"
	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/recurrence"
	"github.com/alexanderramin/tasksync/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultStoreTimeout bounds a single store call when Options leaves it unset.
const DefaultStoreTimeout = 15 * time.Second

// Options wires a Session. OwnerID and Store are required.
type Options struct {
	OwnerID string
	Store   repository.TaskStore
	Skips   repository.SkipLog

	Blobs     BlobStore
	Reminders Reminders
	Notifier  Notifier
	Observer  UseCaseObserver
	Logger    *slog.Logger

	// Tracker defaults to cache.NewTracker() with default windows.
	Tracker      *cache.Tracker
	StoreTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// Session is one client's view of its task table: the local cache, the
// in-flight tracker and the collaborators every operation needs.
// Operations may be called from several goroutines; the optimistic phase of
// each runs under a session lock, the store call does not.
type Session struct {
	owner     string
	store     repository.TaskStore
	skipLog   repository.SkipLog
	blobs     BlobStore
	reminders Reminders
	notifier  Notifier
	observer  UseCaseObserver
	logger    *slog.Logger

	cache   *cache.Cache
	tracker *cache.Tracker
	flight  singleflight.Group

	storeTimeout time.Duration
	now          func() time.Time
	newID        func() string

	mu      sync.Mutex
	skipsMu sync.RWMutex
	skips   recurrence.Skips
}

var _ TaskService = (*Session)(nil)

func NewSession(opts Options) (*Session, error) {
	if opts.OwnerID == "" {
		return nil, errors.New("session requires an owner id")
	}
	if opts.Store == nil {
		return nil, errors.New("session requires a task store")
	}
	s := &Session{
		owner:        opts.OwnerID,
		store:        opts.Store,
		skipLog:      opts.Skips,
		blobs:        opts.Blobs,
		reminders:    opts.Reminders,
		notifier:     opts.Notifier,
		observer:     opts.Observer,
		logger:       opts.Logger,
		cache:        cache.New(),
		tracker:      opts.Tracker,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
		newID:        opts.NewID,
		skips:        recurrence.Skips{},
	}
	if s.blobs == nil {
		s.blobs = noopBlobs{}
	}
	if s.reminders == nil {
		s.reminders = noopReminders{}
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.observer == nil {
		s.observer = NoopUseCaseObserver{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.tracker == nil {
		s.tracker = cache.NewTracker()
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = DefaultStoreTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// OwnerID returns the owner every store call is scoped to.
func (s *Session) OwnerID() string { return s.owner }

// Cache exposes the session cache for read-only observers.
func (s *Session) Cache() *cache.Cache { return s.cache }

// Tracker exposes the in-flight tracker.
func (s *Session) Tracker() *cache.Tracker { return s.tracker }

// Tasks returns every cached task.
func (s *Session) Tasks() []*domain.Task {
	return s.cache.All()
}

// Task returns the cached task with id, or the synthesized occurrence for a
// virtual id.
func (s *Session) Task(id string) (*domain.Task, error) {
	if domain.IsVirtualID(id) {
		if row, ok := s.materializedRow(id); ok {
			return row, nil
		}
		return s.virtual(id)
	}
	t, ok := s.cache.Get(id)
	if !ok {
		return nil, invalid(ErrTaskNotFound, id)
	}
	return t, nil
}

// Occurrences returns the cached tasks followed by the virtual occurrences
// of every template inside w.
func (s *Session) Occurrences(w recurrence.Window) []*domain.Task {
	all := s.cache.All()
	virtual := recurrence.Synthesize(recurrence.Templates(all), recurrence.Materialized(all), w, s.skipSet())
	return append(all, virtual...)
}

// virtual synthesizes the record behind a virtual id from the cached template.
func (s *Session) virtual(id string) (*domain.Task, error) {
	templateID, date, err := domain.ParseVirtualID(id)
	if err != nil {
		return nil, invalid(ErrInvalidVirtualID, err.Error())
	}
	tpl, ok := s.cache.Get(templateID)
	if !ok {
		return nil, invalid(ErrTaskNotFound, templateID)
	}
	if !tpl.IsTemplate() {
		return nil, invalid(ErrNotRecurring, templateID)
	}
	if !recurrence.IsOccurrence(tpl, date) {
		return nil, invalid(ErrInvalidVirtualID, fmt.Sprintf("%s is not an occurrence date of %s", date.Format(time.DateOnly), templateID))
	}
	return recurrence.Occurrence(tpl, date, s.skipSet().Has(templateID, date)), nil
}

// materializedRow finds the persisted row already backing a virtual id.
func (s *Session) materializedRow(id string) (*domain.Task, bool) {
	templateID, date, err := domain.ParseVirtualID(id)
	if err != nil {
		return nil, false
	}
	for _, t := range s.cache.All() {
		if t.OriginalTaskID != nil && *t.OriginalTaskID == templateID &&
			t.DueDate != nil && domain.DateOnly(*t.DueDate).Equal(date) {
			return t, true
		}
	}
	return nil, false
}

func (s *Session) skipSet() recurrence.Skips {
	s.skipsMu.RLock()
	defer s.skipsMu.RUnlock()
	out := make(recurrence.Skips, len(s.skips))
	for k, v := range s.skips {
		out[k] = v
	}
	return out
}

func (s *Session) addSkip(id string) {
	s.skipsMu.Lock()
	defer s.skipsMu.Unlock()
	s.skips[id] = true
}

// replaceSkips swaps in the skip log read from the store. Virtual ids held
// by an in-flight skip keep their local state.
func (s *Session) replaceSkips(keys []repository.SkipKey) {
	next := make(recurrence.Skips, len(keys))
	for _, k := range keys {
		next[domain.VirtualID(k.TemplateID, k.Date)] = true
	}
	s.skipsMu.Lock()
	defer s.skipsMu.Unlock()
	for id := range s.skips {
		if s.tracker.IsMarked(id) {
			next[id] = true
		}
	}
	for id := range next {
		if !s.skips[id] && s.tracker.IsMarked(id) {
			delete(next, id)
		}
	}
	s.skips = next
}

// storeContext bounds one store call.
func (s *Session) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}
