// Package reminder keeps pending task reminders and delivers them when due.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
)

// Reminder is one pending notification.
type Reminder struct {
	TaskID string
	// Key identifies the delivery. See KeyOf.
	Key   string
	At    time.Time
	Title string
}

// KeyOf returns the delivery key for t. A recurring occurrence is keyed by
// its template and date, so the virtual occurrence and the row it later
// becomes share one key. Any other task is keyed by its id.
func KeyOf(t *domain.Task) string {
	if t.OriginalTaskID != nil && t.DueDate != nil {
		return domain.VirtualID(*t.OriginalTaskID, *t.DueDate)
	}
	return t.ID
}

// Deliverer sends a due reminder to the user.
type Deliverer interface {
	Deliver(ctx context.Context, r Reminder) error
}

// Scheduler holds pending reminders in memory. It satisfies the session's
// Reminders port and is swept periodically.
type Scheduler struct {
	deliverer Deliverer
	logger    *slog.Logger

	mu        sync.Mutex
	pending   map[string]Reminder  // by key
	delivered map[string]time.Time // by key
}

func NewScheduler(d Deliverer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		deliverer: d,
		logger:    logger,
		pending:   make(map[string]Reminder),
		delivered: make(map[string]time.Time),
	}
}

// Schedule queues the reminder for t. A reminder already delivered for the
// same key and time is not queued again.
func (s *Scheduler) Schedule(_ context.Context, t *domain.Task) error {
	if t == nil || t.ID == "" {
		return errors.New("reminder: task id is required")
	}
	if t.RemindAt == nil {
		return fmt.Errorf("reminder: task %s has no reminder time", t.ID)
	}
	r := newReminder(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.delivered[r.Key]; ok && at.Equal(r.At) {
		delete(s.pending, r.Key)
		return nil
	}
	delete(s.delivered, r.Key)
	s.pending[r.Key] = r
	return nil
}

// Dismiss drops any pending reminder for taskID.
func (s *Scheduler) Dismiss(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, r := range s.pending {
		if r.TaskID == taskID {
			delete(s.pending, key)
		}
	}
	return nil
}

func newReminder(t *domain.Task) Reminder {
	return Reminder{TaskID: t.ID, Key: KeyOf(t), At: *t.RemindAt, Title: t.Description}
}

// Pending returns pending reminders ordered by time.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, 0, len(s.pending))
	for _, r := range s.pending {
		out = append(out, r)
	}
	sortReminders(out)
	return out
}

// Reconcile rebuilds the pending set from tasks. Reminders already delivered
// for the same key and time are not scheduled again. Delivery records for
// keys no longer present in tasks are dropped.
func (s *Scheduler) Reconcile(tasks []*domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]Reminder, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		key := KeyOf(t)
		seen[key] = true
		if !t.WantsReminder() {
			continue
		}
		if at, ok := s.delivered[key]; ok && at.Equal(*t.RemindAt) {
			continue
		}
		next[key] = newReminder(t)
	}
	for key := range s.delivered {
		if !seen[key] {
			delete(s.delivered, key)
		}
	}
	s.pending = next
}

// Delivered reports how many delivery records are kept.
func (s *Scheduler) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

// Sweep delivers every reminder due at or before now. Failed deliveries stay
// pending for the next sweep.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	var due []Reminder
	for _, r := range s.pending {
		if !r.At.After(now) {
			due = append(due, r)
		}
	}
	s.mu.Unlock()
	sortReminders(due)

	var errs []error
	sent := 0
	for _, r := range due {
		if err := s.deliverer.Deliver(ctx, r); err != nil {
			s.logger.WarnContext(ctx, "reminder delivery failed", "task_id", r.TaskID, "error", err)
			errs = append(errs, fmt.Errorf("deliver %s: %w", r.TaskID, err))
			continue
		}
		sent++
		s.mu.Lock()
		if cur, ok := s.pending[r.Key]; ok && cur.At.Equal(r.At) {
			delete(s.pending, r.Key)
		}
		s.delivered[r.Key] = r.At
		s.mu.Unlock()
	}
	return sent, errors.Join(errs...)
}

func sortReminders(rs []Reminder) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].At.Equal(rs[j].At) {
			return rs[i].At.Before(rs[j].At)
		}
		return rs[i].TaskID < rs[j].TaskID
	})
}

// LogDeliverer writes reminders to a logger.
type LogDeliverer struct {
	Logger *slog.Logger
}

func (d LogDeliverer) Deliver(ctx context.Context, r Reminder) error {
	if d.Logger == nil {
		return nil
	}
	d.Logger.InfoContext(ctx, "reminder", "task_id", r.TaskID, "title", r.Title, "at", r.At.Format(time.RFC3339))
	return nil
}
