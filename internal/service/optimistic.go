package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
)

// mutation is one optimistic operation: a cache transform, the store call
// that persists it, and the effects that follow a successful call.
type mutation struct {
	ids     []string // marked in-flight
	deleted []string // marked as pending deletions

	apply     func()
	submit    func(ctx context.Context) error
	onSuccess func(ctx context.Context)

	summary string
	fields  map[string]any
}

// run executes the shared optimistic flow for the operation named op.
// prepare validates and builds the mutation from the current cache; it runs
// under the session lock together with the in-flight mark and the cache
// write, so overlapping operations never interleave their optimistic phase.
// A nil mutation means there is nothing to do.
//
// On store failure the ids are released, the error is logged and reported,
// and the cache is rebuilt from the store.
func (s *Session) run(ctx context.Context, op string, prepare func() (*mutation, error)) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"owner": s.owner}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      op,
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	s.mu.Lock()
	m, err := prepare()
	if err == nil && m != nil {
		s.tracker.Mark(m.ids...)
		s.tracker.MarkDeleted(m.deleted...)
		if m.apply != nil {
			m.apply()
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.notifier.Notify(ctx, Event{Operation: op, Summary: err.Error(), Err: err})
		return err
	}
	if m == nil {
		return nil
	}
	for k, v := range m.fields {
		fields[k] = v
	}
	fields["ids"] = len(m.ids) + len(m.deleted)
	tracked := append(append([]string{}, m.ids...), m.deleted...)

	storeCtx, cancel := s.storeContext(ctx)
	err = m.submit(storeCtx)
	cancel()
	if err != nil {
		err = fmt.Errorf("%s: %w", op, err)
		s.tracker.Release(m.ids...)
		s.tracker.ReleaseDeleted(m.deleted...)
		s.logger.ErrorContext(ctx, "store call failed", "op", op, "ids", tracked, "error", err)
		s.notifier.Notify(ctx, Event{Operation: op, Summary: "could not " + err.Error(), Err: err})
		s.forceRefresh(ctx)
		return err
	}

	s.tracker.Settle(tracked...)
	if m.onSuccess != nil {
		m.onSuccess(ctx)
	}
	s.notifier.Notify(ctx, Event{Operation: op, Success: true, Summary: m.summary})
	return nil
}

// forceRefresh rebuilds the cache from the store after a failed call. It
// runs even when ctx is already cancelled.
func (s *Session) forceRefresh(ctx context.Context) {
	rctx, cancel := s.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.Refresh(rctx); err != nil {
		s.logger.ErrorContext(ctx, "forced refresh failed", "error", err)
	}
}

// adopt swaps a locally created row for the store-confirmed one, keeping
// its cache position. A store-assigned id inherits the settle window.
func (s *Session) adopt(localID string, confirmed *domain.Task) {
	if confirmed == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if confirmed.ID != localID {
		s.tracker.Mark(confirmed.ID)
		s.tracker.Settle(confirmed.ID)
	}
	s.cache.Replace(localID, confirmed)
}
