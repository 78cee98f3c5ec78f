package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/tasksync/internal/repository"
)

// Refresh reloads the owner's tasks and skip log and merges them into the
// cache. Ids held by in-flight mutations keep their cached value, and ids
// pending deletion are not re-added.
func (s *Session) Refresh(ctx context.Context) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"owner": s.owner}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "refresh",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	fetched, err := s.store.SelectByOwner(ctx, s.owner, repository.TaskFilter{})
	if err != nil {
		return fmt.Errorf("refreshing tasks: %w", err)
	}
	var skips []repository.SkipKey
	if s.skipLog != nil {
		skips, err = s.skipLog.List(ctx, s.owner)
		if err != nil {
			return fmt.Errorf("refreshing skips: %w", err)
		}
	}

	s.mu.Lock()
	s.cache.Merge(fetched, s.tracker.IsMarked, s.tracker.IsDeleted)
	s.mu.Unlock()
	s.replaceSkips(skips)

	fields["fetched"] = len(fetched)
	fields["cached"] = s.cache.Len()
	return nil
}
