package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
)

// ResolveDeletion returns every id removed by deleting ids: the targets,
// the persisted occurrences of targets that are templates, and all subtasks
// below any of those.
func ResolveDeletion(tasks []*domain.Task, ids []string) []string {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range ids {
		add(id)
		if t, ok := byID[id]; ok && t.IsTemplate() {
			for _, occ := range tasks {
				if occ.OriginalTaskID != nil && *occ.OriginalTaskID == id {
					add(occ.ID)
				}
			}
		}
	}
	for _, id := range append([]string{}, out...) {
		for _, sub := range ordering.Descendants(tasks, id) {
			add(sub)
		}
	}
	return out
}

// Delete removes one task with its cascade.
func (s *Session) Delete(ctx context.Context, id string) error {
	return s.deleteIDs(ctx, "delete", []string{id})
}

// BulkDelete removes several tasks with their cascades as one operation.
func (s *Session) BulkDelete(ctx context.Context, ids []string) error {
	return s.deleteIDs(ctx, "bulk-delete", ids)
}

func (s *Session) deleteIDs(ctx context.Context, op string, ids []string) error {
	return s.run(ctx, op, func() (*mutation, error) {
		ids = dedupe(ids)
		if len(ids) == 0 {
			return nil, nil
		}
		for _, id := range ids {
			if domain.IsVirtualID(id) {
				return nil, invalid(ErrVirtualDelete, id)
			}
			if !s.cache.Has(id) {
				return nil, invalid(ErrTaskNotFound, id)
			}
		}

		all := s.cache.All()
		remove := ResolveDeletion(all, ids)
		gone := make(map[string]bool, len(remove))
		for _, id := range remove {
			gone[id] = true
		}
		var (
			survivors []*domain.Task
			groups    []domain.Group
		)
		for _, t := range all {
			if !gone[t.ID] {
				survivors = append(survivors, t)
				continue
			}
			if g := t.Group(); g.ParentTaskID == "" || !gone[g.ParentTaskID] {
				groups = append(groups, g)
			}
		}
		compact := ordering.Compact(survivors, groups...)
		shifted := make([]string, len(compact))
		for i, e := range compact {
			shifted[i] = e.ID
		}

		var removed []*domain.Task
		return &mutation{
			ids:     shifted,
			deleted: remove,
			apply: func() {
				removed = s.cache.Remove(remove...)
				s.cache.ApplyOrder(compact)
			},
			submit: func(ctx context.Context) error {
				if err := s.store.Delete(ctx, s.owner, remove); err != nil {
					return err
				}
				return s.store.BatchSetOrder(ctx, s.owner, compact)
			},
			onSuccess: func(ctx context.Context) {
				s.cleanup(ctx, removed)
			},
			summary: fmt.Sprintf("Deleted %d tasks", len(remove)),
			fields:  map[string]any{"requested": len(ids), "cascaded": len(remove) - len(ids)},
		}, nil
	})
}

// cleanup drops attachments and reminders of removed tasks. Failures are
// logged and never undo the deletion.
func (s *Session) cleanup(ctx context.Context, removed []*domain.Task) {
	for _, t := range removed {
		if t.ImageURL != "" {
			if err := s.blobs.Remove(ctx, t.ImageURL); err != nil {
				s.logger.WarnContext(ctx, "attachment cleanup failed", "task_id", t.ID, "path", t.ImageURL, "error", err)
			}
		}
		if t.RemindAt != nil {
			s.syncReminder(ctx, t, nil)
		}
	}
}
