package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
)

func validatePatch(patch domain.TaskPatch) error {
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return invalid(ErrEmptyDescription, "")
	}
	if err := patch.Validate(); err != nil {
		return invalid(err, "")
	}
	return nil
}

// Add creates a task at position Order (default 0) of its group, shifting
// the siblings at and after that position down by one.
func (s *Session) Add(ctx context.Context, in NewTask) (*domain.Task, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, s.reject(ctx, "add", invalid(ErrEmptyDescription, ""))
	}
	draft := &domain.Task{
		OwnerID:       s.owner,
		Description:   strings.TrimSpace(in.Description),
		Notes:         in.Notes,
		Link:          in.Link,
		ImageURL:      in.ImageURL,
		CategoryID:    domain.CloneStr(in.CategoryID),
		Priority:      domain.Priority(domain.CoalesceStr(string(in.Priority), string(domain.PriorityMedium))),
		Status:        domain.StatusTodo,
		RemindAt:      domain.CloneTime(in.RemindAt),
		RecurringType: domain.RecurringType(domain.CoalesceStr(string(in.RecurringType), string(domain.RecurNone))),
		SectionID:     domain.CloneStr(in.SectionID),
		ParentTaskID:  domain.CloneStr(in.ParentTaskID),
	}
	if in.DueDate != nil {
		d := domain.DateOnly(*in.DueDate)
		draft.DueDate = &d
	}
	if err := draft.Validate(); err != nil {
		return nil, s.reject(ctx, "add", invalid(err, ""))
	}
	if draft.ParentTaskID != nil && domain.IsVirtualID(*draft.ParentTaskID) {
		parent, _, err := s.materialize(ctx, *draft.ParentTaskID, domain.TaskPatch{})
		if err != nil {
			return nil, err
		}
		draft.ParentTaskID = &parent.ID
	}

	var local, confirmed *domain.Task
	err := s.run(ctx, "add", func() (*mutation, error) {
		if draft.ParentTaskID != nil && !s.cache.Has(*draft.ParentTaskID) {
			return nil, invalid(ErrTaskNotFound, "parent "+*draft.ParentTaskID)
		}
		now := s.now()
		t := draft.Clone()
		t.ID = s.newID()
		t.CreatedAt = now
		t.UpdatedAt = now
		if in.Order != nil {
			t.Order = *in.Order
		}

		var siblings []domain.OrderEntry
		for _, e := range ordering.PlanInsert(append(s.cache.All(), t), t.Group(), t.Order, t.ID) {
			if e.ID == t.ID {
				t.Order = e.Order
				continue
			}
			siblings = append(siblings, e)
		}
		local = t

		ids := []string{t.ID}
		for _, e := range siblings {
			ids = append(ids, e.ID)
		}
		return &mutation{
			ids: ids,
			apply: func() {
				s.cache.Upsert(t)
				s.cache.ApplyOrder(siblings)
			},
			submit: func(ctx context.Context) error {
				c, err := s.store.Insert(ctx, t)
				if err != nil {
					return err
				}
				confirmed = c
				return s.store.BatchSetOrder(ctx, s.owner, siblings)
			},
			onSuccess: func(ctx context.Context) {
				s.adopt(t.ID, confirmed)
				s.syncReminder(ctx, nil, confirmed)
			},
			summary: "Task added",
			fields:  map[string]any{"group": t.Group().String(), "shifted": len(siblings)},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if confirmed != nil {
		return confirmed.Clone(), nil
	}
	return local, nil
}

// Update patches one task. A virtual id is materialized with the patch
// overlaid instead.
func (s *Session) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if domain.IsVirtualID(id) {
		return s.Materialize(ctx, id, patch)
	}
	if err := validatePatch(patch); err != nil {
		return nil, s.reject(ctx, "update", err)
	}
	return s.update(ctx, id, patch)
}

func (s *Session) update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var next *domain.Task
	err := s.run(ctx, "update", func() (*mutation, error) {
		prev, ok := s.cache.Get(id)
		if !ok {
			return nil, invalid(ErrTaskNotFound, id)
		}
		if patch.IsEmpty() {
			next = prev
			return nil, nil
		}
		n := prev.Clone()
		if err := patch.ApplyTo(n, s.now()); err != nil {
			return nil, invalid(err, "")
		}
		next = n
		return &mutation{
			ids:   []string{id},
			apply: func() { s.cache.Upsert(n) },
			submit: func(ctx context.Context) error {
				_, err := s.store.Update(ctx, s.owner, id, patch)
				return err
			},
			onSuccess: func(ctx context.Context) { s.syncReminder(ctx, prev, n) },
			summary:   "Task updated",
			fields:    map[string]any{"task_id": id},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// BulkUpdate applies one patch to every id. Virtual ids are materialized
// with the patch overlaid; the persisted ids are updated as one operation.
func (s *Session) BulkUpdate(ctx context.Context, ids []string, patch domain.TaskPatch) error {
	if err := validatePatch(patch); err != nil {
		return s.reject(ctx, "bulk-update", err)
	}
	persisted, virtual, err := s.partition(ids)
	if err != nil {
		return s.reject(ctx, "bulk-update", err)
	}
	for _, vid := range virtual {
		row, created, err := s.materialize(ctx, vid, patch)
		if err != nil {
			return err
		}
		if !created {
			persisted = append(persisted, row.ID)
		}
	}
	if len(persisted) == 0 || patch.IsEmpty() {
		return nil
	}
	return s.bulkUpdate(ctx, "bulk-update", dedupe(persisted), patch)
}

func (s *Session) bulkUpdate(ctx context.Context, op string, ids []string, patch domain.TaskPatch) error {
	return s.run(ctx, op, func() (*mutation, error) {
		var prev, next []*domain.Task
		now := s.now()
		for _, id := range ids {
			p, ok := s.cache.Get(id)
			if !ok {
				return nil, invalid(ErrTaskNotFound, id)
			}
			n := p.Clone()
			if err := patch.ApplyTo(n, now); err != nil {
				return nil, invalid(err, "")
			}
			prev = append(prev, p)
			next = append(next, n)
		}
		return &mutation{
			ids:   ids,
			apply: func() { s.cache.UpsertMany(next) },
			submit: func(ctx context.Context) error {
				for _, id := range ids {
					if _, err := s.store.Update(ctx, s.owner, id, patch); err != nil {
						return fmt.Errorf("task %s: %w", id, err)
					}
				}
				return nil
			},
			onSuccess: func(ctx context.Context) {
				for i := range next {
					s.syncReminder(ctx, prev[i], next[i])
				}
			},
			summary: fmt.Sprintf("Updated %d tasks", len(ids)),
		}, nil
	})
}

// ArchiveCompleted archives every completed task and returns how many.
func (s *Session) ArchiveCompleted(ctx context.Context) (int, error) {
	var ids []string
	for _, t := range s.cache.All() {
		if t.Status == domain.StatusCompleted {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.bulkUpdate(ctx, "archive-completed", ids, domain.StatusPatch(domain.StatusArchived)); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// SkipOccurrence records that the occurrence behind virtualID was skipped.
// An occurrence that already has a row gets its status set instead.
func (s *Session) SkipOccurrence(ctx context.Context, virtualID string) error {
	if row, ok := s.materializedRow(virtualID); ok {
		_, err := s.update(ctx, row.ID, domain.StatusPatch(domain.StatusSkipped))
		return err
	}
	return s.run(ctx, "skip", func() (*mutation, error) {
		if s.skipLog == nil {
			return nil, invalid(ErrSkipNotConfigured, "")
		}
		occ, err := s.virtual(virtualID)
		if err != nil {
			return nil, err
		}
		if occ.Status == domain.StatusSkipped {
			return nil, nil
		}
		return &mutation{
			ids:   []string{virtualID},
			apply: func() { s.addSkip(virtualID) },
			submit: func(ctx context.Context) error {
				return s.skipLog.Add(ctx, s.owner, *occ.OriginalTaskID, *occ.DueDate)
			},
			summary: "Occurrence skipped",
			fields:  map[string]any{"virtual_id": virtualID},
		}, nil
	})
}

// partition splits ids into cached persisted ids and virtual ids, failing
// on the first id that resolves to neither.
func (s *Session) partition(ids []string) (persisted, virtual []string, err error) {
	for _, id := range dedupe(ids) {
		if !domain.IsVirtualID(id) {
			if !s.cache.Has(id) {
				return nil, nil, invalid(ErrTaskNotFound, id)
			}
			persisted = append(persisted, id)
			continue
		}
		if row, ok := s.materializedRow(id); ok {
			persisted = append(persisted, row.ID)
			continue
		}
		if _, err := s.virtual(id); err != nil {
			return nil, nil, err
		}
		virtual = append(virtual, id)
	}
	return persisted, virtual, nil
}

// reject reports a validation failure found before run.
func (s *Session) reject(ctx context.Context, op string, err error) error {
	return s.run(ctx, op, func() (*mutation, error) { return nil, err })
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
