package service

import (
	"context"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
)

// Move reorders or reparents a task. A virtual active task or parent is
// materialized first and the move continues with the persisted id.
func (s *Session) Move(ctx context.Context, req ordering.MoveRequest) error {
	if domain.IsVirtualID(req.ActiveID) {
		row, _, err := s.materialize(ctx, req.ActiveID, domain.TaskPatch{})
		if err != nil {
			return err
		}
		req.ActiveID = row.ID
	}
	if req.NewParentID != nil && domain.IsVirtualID(*req.NewParentID) {
		row, _, err := s.materialize(ctx, *req.NewParentID, domain.TaskPatch{})
		if err != nil {
			return err
		}
		req.NewParentID = &row.ID
	}

	return s.run(ctx, "move", func() (*mutation, error) {
		active, ok := s.cache.Get(req.ActiveID)
		if !ok {
			return nil, invalid(ErrTaskNotFound, req.ActiveID)
		}
		if req.NewParentID != nil && !s.cache.Has(*req.NewParentID) {
			return nil, invalid(ErrTaskNotFound, "parent "+*req.NewParentID)
		}
		if ordering.IsSelfDrop(active, req) {
			return nil, nil
		}
		plan, err := ordering.PlanMove(s.cache.All(), req)
		if err != nil {
			return nil, invalid(err, "")
		}
		return &mutation{
			ids:   plan.IDs(),
			apply: func() { s.cache.ApplyOrder(plan.Entries) },
			submit: func(ctx context.Context) error {
				return s.store.BatchSetOrder(ctx, s.owner, plan.Entries)
			},
			summary: "Task moved",
			fields: map[string]any{
				"task_id": req.ActiveID,
				"from":    plan.Source.String(),
				"to":      plan.Destination.String(),
			},
		}, nil
	})
}
