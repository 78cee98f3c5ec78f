package service

import (
	"context"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
)

// Materialize persists the occurrence behind virtualID with patch overlaid
// and returns the new row. If the occurrence is already backed by a row,
// patch is applied to that row instead, so repeated calls never create a
// second row.
func (s *Session) Materialize(ctx context.Context, virtualID string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := validatePatch(patch); err != nil {
		return nil, s.reject(ctx, "materialize", err)
	}
	row, created, err := s.materialize(ctx, virtualID, patch)
	if err != nil {
		return nil, err
	}
	if created || patch.IsEmpty() {
		return row, nil
	}
	return s.update(ctx, row.ID, patch)
}

type materialized struct {
	row     *domain.Task
	created bool
}

// materialize returns the row backing virtualID, inserting it with patch
// overlaid when none exists. created is true only for the caller whose
// patch went into the insert. Concurrent calls for one id share a flight.
func (s *Session) materialize(ctx context.Context, virtualID string, patch domain.TaskPatch) (*domain.Task, bool, error) {
	executed := false
	v, err, _ := s.flight.Do(virtualID, func() (any, error) {
		executed = true
		return s.insertOccurrence(ctx, virtualID, patch)
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(materialized)
	return res.row.Clone(), res.created && executed, nil
}

func (s *Session) insertOccurrence(ctx context.Context, virtualID string, patch domain.TaskPatch) (materialized, error) {
	var (
		existing  *domain.Task
		row       *domain.Task
		confirmed *domain.Task
	)
	err := s.run(ctx, "materialize", func() (*mutation, error) {
		if found, ok := s.materializedRow(virtualID); ok {
			existing = found
			return nil, nil
		}
		occ, err := s.virtual(virtualID)
		if err != nil {
			return nil, err
		}
		now := s.now()
		r := occ.Clone()
		r.ID = s.newID()
		r.OwnerID = s.owner
		r.CreatedAt = now
		r.UpdatedAt = now
		if err := patch.ApplyTo(r, now); err != nil {
			return nil, invalid(err, "")
		}

		// The row goes right after its template; later siblings shift down.
		var siblings []domain.OrderEntry
		for _, e := range ordering.PlanInsert(append(s.cache.All(), r), r.Group(), r.Order+1, r.ID) {
			if e.ID == r.ID {
				r.Order = e.Order
				continue
			}
			siblings = append(siblings, e)
		}
		row = r

		ids := []string{r.ID}
		for _, e := range siblings {
			ids = append(ids, e.ID)
		}
		return &mutation{
			ids: ids,
			apply: func() {
				s.cache.Upsert(r)
				s.cache.ApplyOrder(siblings)
			},
			submit: func(ctx context.Context) error {
				c, err := s.store.Insert(ctx, r)
				if err != nil {
					return err
				}
				confirmed = c
				return s.store.BatchSetOrder(ctx, s.owner, siblings)
			},
			onSuccess: func(ctx context.Context) {
				s.adopt(r.ID, confirmed)
				s.syncReminder(ctx, nil, confirmed)
			},
			summary: "Occurrence saved",
			fields:  map[string]any{"virtual_id": virtualID, "shifted": len(siblings)},
		}, nil
	})
	switch {
	case err != nil:
		return materialized{}, err
	case existing != nil:
		return materialized{row: existing}, nil
	case confirmed != nil:
		return materialized{row: confirmed, created: true}, nil
	default:
		return materialized{row: row, created: true}, nil
	}
}
