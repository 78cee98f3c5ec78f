package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
)

// TaskFilter narrows SelectByOwner. Zero values match everything.
type TaskFilter struct {
	Statuses       []domain.TaskStatus
	SectionID      *string
	OriginalTaskID *string
}

// TaskStore is the remote task table. Every call is scoped to one owner.
type TaskStore interface {
	Insert(ctx context.Context, t *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, ownerID string, ids []string) error
	SelectByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]*domain.Task, error)
	// BatchSetOrder writes order/parent/section for every entry or for none.
	BatchSetOrder(ctx context.Context, ownerID string, entries []domain.OrderEntry) error
}

// SkipKey identifies one skipped occurrence of a template.
type SkipKey struct {
	TemplateID string
	Date       time.Time
}

// SkipLog records occurrences the user chose to skip without materializing them.
type SkipLog interface {
	Add(ctx context.Context, ownerID, templateID string, date time.Time) error
	Remove(ctx context.Context, ownerID, templateID string, date time.Time) error
	List(ctx context.Context, ownerID string) ([]SkipKey, error)
}
