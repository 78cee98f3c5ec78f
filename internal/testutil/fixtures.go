package testutil

import (
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/google/uuid"
)

// TestOwner is the owner id used by fixtures unless overridden.
const TestOwner = "owner-1"

// TaskOption customizes a fixture task.
type TaskOption func(*domain.Task)

func WithID(id string) TaskOption {
	return func(t *domain.Task) {
		t.ID = id
	}
}

func WithOwner(ownerID string) TaskOption {
	return func(t *domain.Task) {
		t.OwnerID = ownerID
	}
}

func WithSection(id string) TaskOption {
	return func(t *domain.Task) {
		t.SectionID = &id
	}
}

func WithParent(id string) TaskOption {
	return func(t *domain.Task) {
		t.ParentTaskID = &id
	}
}

func WithOrder(n int) TaskOption {
	return func(t *domain.Task) {
		t.Order = n
	}
}

func WithStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
		if s.IsDone() {
			now := t.UpdatedAt
			t.CompletedAt = &now
		}
	}
}

func WithDueDate(d time.Time) TaskOption {
	return func(t *domain.Task) {
		day := domain.DateOnly(d)
		t.DueDate = &day
	}
}

func WithRemindAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.RemindAt = &at
	}
}

func WithRecurring(r domain.RecurringType) TaskOption {
	return func(t *domain.Task) {
		t.RecurringType = r
	}
}

func WithOriginal(templateID string) TaskOption {
	return func(t *domain.Task) {
		t.OriginalTaskID = &templateID
	}
}

func WithImage(url string) TaskOption {
	return func(t *domain.Task) {
		t.ImageURL = url
	}
}

// NewTestTask builds a persisted-looking to-do task owned by TestOwner.
func NewTestTask(description string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC().Truncate(time.Second)
	t := &domain.Task{
		ID:            uuid.New().String(),
		OwnerID:       TestOwner,
		Description:   description,
		Priority:      domain.PriorityMedium,
		Status:        domain.StatusTodo,
		RecurringType: domain.RecurNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
