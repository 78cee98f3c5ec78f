package service

import (
	"context"
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
	"github.com/alexanderramin/tasksync/internal/recurrence"
)

// TaskService is the mutation and read surface a UI drives.
type TaskService interface {
	Add(ctx context.Context, in NewTask) (*domain.Task, error)
	Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	BulkUpdate(ctx context.Context, ids []string, patch domain.TaskPatch) error
	BulkDelete(ctx context.Context, ids []string) error
	ArchiveCompleted(ctx context.Context) (int, error)
	Move(ctx context.Context, req ordering.MoveRequest) error
	Materialize(ctx context.Context, virtualID string, patch domain.TaskPatch) (*domain.Task, error)
	SkipOccurrence(ctx context.Context, virtualID string) error
	Refresh(ctx context.Context) error

	Tasks() []*domain.Task
	Task(id string) (*domain.Task, error)
	Occurrences(w recurrence.Window) []*domain.Task
}

// Reminders schedules and dismisses per-task reminders. Schedule is only
// called for tasks whose reminder is due to fire.
type Reminders interface {
	Schedule(ctx context.Context, t *domain.Task) error
	Dismiss(ctx context.Context, taskID string) error
}

// BlobStore removes task attachments.
type BlobStore interface {
	Remove(ctx context.Context, path string) error
}

// Event is the user-visible outcome of one operation.
type Event struct {
	Operation string
	Success   bool
	Summary   string
	Err       error
}

// Notifier surfaces operation outcomes to the user.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// NewTask is the input to Add. Order defaults to 0, the top of the group.
type NewTask struct {
	Description   string
	Notes         string
	Link          string
	ImageURL      string
	CategoryID    *string
	Priority      domain.Priority
	DueDate       *time.Time
	RemindAt      *time.Time
	RecurringType domain.RecurringType
	SectionID     *string
	ParentTaskID  *string
	Order         *int
}

type noopReminders struct{}

func (noopReminders) Schedule(context.Context, *domain.Task) error { return nil }
func (noopReminders) Dismiss(context.Context, string) error        { return nil }

type noopBlobs struct{}

func (noopBlobs) Remove(context.Context, string) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Event) {}
