package service

import (
	"context"

	"github.com/alexanderramin/tasksync/internal/domain"
)

// syncReminder schedules or dismisses the reminder for a task that changed
// from prev to next. Either may be nil. Failures are logged only.
func (s *Session) syncReminder(ctx context.Context, prev, next *domain.Task) {
	var err error
	switch {
	case next != nil && next.WantsReminder():
		if prev != nil && prev.WantsReminder() && prev.RemindAt.Equal(*next.RemindAt) && prev.Description == next.Description {
			return
		}
		err = s.reminders.Schedule(ctx, next)
	case prev != nil && prev.RemindAt != nil:
		err = s.reminders.Dismiss(ctx, prev.ID)
	default:
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "reminder sync failed", "task_id", taskID(prev, next), "error", err)
	}
}

func taskID(prev, next *domain.Task) string {
	if next != nil {
		return next.ID
	}
	return prev.ID
}
