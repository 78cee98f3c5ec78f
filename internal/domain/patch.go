package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskPatch is a partial update. Nil fields are left untouched; the Clear
// flags null out nullable columns. Order, parent and section are not
// patchable: those change only through a move.
type TaskPatch struct {
	Description *string
	Notes       *string
	Link        *string
	ImageURL    *string
	CategoryID  *string
	Priority    *Priority
	Status      *TaskStatus
	DueDate     *time.Time
	RemindAt    *time.Time

	RecurringType *RecurringType

	ClearCategory bool
	ClearDueDate  bool
	ClearRemindAt bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Description == nil && p.Notes == nil && p.Link == nil && p.ImageURL == nil &&
		p.CategoryID == nil && p.Priority == nil && p.Status == nil && p.DueDate == nil &&
		p.RemindAt == nil && p.RecurringType == nil &&
		!p.ClearCategory && !p.ClearDueDate && !p.ClearRemindAt
}

// Validate rejects values that could never be stored.
func (p TaskPatch) Validate() error {
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return fmt.Errorf("task description cannot be blank")
	}
	if p.Priority != nil && !ValidPriorities[*p.Priority] {
		return fmt.Errorf("invalid priority %q", *p.Priority)
	}
	if p.Status != nil && !ValidStatuses[*p.Status] {
		return fmt.Errorf("invalid status %q", *p.Status)
	}
	if p.RecurringType != nil && !ValidRecurringTypes[*p.RecurringType] {
		return fmt.Errorf("invalid recurring type %q", *p.RecurringType)
	}
	return nil
}

// ApplyTo overlays the patch on t. Status changes go through ApplyStatus so
// CompletedAt follows.
func (p TaskPatch) ApplyTo(t *Task, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.Description = StrFromPtrWithDefault(t.Description, p.Description)
	t.Notes = StrFromPtrWithDefault(t.Notes, p.Notes)
	t.Link = StrFromPtrWithDefault(t.Link, p.Link)
	t.ImageURL = StrFromPtrWithDefault(t.ImageURL, p.ImageURL)

	switch {
	case p.ClearCategory:
		t.CategoryID = nil
	case p.CategoryID != nil:
		t.CategoryID = CloneStr(p.CategoryID)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		d := DateOnly(*p.DueDate)
		t.DueDate = &d
	}
	switch {
	case p.ClearRemindAt:
		t.RemindAt = nil
	case p.RemindAt != nil:
		t.RemindAt = CloneTime(p.RemindAt)
	}
	if p.RecurringType != nil {
		t.RecurringType = *p.RecurringType
	}
	if p.Status != nil && *p.Status != t.Status {
		if err := t.ApplyStatus(*p.Status, now); err != nil {
			return err
		}
	}
	t.UpdatedAt = now
	return nil
}

// StatusPatch is shorthand for a patch that only changes status.
func StatusPatch(s TaskStatus) TaskPatch {
	return TaskPatch{Status: &s}
}
