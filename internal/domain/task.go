package domain

import (
	"fmt"
	"strings"
	"time"
)

// Task is a single row of the task table. Templates, materialized
// occurrences, subtasks and plain tasks all share this shape.
type Task struct {
	ID      string
	OwnerID string

	// Content
	Description string
	Notes       string
	Link        string
	ImageURL    string

	// Classification
	CategoryID *string
	Priority   Priority
	Status     TaskStatus

	// Scheduling
	DueDate       *time.Time
	RemindAt      *time.Time
	RecurringType RecurringType

	// Structure
	SectionID    *string
	ParentTaskID *string
	Order        int

	// Recurrence linkage: set on materialized occurrences only.
	OriginalTaskID *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Group identifies a sibling group: all tasks sharing the same parent and
// section. Empty strings stand for NULL references.
type Group struct {
	ParentTaskID string
	SectionID    string
}

// GroupOf builds the group key for the given nullable references.
func GroupOf(parentTaskID, sectionID *string) Group {
	var g Group
	if parentTaskID != nil {
		g.ParentTaskID = *parentTaskID
	}
	if sectionID != nil {
		g.SectionID = *sectionID
	}
	return g
}

// Parent returns the group's parent reference, nil for top-level groups.
func (g Group) Parent() *string {
	if g.ParentTaskID == "" {
		return nil
	}
	v := g.ParentTaskID
	return &v
}

// Section returns the group's section reference, nil for the unsectioned group.
func (g Group) Section() *string {
	if g.SectionID == "" {
		return nil
	}
	v := g.SectionID
	return &v
}

func (g Group) String() string {
	return fmt.Sprintf("parent=%s section=%s", CoalesceStr(g.ParentTaskID, "-"), CoalesceStr(g.SectionID, "-"))
}

// Group returns the sibling group the task currently belongs to.
func (t *Task) Group() Group {
	return GroupOf(t.ParentTaskID, t.SectionID)
}

// IsRecurring reports whether the task carries a recurrence rule.
func (t *Task) IsRecurring() bool {
	return t.RecurringType != "" && t.RecurringType != RecurNone
}

// IsTemplate reports whether the task is a recurring definition rather than
// one of its occurrences.
func (t *Task) IsTemplate() bool {
	return t.IsRecurring() && t.OriginalTaskID == nil
}

// IsOccurrence reports whether the task is a materialized occurrence of a template.
func (t *Task) IsOccurrence() bool {
	return t.OriginalTaskID != nil
}

// IsVirtual reports whether the task is a synthesized, never-stored occurrence.
func (t *Task) IsVirtual() bool {
	return IsVirtualID(t.ID)
}

// Clone returns a deep copy; pointer fields never alias the receiver.
func (t *Task) Clone() *Task {
	c := *t
	c.CategoryID = CloneStr(t.CategoryID)
	c.SectionID = CloneStr(t.SectionID)
	c.ParentTaskID = CloneStr(t.ParentTaskID)
	c.OriginalTaskID = CloneStr(t.OriginalTaskID)
	c.DueDate = CloneTime(t.DueDate)
	c.RemindAt = CloneTime(t.RemindAt)
	c.CompletedAt = CloneTime(t.CompletedAt)
	return &c
}

// ApplyStatus moves the task to status and keeps CompletedAt consistent:
// set on entry into completed/archived, cleared on exit, untouched between
// the two done states.
func (t *Task) ApplyStatus(status TaskStatus, now time.Time) error {
	if !ValidStatuses[status] {
		return fmt.Errorf("invalid status %q", status)
	}
	switch {
	case status.IsDone() && !t.Status.IsDone():
		t.CompletedAt = &now
	case status.IsDone() && t.CompletedAt == nil:
		t.CompletedAt = &now
	case !status.IsDone():
		t.CompletedAt = nil
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

// WantsReminder reports whether a reminder should be pending for the task.
func (t *Task) WantsReminder() bool {
	return t.RemindAt != nil && t.Status == StatusTodo
}

// Validate checks the fields a store row must carry.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("task description is required")
	}
	if t.Priority != "" && !ValidPriorities[t.Priority] {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if t.Status != "" && !ValidStatuses[t.Status] {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if t.RecurringType != "" && !ValidRecurringTypes[t.RecurringType] {
		return fmt.Errorf("invalid recurring type %q", t.RecurringType)
	}
	if t.ParentTaskID != nil && *t.ParentTaskID == t.ID {
		return fmt.Errorf("task %s cannot be its own parent", t.ID)
	}
	return nil
}

// OrderEntry is one row of a batched order/parent/section assignment.
type OrderEntry struct {
	ID           string
	Order        int
	ParentTaskID *string
	SectionID    *string
}

// Apply writes the entry's structural fields onto t.
func (e OrderEntry) Apply(t *Task) {
	t.Order = e.Order
	t.ParentTaskID = CloneStr(e.ParentTaskID)
	t.SectionID = CloneStr(e.SectionID)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
