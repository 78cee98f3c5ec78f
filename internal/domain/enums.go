package domain

type TaskStatus string

const (
	StatusTodo      TaskStatus = "to-do"
	StatusCompleted TaskStatus = "completed"
	StatusArchived  TaskStatus = "archived"
	StatusSkipped   TaskStatus = "skipped"
)

// ValidStatuses is the canonical set of accepted task status strings.
var ValidStatuses = map[TaskStatus]bool{
	StatusTodo: true, StatusCompleted: true, StatusArchived: true, StatusSkipped: true,
}

// IsDone reports whether the status counts as finished for completedAt purposes.
func (s TaskStatus) IsDone() bool {
	return s == StatusCompleted || s == StatusArchived
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriorities is the canonical set of accepted priority strings.
var ValidPriorities = map[Priority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityUrgent: true,
}

type RecurringType string

const (
	RecurNone    RecurringType = "none"
	RecurDaily   RecurringType = "daily"
	RecurWeekly  RecurringType = "weekly"
	RecurMonthly RecurringType = "monthly"
	RecurYearly  RecurringType = "yearly"
)

// ValidRecurringTypes is the canonical set of accepted recurrence strings.
var ValidRecurringTypes = map[RecurringType]bool{
	RecurNone: true, RecurDaily: true, RecurWeekly: true, RecurMonthly: true, RecurYearly: true,
}
