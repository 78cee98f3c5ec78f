package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
)

// FormatTaskList renders tasks as a table, indenting subtasks under their
// parents. Tasks whose parent is absent from the list are shown at top level.
func FormatTaskList(tasks []*domain.Task, now time.Time) string {
	if len(tasks) == 0 {
		return Dim("No tasks.") + "\n"
	}

	present := make(map[string]bool, len(tasks))
	children := make(map[string][]*domain.Task)
	for _, t := range tasks {
		present[t.ID] = true
	}
	var roots []*domain.Task
	for _, t := range tasks {
		if t.ParentTaskID != nil && present[*t.ParentTaskID] {
			children[*t.ParentTaskID] = append(children[*t.ParentTaskID], t)
			continue
		}
		roots = append(roots, t)
	}

	headers := []string{"ID", "TASK", "STATUS", "PRIORITY", "DUE", "REPEATS"}
	var rows [][]string
	var walk func(t *domain.Task, depth int)
	walk = func(t *domain.Task, depth int) {
		rows = append(rows, taskRow(t, depth, now))
		for _, c := range children[t.ID] {
			walk(c, depth+1)
		}
	}
	for _, t := range roots {
		walk(t, 0)
	}
	return RenderTable(headers, rows)
}

func taskRow(t *domain.Task, depth int, now time.Time) []string {
	title := strings.Repeat("  ", depth) + t.Description
	if depth > 0 {
		title = strings.Repeat("  ", depth-1) + "└ " + t.Description
	}
	if t.IsVirtual() {
		title = StyleDim.Render(title)
	}
	due := Dim("--")
	if t.DueDate != nil {
		due = DueStyled(*t.DueDate, now)
	}
	repeats := Dim("--")
	if t.IsTemplate() {
		repeats = StylePurple.Render(string(t.RecurringType))
	}
	return []string{
		TruncID(t.ID, t.IsVirtual()),
		title,
		StatusPill(t.Status),
		PriorityBadge(t.Priority),
		due,
		repeats,
	}
}

// FormatTask renders a single task's details.
func FormatTask(t *domain.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  %s\n\n", Bold(t.Description), StatusPill(t.Status)))
	line := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s  %s\n", Dim(fmt.Sprintf("%-8s", label)), value))
	}
	line("ID", t.ID)
	line("PRIORITY", PriorityBadge(t.Priority))
	line("ORDER", fmt.Sprintf("%d", t.Order))
	if t.SectionID != nil {
		line("SECTION", *t.SectionID)
	}
	if t.ParentTaskID != nil {
		line("PARENT", *t.ParentTaskID)
	}
	if t.DueDate != nil {
		line("DUE", fmt.Sprintf("%s %s", DueStyled(*t.DueDate, now), Dim("("+t.DueDate.Format("Jan 2, 2006")+")")))
	}
	if t.RemindAt != nil {
		line("REMIND", t.RemindAt.Format("2006-01-02 15:04"))
	}
	if t.IsRecurring() {
		line("REPEATS", StylePurple.Render(string(t.RecurringType)))
	}
	if t.OriginalTaskID != nil {
		line("SERIES", *t.OriginalTaskID)
	}
	if t.Notes != "" {
		line("NOTES", t.Notes)
	}
	return b.String()
}
