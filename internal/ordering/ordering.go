// Package ordering plans order/parent/section assignments for sibling
// groups. Functions here never mutate their inputs.
package ordering

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alexanderramin/tasksync/internal/domain"
)

var (
	// ErrActiveNotFound is returned when the moved task is not in the task set.
	ErrActiveNotFound = errors.New("moved task not found")
	// ErrCycle is returned when a task would become its own ancestor.
	ErrCycle = errors.New("task cannot be moved under itself or its subtasks")
)

// MoveRequest describes a drop: the moved task, the group it lands in, and
// the sibling nearest the drop point (nil appends).
type MoveRequest struct {
	ActiveID       string
	NewParentID    *string
	NewSectionID   *string
	OverID         *string
	IsDraggingDown bool
}

// Destination returns the group the request moves into.
func (r MoveRequest) Destination() domain.Group {
	return domain.GroupOf(r.NewParentID, r.NewSectionID)
}

// Plan is the full renumbering produced by a move.
type Plan struct {
	Source      domain.Group
	Destination domain.Group
	Entries     []domain.OrderEntry
}

// IDs lists every task the plan touches.
func (p Plan) IDs() []string {
	out := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.ID
	}
	return out
}

// SortByOrder sorts tasks in place by order, then creation time, then id.
func SortByOrder(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Siblings returns the tasks of group g sorted by order, leaving out the
// excluded ids.
func Siblings(tasks []*domain.Task, g domain.Group, exclude ...string) []*domain.Task {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var out []*domain.Task
	for _, t := range tasks {
		if skip[t.ID] || t.Group() != g {
			continue
		}
		out = append(out, t)
	}
	SortByOrder(out)
	return out
}

// Children returns the direct subtasks of id.
func Children(tasks []*domain.Task, id string) []*domain.Task {
	var out []*domain.Task
	for _, t := range tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == id {
			out = append(out, t)
		}
	}
	return out
}

// Descendants returns the ids of every task below id in the subtask tree,
// depth first. id itself is not included.
func Descendants(tasks []*domain.Task, id string) []string {
	byParent := map[string][]string{}
	for _, t := range tasks {
		if t.ParentTaskID != nil {
			byParent[*t.ParentTaskID] = append(byParent[*t.ParentTaskID], t.ID)
		}
	}
	var out []string
	seen := map[string]bool{id: true}
	var walk func(string)
	walk = func(parent string) {
		for _, child := range byParent[parent] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			walk(child)
		}
	}
	walk(id)
	return out
}

// IsSelfDrop reports whether the request drops a task onto itself without
// leaving its group, which changes nothing.
func IsSelfDrop(active *domain.Task, req MoveRequest) bool {
	return req.OverID != nil && *req.OverID == active.ID && active.Group() == req.Destination()
}

// PlanMove computes the renumbering for moving req.ActiveID into the
// destination group. Destination siblings are renumbered 0..n-1 with the
// moved task spliced in; when the group changes, the source siblings are
// renumbered too.
func PlanMove(tasks []*domain.Task, req MoveRequest) (Plan, error) {
	var active *domain.Task
	for _, t := range tasks {
		if t.ID == req.ActiveID {
			active = t
			break
		}
	}
	if active == nil {
		return Plan{}, fmt.Errorf("%w: %s", ErrActiveNotFound, req.ActiveID)
	}
	if err := checkCycle(tasks, req); err != nil {
		return Plan{}, err
	}

	src := active.Group()
	dst := req.Destination()
	plan := Plan{Source: src, Destination: dst}

	dest := Siblings(tasks, dst, active.ID)
	insertAt := len(dest)
	if req.OverID != nil {
		for i, t := range dest {
			if t.ID == *req.OverID {
				insertAt = i
				if req.IsDraggingDown {
					insertAt = i + 1
				}
				break
			}
		}
	}

	ids := make([]string, 0, len(dest)+1)
	for _, t := range dest[:insertAt] {
		ids = append(ids, t.ID)
	}
	ids = append(ids, active.ID)
	for _, t := range dest[insertAt:] {
		ids = append(ids, t.ID)
	}
	plan.Entries = append(plan.Entries, renumber(ids, dst)...)

	if src != dst {
		rest := Siblings(tasks, src, active.ID)
		plan.Entries = append(plan.Entries, renumber(taskIDs(rest), src)...)
	}
	return plan, nil
}

func checkCycle(tasks []*domain.Task, req MoveRequest) error {
	if req.NewParentID == nil {
		return nil
	}
	parent := *req.NewParentID
	if parent == req.ActiveID {
		return fmt.Errorf("%w: %s", ErrCycle, req.ActiveID)
	}
	for _, id := range Descendants(tasks, req.ActiveID) {
		if id == parent {
			return fmt.Errorf("%w: %s is below %s", ErrCycle, parent, req.ActiveID)
		}
	}
	return nil
}

// PlanInsert places id at index at of group g (clamped to the group size)
// and returns the entries whose order or group changes, id included.
func PlanInsert(tasks []*domain.Task, g domain.Group, at int, id string) []domain.OrderEntry {
	sibs := Siblings(tasks, g, id)
	if at < 0 {
		at = 0
	}
	if at > len(sibs) {
		at = len(sibs)
	}
	ids := make([]string, 0, len(sibs)+1)
	ids = append(ids, taskIDs(sibs[:at])...)
	ids = append(ids, id)
	ids = append(ids, taskIDs(sibs[at:])...)
	return Changed(tasks, renumber(ids, g))
}

// Compact renumbers each group 0..n-1 and returns only the entries that
// differ from the current state.
func Compact(tasks []*domain.Task, groups ...domain.Group) []domain.OrderEntry {
	var out []domain.OrderEntry
	seen := map[domain.Group]bool{}
	for _, g := range groups {
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, Changed(tasks, renumber(taskIDs(Siblings(tasks, g)), g))...)
	}
	return out
}

// Changed filters entries down to those that differ from the matching task.
// Entries for unknown ids are kept.
func Changed(tasks []*domain.Task, entries []domain.OrderEntry) []domain.OrderEntry {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var out []domain.OrderEntry
	for _, e := range entries {
		t, ok := byID[e.ID]
		if ok && t.Order == e.Order && t.Group() == domain.GroupOf(e.ParentTaskID, e.SectionID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// IsContiguous reports whether group g is numbered exactly 0..n-1.
func IsContiguous(tasks []*domain.Task, g domain.Group) bool {
	for i, t := range Siblings(tasks, g) {
		if t.Order != i {
			return false
		}
	}
	return true
}

func renumber(ids []string, g domain.Group) []domain.OrderEntry {
	out := make([]domain.OrderEntry, len(ids))
	for i, id := range ids {
		out[i] = domain.OrderEntry{
			ID:           id,
			Order:        i,
			ParentTaskID: g.Parent(),
			SectionID:    g.Section(),
		}
	}
	return out
}

func taskIDs(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
