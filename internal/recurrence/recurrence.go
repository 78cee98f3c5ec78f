// Package recurrence expands recurring task templates into the virtual
// occurrences shown for a date window. Everything here is pure.
package recurrence

import (
	"sort"
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
)

// MaxOccurrences caps how many occurrences one template emits per window.
const MaxOccurrences = 366

// Window is an inclusive range of calendar dates.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow normalizes both ends to dates.
func NewWindow(from, to time.Time) Window {
	return Window{From: domain.DateOnly(from), To: domain.DateOnly(to)}
}

// Contains reports whether date falls inside the window.
func (w Window) Contains(date time.Time) bool {
	d := domain.DateOnly(date)
	return !d.Before(w.From) && !d.After(w.To)
}

// Skips holds virtual ids the user marked as skipped.
type Skips map[string]bool

// Has reports whether the occurrence of templateID on date was skipped.
func (s Skips) Has(templateID string, date time.Time) bool {
	return s[domain.VirtualID(templateID, date)]
}

// Anchor is the template's first occurrence date: its due date, or the day
// it was created.
func Anchor(template *domain.Task) time.Time {
	if template.DueDate != nil {
		return domain.DateOnly(*template.DueDate)
	}
	return domain.DateOnly(template.CreatedAt)
}

// Nth returns the n-th occurrence date after the anchor (n >= 0). Monthly and
// yearly steps keep the anchor's day, clamped to the end of shorter months.
func Nth(template *domain.Task, n int) time.Time {
	anchor := Anchor(template)
	switch template.RecurringType {
	case domain.RecurDaily:
		return anchor.AddDate(0, 0, n)
	case domain.RecurWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case domain.RecurMonthly:
		return monthStep(anchor, n)
	case domain.RecurYearly:
		return monthStep(anchor, 12*n)
	default:
		return anchor
	}
}

func monthStep(anchor time.Time, months int) time.Time {
	first := time.Date(anchor.Year(), anchor.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	day := anchor.Day()
	if last := daysInMonth(first.Month(), first.Year()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(month time.Month, year int) int {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// firstIndex returns an n whose occurrence is at or before from, so the
// caller only walks forward over the window.
func firstIndex(template *domain.Task, from time.Time) int {
	anchor := Anchor(template)
	if !from.After(anchor) {
		return 1
	}
	var n int
	switch template.RecurringType {
	case domain.RecurDaily:
		n = int(from.Sub(anchor).Hours() / 24)
	case domain.RecurWeekly:
		n = int(from.Sub(anchor).Hours()/24) / 7
	case domain.RecurMonthly:
		n = (from.Year()-anchor.Year())*12 + int(from.Month()-anchor.Month()) - 1
	case domain.RecurYearly:
		n = from.Year() - anchor.Year() - 1
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Dates lists the template's occurrence dates inside w, strictly after the
// anchor. The template row itself stands for the anchor date.
func Dates(template *domain.Task, w Window) []time.Time {
	if !template.IsRecurring() || w.To.Before(w.From) {
		return nil
	}
	var out []time.Time
	for n := firstIndex(template, w.From); len(out) < MaxOccurrences; n++ {
		d := Nth(template, n)
		if d.After(w.To) {
			break
		}
		if d.Before(w.From) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// IsOccurrence reports whether date is a synthesized occurrence date of the
// template.
func IsOccurrence(template *domain.Task, date time.Time) bool {
	d := domain.DateOnly(date)
	if !template.IsRecurring() || !d.After(Anchor(template)) {
		return false
	}
	for _, got := range Dates(template, Window{From: d, To: d}) {
		if got.Equal(d) {
			return true
		}
	}
	return false
}

// Occurrence builds the virtual record for template on date. Every template
// field is copied except identity, date, reminder, status and completion.
func Occurrence(template *domain.Task, date time.Time, skipped bool) *domain.Task {
	d := domain.DateOnly(date)
	occ := template.Clone()
	occ.ID = domain.VirtualID(template.ID, d)
	occ.DueDate = &d
	occ.CompletedAt = nil
	occ.Status = domain.StatusTodo
	if skipped {
		occ.Status = domain.StatusSkipped
	}
	tid := template.ID
	occ.OriginalTaskID = &tid
	if template.RemindAt != nil {
		delta := d.Sub(Anchor(template))
		at := template.RemindAt.Add(delta)
		occ.RemindAt = &at
	}
	return occ
}

type occurrenceKey struct {
	templateID string
	date       time.Time
}

// Synthesize produces the virtual occurrences of every template in the
// window, leaving out dates already backed by a materialized row. Output is
// sorted by date, then template order.
func Synthesize(templates, materialized []*domain.Task, w Window, skips Skips) []*domain.Task {
	backed := make(map[occurrenceKey]bool, len(materialized))
	for _, m := range materialized {
		if m.OriginalTaskID == nil || m.DueDate == nil {
			continue
		}
		backed[occurrenceKey{*m.OriginalTaskID, domain.DateOnly(*m.DueDate)}] = true
	}

	var out []*domain.Task
	for _, tpl := range templates {
		if !tpl.IsTemplate() || tpl.Status == domain.StatusArchived {
			continue
		}
		for _, d := range Dates(tpl, w) {
			if backed[occurrenceKey{tpl.ID, d}] {
				continue
			}
			out = append(out, Occurrence(tpl, d, skips.Has(tpl.ID, d)))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := *out[i].DueDate, *out[j].DueDate
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Templates filters tasks down to recurring templates.
func Templates(tasks []*domain.Task) []*domain.Task {
	var out []*domain.Task
	for _, t := range tasks {
		if t.IsTemplate() {
			out = append(out, t)
		}
	}
	return out
}

// Materialized filters tasks down to persisted occurrences.
func Materialized(tasks []*domain.Task) []*domain.Task {
	var out []*domain.Task
	for _, t := range tasks {
		if t.IsOccurrence() {
			out = append(out, t)
		}
	}
	return out
}
