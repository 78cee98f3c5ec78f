package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/tasksync/internal/domain"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return d, nil
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339 or \"YYYY-MM-DD HH:MM\"", s)
}

func parsePriority(s string) (domain.Priority, error) {
	p := domain.Priority(strings.ToLower(strings.TrimSpace(s)))
	if !domain.ValidPriorities[p] {
		return "", fmt.Errorf("invalid priority %q (low|medium|high|urgent)", s)
	}
	return p, nil
}

func parseRecurring(s string) (domain.RecurringType, error) {
	r := domain.RecurringType(strings.ToLower(strings.TrimSpace(s)))
	if !domain.ValidRecurringTypes[r] {
		return "", fmt.Errorf("invalid recurrence %q (none|daily|weekly|monthly|yearly)", s)
	}
	return r, nil
}

func parseStatus(s string) (domain.TaskStatus, error) {
	st := domain.TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !domain.ValidStatuses[st] {
		return "", fmt.Errorf("invalid status %q (to-do|completed|archived|skipped)", s)
	}
	return st, nil
}

// optionalRef returns a pointer to the flag value when the flag was set. An
// explicit empty value yields nil, meaning "none".
func optionalRef(flags *pflag.FlagSet, name, value string) (*string, bool) {
	if !flags.Changed(name) {
		return nil, false
	}
	if strings.TrimSpace(value) == "" {
		return nil, true
	}
	v := value
	return &v, true
}
