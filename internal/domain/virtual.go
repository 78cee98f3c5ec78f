package domain

import (
	"fmt"
	"strings"
	"time"
)

// VirtualPrefix marks synthesized occurrence ids. Persisted ids are UUIDs and
// never start with it.
const VirtualPrefix = "virtual-"

const virtualDateLayout = "2006-01-02"

// VirtualID derives the deterministic id of the occurrence of templateID on date.
func VirtualID(templateID string, date time.Time) string {
	return VirtualPrefix + templateID + "-" + DateOnly(date).Format(virtualDateLayout)
}

// IsVirtualID reports whether id names a synthesized occurrence.
func IsVirtualID(id string) bool {
	return strings.HasPrefix(id, VirtualPrefix)
}

// ParseVirtualID recovers the template id and occurrence date from a virtual id.
// The date suffix has a fixed width, so template ids may contain dashes.
func ParseVirtualID(id string) (string, time.Time, error) {
	if !IsVirtualID(id) {
		return "", time.Time{}, fmt.Errorf("%q is not a virtual id", id)
	}
	rest := strings.TrimPrefix(id, VirtualPrefix)
	suffix := len(virtualDateLayout) + 1
	if len(rest) <= suffix || rest[len(rest)-suffix] != '-' {
		return "", time.Time{}, fmt.Errorf("malformed virtual id %q", id)
	}
	templateID := rest[:len(rest)-suffix]
	date, err := time.Parse(virtualDateLayout, rest[len(rest)-suffix+1:])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed virtual id %q: %w", id, err)
	}
	return templateID, date, nil
}
