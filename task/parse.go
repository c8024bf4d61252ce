package task

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// deadlineLayouts are the ISO-8601 forms accepted by ParseDeadline, tried in
// order. Layouts without a zone are read in local time.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDeadline parses an ISO-8601 date or date-time. An empty string means no
// deadline and yields nil.
func ParseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: unparseable deadline %q", ErrInvalidInput, s)
}

// titleCase is per call since a Caser keeps state between uses.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// ParsePriority normalizes case ("high", "HIGH" -> High) and rejects anything
// outside Low, Medium and High.
func ParsePriority(s string) (Priority, error) {
	p := Priority(titleCase(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: priority %q must be Low, Medium or High", ErrInvalidInput, s)
	}
	return p, nil
}

// ParsePriorityFilter is ParsePriority that also accepts "All" and the empty
// string, both of which disable filtering.
func ParsePriorityFilter(s string) (Priority, error) {
	p := Priority(titleCase(s))
	if p == "" || p == PriorityAll {
		return p, nil
	}
	return ParsePriority(s)
}

// ParseSortField rejects any column that is not sortable.
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q must be one of title, status, priority, deadline", ErrInvalidSortField, s)
	}
	return f, nil
}
