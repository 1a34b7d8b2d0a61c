package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeLayout is the minute-precision format used for persisted and wire timestamps.
const TimeLayout = "2006-01-02 15:04"

func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(time.Local).Format(TimeLayout)
}

// ParseTime parses TimeLayout in local time. An empty string yields nil.
func ParseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return &t, nil
}

// ParseMinutes converts a stored whole-minute count to a Duration. Negative
// counts and counts that do not fit in a Duration are rejected.
func ParseMinutes(n int64) (time.Duration, error) {
	if n < 0 || n > math.MaxInt64/int64(time.Minute) {
		return 0, fmt.Errorf("invalid duration %d", n)
	}
	return time.Duration(n) * time.Minute, nil
}

// Snapshot is the full dataset of a store, each kind ordered by ascending ID.
type Snapshot struct {
	Tasks    []Task
	Epics    []Epic
	Subtasks []Subtask
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Tasks) + len(s.Epics) + len(s.Subtasks)
}
