package tracker

import (
	"errors"
	"fmt"

	"github.com/ldi/planner/pkg/models"
)

var (
	ErrOverlap     = errors.New("time interval overlaps an existing item")
	ErrPersistence = errors.New("persistence failure")
	ErrInvalidItem = errors.New("invalid item")
)

// OverlapError reports the scheduled item a candidate collided with.
type OverlapError struct {
	Candidate models.Ref
	Conflict  models.Ref
}

func (e *OverlapError) Error() string {
	if e == nil {
		return ""
	}
	if e.Candidate.ID == 0 {
		return fmt.Sprintf("%s: new %s conflicts with %s", ErrOverlap, e.Candidate.Kind, e.Conflict)
	}
	return fmt.Sprintf("%s: %s conflicts with %s", ErrOverlap, e.Candidate, e.Conflict)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidItem, fmt.Sprintf(format, args...))
}
