package tracker

import (
	"slices"
	"time"

	"github.com/ldi/planner/pkg/models"
)

type slot struct {
	ref   models.Ref
	start time.Time
	end   time.Time
}

func compareSlots(a, b slot) int {
	if c := a.start.Compare(b.start); c != 0 {
		return c
	}
	if a.ref.ID != b.ref.ID {
		if a.ref.ID < b.ref.ID {
			return -1
		}
		return 1
	}
	if a.ref.Kind < b.ref.Kind {
		return -1
	}
	if a.ref.Kind > b.ref.Kind {
		return 1
	}
	return 0
}

// schedule is the priority view: every task and subtask that has a start
// time, ordered by (start, id). It is kept in step with each mutation.
type schedule struct {
	slots []slot
}

func newSlot(ref models.Ref, c models.Common) (slot, bool) {
	if c.StartTime == nil {
		return slot{}, false
	}
	return slot{ref: ref, start: *c.StartTime, end: *c.EndTime()}, true
}

func (s *schedule) insert(ref models.Ref, c models.Common) {
	sl, ok := newSlot(ref, c)
	if !ok {
		return
	}
	i, found := slices.BinarySearchFunc(s.slots, sl, compareSlots)
	if found {
		s.slots[i] = sl
		return
	}
	s.slots = slices.Insert(s.slots, i, sl)
}

func (s *schedule) remove(ref models.Ref, c models.Common) {
	sl, ok := newSlot(ref, c)
	if !ok {
		return
	}
	if i, found := slices.BinarySearchFunc(s.slots, sl, compareSlots); found {
		s.slots = slices.Delete(s.slots, i, i+1)
	}
}

// reseat moves ref from its old interval to its new one.
func (s *schedule) reseat(ref models.Ref, old, updated models.Common) {
	s.remove(ref, old)
	s.insert(ref, updated)
}

func (s *schedule) removeKind(kind models.Kind) {
	s.slots = slices.DeleteFunc(s.slots, func(sl slot) bool { return sl.ref.Kind == kind })
}

func (s *schedule) refs() []models.Ref {
	out := make([]models.Ref, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl.ref)
	}
	return out
}

// conflict returns the first scheduled item whose interval overlaps
// [start, start+d), ignoring the item identified by self. Intervals are
// half-open, so an item that starts exactly when another ends is admitted.
func (s *schedule) conflict(self models.Ref, c models.Common) (models.Ref, bool) {
	if c.StartTime == nil {
		return models.Ref{}, false
	}
	start, end := *c.StartTime, *c.EndTime()
	for _, sl := range s.slots {
		if sl.ref == self {
			continue
		}
		if !sl.start.Before(end) {
			break
		}
		if overlaps(start, end, sl.start, sl.end) {
			return sl.ref, true
		}
	}
	return models.Ref{}, false
}

func overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
