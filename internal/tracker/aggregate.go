package tracker

import (
	"time"

	"github.com/ldi/planner/pkg/models"
)

// epicStatus derives an epic's status from its subtasks: NEW when there are
// none or all are NEW, DONE when all are DONE, IN_PROGRESS otherwise.
func epicStatus(subs []*models.Subtask) models.Status {
	if len(subs) == 0 {
		return models.StatusNew
	}
	allNew, allDone := true, true
	for _, s := range subs {
		if s.Status != models.StatusNew {
			allNew = false
		}
		if s.Status != models.StatusDone {
			allDone = false
		}
	}
	switch {
	case allDone:
		return models.StatusDone
	case allNew:
		return models.StatusNew
	default:
		return models.StatusInProgress
	}
}

// epicWindow returns the earliest start, latest end and summed duration of subs.
func epicWindow(subs []*models.Subtask) (start, end *time.Time, total time.Duration) {
	for _, s := range subs {
		total += s.Duration
		if s.StartTime == nil {
			continue
		}
		if start == nil || s.StartTime.Before(*start) {
			v := *s.StartTime
			start = &v
		}
		e := s.EndTime()
		if end == nil || e.After(*end) {
			end = e
		}
	}
	return start, end, total
}

func (m *Manager) linkedSubtasks(e *models.Epic) []*models.Subtask {
	subs := make([]*models.Subtask, 0, len(e.SubtaskIDs))
	for _, id := range e.SubtaskIDs {
		if s, ok := m.subtasks[id]; ok {
			subs = append(subs, s)
		}
	}
	return subs
}

// refreshEpic recomputes status, start, end and duration together.
func (m *Manager) refreshEpic(e *models.Epic) {
	if e == nil {
		return
	}
	subs := m.linkedSubtasks(e)
	e.Status = epicStatus(subs)
	e.StartTime, e.End, e.Duration = epicWindow(subs)
}
