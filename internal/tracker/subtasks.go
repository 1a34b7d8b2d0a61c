package tracker

import (
	"context"

	"github.com/ldi/planner/pkg/models"
)

// CreateSubtask stores a copy of draft, links it into its epic and
// recomputes the epic's aggregates. It returns nil without error when the
// epic does not exist or the draft names itself as its epic.
func (m *Manager) CreateSubtask(ctx context.Context, draft models.Subtask) (*models.Subtask, error) {
	e, ok := m.epics[draft.EpicID]
	if !ok || draft.ID == draft.EpicID {
		return nil, nil
	}
	s := draft.Clone()
	if err := m.prepare(&s.Common); err != nil {
		return nil, err
	}
	if err := m.checkOverlap(models.Ref{Kind: models.KindSubtask}, s.Common); err != nil {
		return nil, err
	}
	id, err := m.claimID(s.ID)
	if err != nil {
		return nil, err
	}
	s.ID = id

	m.subtasks[id] = s
	e.AddSubtask(id)
	m.refreshEpic(e)
	m.schedule.insert(s.Ref(), s.Common)
	return s.Clone(), m.persist(ctx)
}

func (m *Manager) GetSubtask(id int) *models.Subtask {
	s, ok := m.subtasks[id]
	if !ok {
		return nil
	}
	m.history.Add(s)
	return s.Clone()
}

// UpdateSubtask replaces the subtask's fields. Moving it to another epic
// re-aggregates both epics. An unknown subtask or target epic yields nil.
func (m *Manager) UpdateSubtask(ctx context.Context, upd models.Subtask) (*models.Subtask, error) {
	existing, ok := m.subtasks[upd.ID]
	if !ok {
		return nil, nil
	}
	target, ok := m.epics[upd.EpicID]
	if !ok {
		return nil, nil
	}
	next := upd.Clone()
	if err := m.prepare(&next.Common); err != nil {
		return nil, err
	}
	if err := m.checkOverlap(existing.Ref(), next.Common); err != nil {
		return nil, err
	}

	old := existing.Common
	if existing.EpicID != next.EpicID {
		if prev, ok := m.epics[existing.EpicID]; ok {
			prev.RemoveSubtask(existing.ID)
			m.refreshEpic(prev)
		}
	}
	existing.Common = next.Common
	existing.EpicID = next.EpicID
	target.AddSubtask(existing.ID)
	m.refreshEpic(target)
	m.schedule.reseat(existing.Ref(), old, existing.Common)
	return existing.Clone(), m.persist(ctx)
}

// DeleteSubtask unlinks the subtask from its epic and recomputes the epic.
func (m *Manager) DeleteSubtask(ctx context.Context, id int) (bool, error) {
	s, ok := m.subtasks[id]
	if !ok {
		return false, nil
	}
	m.dropSubtask(s)
	return true, m.persist(ctx)
}

func (m *Manager) Subtasks() []models.Subtask {
	return sortedValues(m.subtasks, (*models.Subtask).Clone)
}

// DeleteAllSubtasks leaves every epic empty: NEW, unscheduled, zero duration.
func (m *Manager) DeleteAllSubtasks(ctx context.Context) error {
	clear(m.subtasks)
	m.schedule.removeKind(models.KindSubtask)
	for _, e := range m.epics {
		e.ClearSubtasks()
		m.refreshEpic(e)
	}
	return m.persist(ctx)
}

func (m *Manager) dropSubtask(s *models.Subtask) {
	delete(m.subtasks, s.ID)
	m.schedule.remove(s.Ref(), s.Common)
	if e, ok := m.epics[s.EpicID]; ok {
		e.RemoveSubtask(s.ID)
		m.refreshEpic(e)
	}
}
