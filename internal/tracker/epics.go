package tracker

import (
	"context"

	"github.com/ldi/planner/pkg/models"
)

// CreateEpic stores a new epic. Status, schedule and subtask links are
// derived, so whatever the draft carries for them is discarded.
func (m *Manager) CreateEpic(ctx context.Context, draft models.Epic) (*models.Epic, error) {
	e := &models.Epic{Common: models.Common{
		ID:          draft.ID,
		Title:       draft.Title,
		Description: draft.Description,
		Status:      models.StatusNew,
	}}
	if err := m.checkFields(e.Common); err != nil {
		return nil, err
	}
	id, err := m.claimID(e.ID)
	if err != nil {
		return nil, err
	}
	e.ID = id

	m.epics[id] = e
	return e.Clone(), m.persist(ctx)
}

func (m *Manager) GetEpic(id int) *models.Epic {
	e, ok := m.epics[id]
	if !ok {
		return nil
	}
	m.history.Add(e)
	return e.Clone()
}

// UpdateEpic changes the title and description of an existing epic.
func (m *Manager) UpdateEpic(ctx context.Context, upd models.Epic) (*models.Epic, error) {
	e, ok := m.epics[upd.ID]
	if !ok {
		return nil, nil
	}
	next := e.Common
	next.Title, next.Description = upd.Title, upd.Description
	if err := m.checkFields(next); err != nil {
		return nil, err
	}

	e.Title, e.Description = upd.Title, upd.Description
	m.refreshEpic(e)
	return e.Clone(), m.persist(ctx)
}

// DeleteEpic removes the epic together with every subtask it owns.
func (m *Manager) DeleteEpic(ctx context.Context, id int) (bool, error) {
	e, ok := m.epics[id]
	if !ok {
		return false, nil
	}
	for _, sid := range sortedKeys(m.subtasks) {
		if s := m.subtasks[sid]; s.EpicID == id {
			m.dropSubtask(s)
		}
	}
	e.ClearSubtasks()
	delete(m.epics, id)
	return true, m.persist(ctx)
}

func (m *Manager) Epics() []models.Epic {
	return sortedValues(m.epics, (*models.Epic).Clone)
}

// EpicSubtasks returns the epic's subtasks in link order. The result is
// empty, never nil, for an unknown epic or one without subtasks.
func (m *Manager) EpicSubtasks(epicID int) []models.Subtask {
	e, ok := m.epics[epicID]
	if !ok {
		return []models.Subtask{}
	}
	subs := m.linkedSubtasks(e)
	out := make([]models.Subtask, 0, len(subs))
	for _, s := range subs {
		out = append(out, *s.Clone())
	}
	return out
}

// DeleteAllEpics also removes every subtask, since none can outlive its epic.
func (m *Manager) DeleteAllEpics(ctx context.Context) error {
	clear(m.epics)
	clear(m.subtasks)
	m.schedule.removeKind(models.KindSubtask)
	return m.persist(ctx)
}
