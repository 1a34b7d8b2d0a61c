package tracker

import (
	"context"

	"github.com/ldi/planner/pkg/models"
)

// CreateTask stores a copy of draft and returns it with its assigned id.
// A draft whose interval overlaps a scheduled item is rejected with an
// *OverlapError and nothing is stored.
func (m *Manager) CreateTask(ctx context.Context, draft models.Task) (*models.Task, error) {
	t := draft.Clone()
	if err := m.prepare(&t.Common); err != nil {
		return nil, err
	}
	if err := m.checkOverlap(models.Ref{Kind: models.KindTask}, t.Common); err != nil {
		return nil, err
	}
	id, err := m.claimID(t.ID)
	if err != nil {
		return nil, err
	}
	t.ID = id

	m.tasks[id] = t
	m.schedule.insert(t.Ref(), t.Common)
	return t.Clone(), m.persist(ctx)
}

// GetTask returns a copy of the task and records it in the history, or nil.
func (m *Manager) GetTask(id int) *models.Task {
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	m.history.Add(t)
	return t.Clone()
}

// UpdateTask replaces every caller-settable field of an existing task.
// It returns nil when no task has upd.ID.
func (m *Manager) UpdateTask(ctx context.Context, upd models.Task) (*models.Task, error) {
	existing, ok := m.tasks[upd.ID]
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
	existing.Common = next.Common
	m.schedule.reseat(existing.Ref(), old, existing.Common)
	return existing.Clone(), m.persist(ctx)
}

func (m *Manager) DeleteTask(ctx context.Context, id int) (bool, error) {
	t, ok := m.tasks[id]
	if !ok {
		return false, nil
	}
	delete(m.tasks, id)
	m.schedule.remove(t.Ref(), t.Common)
	return true, m.persist(ctx)
}

// Tasks returns copies of all tasks ordered by id.
func (m *Manager) Tasks() []models.Task {
	return sortedValues(m.tasks, (*models.Task).Clone)
}

func (m *Manager) DeleteAllTasks(ctx context.Context) error {
	clear(m.tasks)
	m.schedule.removeKind(models.KindTask)
	return m.persist(ctx)
}

