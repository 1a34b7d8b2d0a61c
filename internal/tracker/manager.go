// Package tracker is the task engine: it owns tasks, epics and subtasks,
// derives epic status and schedule from subtasks, rejects overlapping
// intervals, keeps the priority view and records viewed items.
//
// A Manager is not safe for concurrent use; callers serialize access.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/ldi/planner/internal/history"
	"github.com/ldi/planner/pkg/models"
)

// Snapshotter persists the full dataset. Save always receives everything;
// there is no incremental diffing.
type Snapshotter interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
}

// FieldChecker is implemented by snapshotters that cannot encode every
// field value. The Manager consults it before committing a mutation.
type FieldChecker interface {
	CheckFields(c models.Common) error
}

type Manager struct {
	tasks    map[int]*models.Task
	epics    map[int]*models.Epic
	subtasks map[int]*models.Subtask
	nextID   int
	history  history.Tracker
	schedule schedule
	store    Snapshotter
}

// New returns an empty in-memory Manager. A nil hist gets a tracker with
// the default limit.
func New(hist history.Tracker) *Manager {
	if hist == nil {
		hist = history.NewInMemory(history.DefaultLimit)
	}
	return &Manager{
		tasks:    make(map[int]*models.Task),
		epics:    make(map[int]*models.Epic),
		subtasks: make(map[int]*models.Subtask),
		nextID:   1,
		history:  hist,
	}
}

// Open loads the dataset from store and returns a Manager that saves a full
// snapshot back to it after every successful mutation.
func Open(ctx context.Context, hist history.Tracker, store Snapshotter) (*Manager, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, models.ErrMalformedRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load snapshot: %w", ErrPersistence, err)
	}

	m, err := Restore(snap, hist)
	if err != nil {
		return nil, err
	}
	m.store = store
	return m, nil
}

// Restore builds a Manager from snap: subtasks are re-linked into their
// epics, epic aggregates recomputed, and id generation resumes above the
// highest id seen. Subtasks whose epic is missing are kept but not linked.
func Restore(snap *models.Snapshot, hist history.Tracker) (*Manager, error) {
	m := New(hist)
	if snap == nil {
		return m, nil
	}

	seen := make(map[int]models.Kind, snap.Len())
	maxID := 0
	claim := func(ref models.Ref) error {
		if ref.ID <= 0 {
			return fmt.Errorf("%w: %s has no valid id", models.ErrMalformedRecord, ref.Kind)
		}
		if kind, dup := seen[ref.ID]; dup {
			return fmt.Errorf("%w: id %d used by %s and %s", models.ErrMalformedRecord, ref.ID, kind, ref.Kind)
		}
		seen[ref.ID] = ref.Kind
		maxID = max(maxID, ref.ID)
		return nil
	}

	for i := range snap.Tasks {
		t := snap.Tasks[i].Clone()
		if err := claim(t.Ref()); err != nil {
			return nil, err
		}
		m.tasks[t.ID] = t
		m.schedule.insert(t.Ref(), t.Common)
	}
	for i := range snap.Epics {
		e := snap.Epics[i].Clone()
		if err := claim(e.Ref()); err != nil {
			return nil, err
		}
		m.epics[e.ID] = e
	}
	for i := range snap.Subtasks {
		s := snap.Subtasks[i].Clone()
		if err := claim(s.Ref()); err != nil {
			return nil, err
		}
		m.subtasks[s.ID] = s
		m.schedule.insert(s.Ref(), s.Common)
	}

	// Keep any stored link order, drop stale links, then link the rest by id.
	for _, e := range m.epics {
		stored := e.SubtaskIDs
		e.ClearSubtasks()
		for _, id := range stored {
			if s, ok := m.subtasks[id]; ok && s.EpicID == e.ID {
				e.AddSubtask(id)
			}
		}
	}
	for _, id := range sortedKeys(m.subtasks) {
		if e, ok := m.epics[m.subtasks[id].EpicID]; ok {
			e.AddSubtask(id)
		}
	}
	for _, e := range m.epics {
		m.refreshEpic(e)
	}

	m.nextID = maxID + 1
	return m, nil
}

// Snapshot returns copies of every item, each kind ordered by id.
func (m *Manager) Snapshot() *models.Snapshot {
	return &models.Snapshot{
		Tasks:    m.Tasks(),
		Epics:    m.Epics(),
		Subtasks: m.Subtasks(),
	}
}

// Save writes the current dataset to the attached store, if any.
func (m *Manager) Save(ctx context.Context) error {
	return m.persist(ctx)
}

func (m *Manager) persist(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, m.Snapshot()); err != nil {
		return fmt.Errorf("%w: save snapshot: %w", ErrPersistence, err)
	}
	return nil
}

// Prioritized returns copies of all scheduled tasks and subtasks ordered by
// start time, ties broken by id.
func (m *Manager) Prioritized() []models.Item {
	refs := m.schedule.refs()
	out := make([]models.Item, 0, len(refs))
	for _, ref := range refs {
		switch ref.Kind {
		case models.KindTask:
			if t, ok := m.tasks[ref.ID]; ok {
				out = append(out, t.Clone())
			}
		case models.KindSubtask:
			if s, ok := m.subtasks[ref.ID]; ok {
				out = append(out, s.Clone())
			}
		}
	}
	return out
}

// Lookup returns a copy of the item without recording it in the history,
// or nil when there is no such item.
func (m *Manager) Lookup(ref models.Ref) models.Item {
	switch ref.Kind {
	case models.KindTask:
		if t, ok := m.tasks[ref.ID]; ok {
			return t.Clone()
		}
	case models.KindEpic:
		if e, ok := m.epics[ref.ID]; ok {
			return e.Clone()
		}
	case models.KindSubtask:
		if s, ok := m.subtasks[ref.ID]; ok {
			return s.Clone()
		}
	}
	return nil
}

// History returns the recently viewed items, oldest first.
func (m *Manager) History() []models.Item {
	return m.history.History()
}

// prepare validates and normalizes the caller-settable fields of c.
func (m *Manager) prepare(c *models.Common) error {
	if c.Duration < 0 {
		return invalidf("negative duration %s", c.Duration)
	}
	c.StartTime = models.NormalizeTime(c.StartTime)
	c.Duration = c.Duration.Truncate(time.Minute)
	return m.checkFields(*c)
}

func (m *Manager) checkFields(c models.Common) error {
	fc, ok := m.store.(FieldChecker)
	if !ok {
		return nil
	}
	if err := fc.CheckFields(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	return nil
}

func (m *Manager) idInUse(id int) bool {
	_, t := m.tasks[id]
	_, e := m.epics[id]
	_, s := m.subtasks[id]
	return t || e || s
}

// claimID hands out the next id, or honors an explicit one that is free.
func (m *Manager) claimID(requested int) (int, error) {
	if requested == 0 {
		id := m.nextID
		m.nextID++
		return id, nil
	}
	if requested < 0 {
		return 0, invalidf("negative id %d", requested)
	}
	if m.idInUse(requested) {
		return 0, invalidf("id %d is already in use", requested)
	}
	if requested >= m.nextID {
		m.nextID = requested + 1
	}
	return requested, nil
}

func (m *Manager) checkOverlap(self models.Ref, c models.Common) error {
	if conflict, ok := m.schedule.conflict(self, c); ok {
		return &OverlapError{Candidate: self, Conflict: conflict}
	}
	return nil
}

func sortedKeys[V any](items map[int]V) []int {
	return slices.Sorted(maps.Keys(items))
}

func sortedValues[V any](items map[int]*V, clone func(*V) *V) []V {
	out := make([]V, 0, len(items))
	for _, id := range sortedKeys(items) {
		out = append(out, *clone(items[id]))
	}
	return out
}
