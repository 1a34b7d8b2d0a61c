package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ldi/planner/internal/history"
	"github.com/ldi/planner/pkg/models"
)

var ctx = context.Background()

func at(hour, minute int) *time.Time {
	t := time.Date(2026, 3, 1, hour, minute, 0, 0, time.Local)
	return &t
}

func scheduledTask(title string, start *time.Time, d time.Duration) models.Task {
	t := models.NewTask(title, "", models.StatusNew)
	t.StartTime = start
	t.Duration = d
	return t
}

func scheduledSubtask(title string, status models.Status, epicID int, start *time.Time, d time.Duration) models.Subtask {
	s := models.NewSubtask(title, "", status, epicID)
	s.StartTime = start
	s.Duration = d
	return s
}

func mustEpic(t *testing.T, m *Manager, title string) *models.Epic {
	t.Helper()
	e, err := m.CreateEpic(ctx, models.NewEpic(title, ""))
	if err != nil {
		t.Fatalf("Failed to create epic: %v", err)
	}
	return e
}

func mustSubtask(t *testing.T, m *Manager, s models.Subtask) *models.Subtask {
	t.Helper()
	got, err := m.CreateSubtask(ctx, s)
	if err != nil {
		t.Fatalf("Failed to create subtask: %v", err)
	}
	if got == nil {
		t.Fatalf("Expected subtask to be created")
	}
	return got
}

func TestEmptyEpicIsNew(t *testing.T) {
	m := New(nil)
	e := mustEpic(t, m, "release")

	if e.Status != models.StatusNew {
		t.Errorf("expected NEW, got %s", e.Status)
	}
	if e.StartTime != nil || e.EndTime() != nil {
		t.Errorf("expected no schedule, got %v - %v", e.StartTime, e.EndTime())
	}
	if e.Duration != 0 {
		t.Errorf("expected zero duration, got %s", e.Duration)
	}
}

func TestCreateEpicIgnoresDerivedFields(t *testing.T) {
	m := New(nil)
	draft := models.NewEpic("release", "")
	draft.Status = models.StatusDone
	draft.StartTime = at(9, 0)
	draft.Duration = time.Hour
	draft.SubtaskIDs = []int{7}

	e, err := m.CreateEpic(ctx, draft)
	if err != nil {
		t.Fatalf("Failed to create epic: %v", err)
	}
	if e.Status != models.StatusNew || e.StartTime != nil || e.Duration != 0 || len(e.SubtaskIDs) != 0 {
		t.Errorf("expected a fresh epic, got %+v", e)
	}
}

func TestEpicAggregatesSubtasks(t *testing.T) {
	m := New(nil)
	e := mustEpic(t, m, "release")
	s1 := mustSubtask(t, m, scheduledSubtask("s1", models.StatusNew, e.ID, at(9, 0), 90*time.Minute))
	mustSubtask(t, m, scheduledSubtask("s2", models.StatusNew, e.ID, at(10, 30), 30*time.Minute))

	got := m.GetEpic(e.ID)
	if got.Status != models.StatusNew {
		t.Errorf("expected NEW, got %s", got.Status)
	}
	if !got.StartTime.Equal(*at(9, 0)) {
		t.Errorf("expected start 09:00, got %v", got.StartTime)
	}
	if !got.EndTime().Equal(*at(11, 0)) {
		t.Errorf("expected end 11:00, got %v", got.EndTime())
	}
	if got.Duration != 120*time.Minute {
		t.Errorf("expected 120m, got %s", got.Duration)
	}

	s1.Status = models.StatusDone
	if _, err := m.UpdateSubtask(ctx, *s1); err != nil {
		t.Fatalf("Failed to update subtask: %v", err)
	}
	if st := m.GetEpic(e.ID).Status; st != models.StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", st)
	}
}

func TestEpicStatusRule(t *testing.T) {
	tests := []struct {
		name     string
		statuses []models.Status
		want     models.Status
	}{
		{"empty", nil, models.StatusNew},
		{"all new", []models.Status{models.StatusNew, models.StatusNew}, models.StatusNew},
		{"all done", []models.Status{models.StatusDone, models.StatusDone}, models.StatusDone},
		{"mixed", []models.Status{models.StatusNew, models.StatusDone}, models.StatusInProgress},
		{"one in progress", []models.Status{models.StatusInProgress}, models.StatusInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil)
			e := mustEpic(t, m, "e")
			for _, st := range tt.statuses {
				mustSubtask(t, m, models.NewSubtask("s", "", st, e.ID))
			}
			if got := m.GetEpic(e.ID).Status; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOverlapRejectedAndBoundaryAdmitted(t *testing.T) {
	m := New(nil)
	if _, err := m.CreateTask(ctx, scheduledTask("t", at(10, 0), time.Hour)); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	_, err := m.CreateTask(ctx, scheduledTask("t2", at(10, 30), time.Hour))
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	var oe *OverlapError
	if !errors.As(err, &oe) || oe.Conflict.ID != 1 {
		t.Errorf("expected conflict with task 1, got %v", err)
	}
	if len(m.Tasks()) != 1 {
		t.Errorf("expected rejected task not to be stored")
	}

	if _, err := m.CreateTask(ctx, scheduledTask("t3", at(11, 0), 30*time.Minute)); err != nil {
		t.Errorf("expected back-to-back task to be admitted, got %v", err)
	}
}

func TestOverlapIsSymmetric(t *testing.T) {
	pairs := []struct {
		aStart, bStart *time.Time
		aDur, bDur     time.Duration
	}{
		{at(9, 0), at(9, 30), time.Hour, time.Hour},
		{at(9, 0), at(10, 0), time.Hour, time.Hour},
		{at(9, 0), at(8, 0), time.Hour, time.Hour},
		{at(9, 0), at(9, 10), time.Hour, 10 * time.Minute},
		{at(9, 0), at(9, 0), 0, time.Hour},
	}
	rejects := func(first, second models.Task) bool {
		m := New(nil)
		if _, err := m.CreateTask(ctx, first); err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
		_, err := m.CreateTask(ctx, second)
		return errors.Is(err, ErrOverlap)
	}
	for _, p := range pairs {
		a := scheduledTask("a", p.aStart, p.aDur)
		b := scheduledTask("b", p.bStart, p.bDur)
		if rejects(a, b) != rejects(b, a) {
			t.Errorf("asymmetric result for %v+%s and %v+%s", p.aStart, p.aDur, p.bStart, p.bDur)
		}
	}
}

func TestOverlapAcrossTasksAndSubtasks(t *testing.T) {
	m := New(nil)
	e := mustEpic(t, m, "e")
	mustSubtask(t, m, scheduledSubtask("s", models.StatusNew, e.ID, at(9, 0), time.Hour))

	if _, err := m.CreateTask(ctx, scheduledTask("t", at(9, 30), time.Hour)); !errors.Is(err, ErrOverlap) {
		t.Errorf("expected task to collide with subtask, got %v", err)
	}
}

func TestUpdateExcludesItself(t *testing.T) {
	m := New(nil)
	task, err := m.CreateTask(ctx, scheduledTask("t", at(10, 0), time.Hour))
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	task.Title = "renamed"
	task.Duration = 90 * time.Minute
	got, err := m.UpdateTask(ctx, *task)
	if err != nil {
		t.Fatalf("expected update of own interval to succeed, got %v", err)
	}
	if got.Title != "renamed" || got.Duration != 90*time.Minute {
		t.Errorf("unexpected updated task: %+v", got)
	}
}

func TestUpdateRejectedLeavesStateUnchanged(t *testing.T) {
	m := New(nil)
	if _, err := m.CreateTask(ctx, scheduledTask("a", at(9, 0), time.Hour)); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	b, err := m.CreateTask(ctx, scheduledTask("b", at(12, 0), time.Hour))
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	b.StartTime = at(9, 30)
	b.Title = "moved"
	if _, err := m.UpdateTask(ctx, *b); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	stored := m.GetTask(b.ID)
	if stored.Title != "b" || !stored.StartTime.Equal(*at(12, 0)) {
		t.Errorf("expected task to be unchanged, got %+v", stored)
	}
}

func TestUpdateMissingReturnsNil(t *testing.T) {
	m := New(nil)
	got, err := m.UpdateTask(ctx, models.Task{Common: models.Common{ID: 42}})
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
	ep, err := m.UpdateEpic(ctx, models.Epic{Common: models.Common{ID: 42}})
	if err != nil || ep != nil {
		t.Errorf("expected nil, nil; got %v, %v", ep, err)
	}
}

func TestUpdateEpicOnlyChangesText(t *testing.T) {
	m := New(nil)
	e := mustEpic(t, m, "e")
	mustSubtask(t, m, models.NewSubtask("s", "", models.StatusDone, e.ID))

	upd := *e
	upd.Title = "renamed"
	upd.Description = "details"
	upd.Status = models.StatusNew
	got, err := m.UpdateEpic(ctx, upd)
	if err != nil {
		t.Fatalf("Failed to update epic: %v", err)
	}
	if got.Title != "renamed" || got.Description != "details" {
		t.Errorf("expected text to change, got %+v", got)
	}
	if got.Status != models.StatusDone {
		t.Errorf("expected derived status DONE, got %s", got.Status)
	}
}

func TestCreateSubtaskInvalidLink(t *testing.T) {
	m := New(nil)
	got, err := m.CreateSubtask(ctx, models.NewSubtask("s", "", models.StatusNew, 99))
	if err != nil || got != nil {
		t.Errorf("expected nil for unknown epic, got %v, %v", got, err)
	}

	e := mustEpic(t, m, "e")
	self := models.NewSubtask("s", "", models.StatusNew, e.ID)
	self.ID = e.ID
	got, err = m.CreateSubtask(ctx, self)
	if err != nil || got != nil {
		t.Errorf("expected nil for self reference, got %v, %v", got, err)
	}
	if len(m.Subtasks()) != 0 {
		t.Errorf("expected no subtasks to be stored")
	}
}

func TestMoveSubtaskBetweenEpics(t *testing.T) {
	m := New(nil)
	e1 := mustEpic(t, m, "e1")
	e2 := mustEpic(t, m, "e2")
	s := mustSubtask(t, m, scheduledSubtask("s", models.StatusDone, e1.ID, at(9, 0), time.Hour))

	s.EpicID = e2.ID
	if _, err := m.UpdateSubtask(ctx, *s); err != nil {
		t.Fatalf("Failed to move subtask: %v", err)
	}

	old := m.GetEpic(e1.ID)
	if len(old.SubtaskIDs) != 0 || old.Status != models.StatusNew || old.StartTime != nil {
		t.Errorf("expected source epic to be empty, got %+v", old)
	}
	moved := m.GetEpic(e2.ID)
	if len(moved.SubtaskIDs) != 1 || moved.Status != models.StatusDone || moved.Duration != time.Hour {
		t.Errorf("expected target epic to own the subtask, got %+v", moved)
	}
}

func TestUpdateSubtaskToUnknownEpic(t *testing.T) {
	m := New(nil)
	e := mustEpic(t, m, "e")
	s := mustSubtask(t, m, models.NewSubtask("s", "", models.StatusNew, e.ID))

	s.EpicID = 99
	got, err := m.UpdateSubtask(ctx, *s)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
	if m.GetSubtask(s.ID).EpicID != e.ID {
		t.Errorf("expected subtask to stay with its epic")
	}
}

func TestDeleteEpicCascades(t *testing.T) {
	m := New(nil)
	e := mustEpic(t, m, "e")
	s := mustSubtask(t, m, scheduledSubtask("s", models.StatusNew, e.ID, at(9, 0), time.Hour))

	ok, err := m.DeleteEpic(ctx, e.ID)
	if err != nil || !ok {
		t.Fatalf("expected delete to succeed, got %v, %v", ok, err)
	}
	if m.GetSubtask(s.ID) != nil {
		t.Errorf("expected subtask to be removed with its epic")
	}
	if len(m.Prioritized()) != 0 {
		t.Errorf("expected priority view to be empty")
	}

	ok, err = m.DeleteEpic(ctx, e.ID)
	if err != nil || ok {
		t.Errorf("expected second delete to report false, got %v, %v", ok, err)
	}
}

func TestDeleteSubtaskRecomputesEpic(t *testing.T) {
	m := New(nil)
	e := mustEpic(t, m, "e")
	mustSubtask(t, m, models.NewSubtask("a", "", models.StatusDone, e.ID))
	b := mustSubtask(t, m, models.NewSubtask("b", "", models.StatusNew, e.ID))

	if ok, err := m.DeleteSubtask(ctx, b.ID); err != nil || !ok {
		t.Fatalf("expected delete to succeed, got %v, %v", ok, err)
	}
	if got := m.GetEpic(e.ID); got.Status != models.StatusDone || len(got.SubtaskIDs) != 1 {
		t.Errorf("expected DONE with one subtask, got %+v", got)
	}
}

func TestKindPartitioning(t *testing.T) {
	m := New(nil)
	task, _ := m.CreateTask(ctx, models.NewTask("t", "", models.StatusNew))
	e := mustEpic(t, m, "e")
	s := mustSubtask(t, m, models.NewSubtask("s", "", models.StatusNew, e.ID))

	if m.GetTask(e.ID) != nil || m.GetTask(s.ID) != nil {
		t.Errorf("GetTask must not return epics or subtasks")
	}
	if m.GetEpic(task.ID) != nil || m.GetSubtask(task.ID) != nil {
		t.Errorf("GetEpic/GetSubtask must not return tasks")
	}
	if len(m.Tasks()) != 1 || len(m.Epics()) != 1 || len(m.Subtasks()) != 1 {
		t.Errorf("unexpected partition sizes: %d %d %d", len(m.Tasks()), len(m.Epics()), len(m.Subtasks()))
	}
	if task.ID == e.ID || e.ID == s.ID {
		t.Errorf("expected ids to be unique across kinds")
	}
}

func TestDefensiveCopies(t *testing.T) {
	m := New(nil)
	draft := scheduledTask("t", at(9, 0), time.Hour)
	created, err := m.CreateTask(ctx, draft)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	draft.Title = "draft changed"
	created.Title = "result changed"
	*created.StartTime = created.StartTime.Add(time.Hour)
	m.Tasks()[0].Title = "list changed"

	got := m.GetTask(created.ID)
	if got.Title != "t" || !got.StartTime.Equal(*at(9, 0)) {
		t.Errorf("expected stored task to be unaffected, got %+v", got)
	}
}

func TestExplicitIDs(t *testing.T) {
	m := New(nil)
	draft := models.NewTask("t", "", models.StatusNew)
	draft.ID = 10
	got, err := m.CreateTask(ctx, draft)
	if err != nil || got.ID != 10 {
		t.Fatalf("expected id 10, got %v, %v", got, err)
	}
	if _, err := m.CreateTask(ctx, draft); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("expected reused id to be rejected, got %v", err)
	}
	next, _ := m.CreateTask(ctx, models.NewTask("u", "", models.StatusNew))
	if next.ID != 11 {
		t.Errorf("expected generated id 11, got %d", next.ID)
	}
}

func TestNegativeDurationRejected(t *testing.T) {
	m := New(nil)
	_, err := m.CreateTask(ctx, scheduledTask("t", at(9, 0), -time.Minute))
	if !errors.Is(err, ErrInvalidItem) {
		t.Errorf("expected ErrInvalidItem, got %v", err)
	}
}

func TestPrioritizedOrder(t *testing.T) {
	m := New(nil)
	a, _ := m.CreateTask(ctx, scheduledTask("a", at(10, 0), 0))
	e := mustEpic(t, m, "e")
	mustSubtask(t, m, models.NewSubtask("unscheduled", "", models.StatusNew, e.ID))

	got := m.Prioritized()
	if len(got) != 1 || got[0].Ref() != a.Ref() {
		t.Fatalf("expected only task a, got %v", got)
	}

	early := mustSubtask(t, m, scheduledSubtask("early", models.StatusNew, e.ID, at(8, 0), time.Hour))
	// Zero-length items at the same instant do not overlap; id breaks the tie.
	tie, _ := m.CreateTask(ctx, scheduledTask("tie", at(10, 0), 0))

	got = m.Prioritized()
	want := []models.Ref{early.Ref(), a.Ref(), tie.Ref()}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Ref() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i].Ref())
		}
	}

	a.StartTime = nil
	if _, err := m.UpdateTask(ctx, *a); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if len(m.Prioritized()) != 2 {
		t.Errorf("expected unscheduled task to leave the view")
	}
}

func TestHistoryRecordsGets(t *testing.T) {
	m := New(history.NewInMemory(history.DefaultLimit))
	task, _ := m.CreateTask(ctx, models.NewTask("t", "", models.StatusNew))
	e := mustEpic(t, m, "e")

	m.GetTask(task.ID)
	m.GetEpic(e.ID)
	m.GetTask(task.ID)
	m.GetTask(999)

	got := m.History()
	if len(got) != 2 || got[0].Ref() != e.Ref() || got[1].Ref() != task.Ref() {
		t.Errorf("unexpected history: %v", got)
	}
}

func TestDeleteAll(t *testing.T) {
	m := New(nil)
	m.CreateTask(ctx, scheduledTask("t", at(8, 0), time.Hour))
	e := mustEpic(t, m, "e")
	mustSubtask(t, m, scheduledSubtask("s", models.StatusDone, e.ID, at(9, 0), time.Hour))

	if err := m.DeleteAllSubtasks(ctx); err != nil {
		t.Fatalf("Failed to delete subtasks: %v", err)
	}
	got := m.GetEpic(e.ID)
	if got.Status != models.StatusNew || got.StartTime != nil || got.Duration != 0 || len(got.SubtaskIDs) != 0 {
		t.Errorf("expected epic to be reset, got %+v", got)
	}

	mustSubtask(t, m, models.NewSubtask("s2", "", models.StatusNew, e.ID))
	if err := m.DeleteAllEpics(ctx); err != nil {
		t.Fatalf("Failed to delete epics: %v", err)
	}
	if len(m.Epics()) != 0 || len(m.Subtasks()) != 0 {
		t.Errorf("expected epics and subtasks to be gone")
	}

	if err := m.DeleteAllTasks(ctx); err != nil {
		t.Fatalf("Failed to delete tasks: %v", err)
	}
	if len(m.Tasks()) != 0 || len(m.Prioritized()) != 0 {
		t.Errorf("expected no tasks left")
	}
}

func TestEpicSubtasksNeverNil(t *testing.T) {
	m := New(nil)
	if got := m.EpicSubtasks(5); got == nil || len(got) != 0 {
		t.Errorf("expected empty slice for unknown epic, got %v", got)
	}
	e := mustEpic(t, m, "e")
	b := mustSubtask(t, m, models.NewSubtask("b", "", models.StatusNew, e.ID))
	a := mustSubtask(t, m, models.NewSubtask("a", "", models.StatusNew, e.ID))

	got := m.EpicSubtasks(e.ID)
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Errorf("expected link order, got %v", got)
	}
}

func TestLookupDoesNotRecordHistory(t *testing.T) {
	m := New(nil)
	task, _ := m.CreateTask(ctx, models.NewTask("t", "", models.StatusNew))

	got := m.Lookup(task.Ref())
	if got == nil || got.Fields().Title != "t" {
		t.Fatalf("expected lookup to find the task, got %v", got)
	}
	if m.Lookup(models.Ref{Kind: models.KindEpic, ID: task.ID}) != nil {
		t.Errorf("expected lookup to respect kind")
	}
	if len(m.History()) != 0 {
		t.Errorf("expected lookup to leave history empty")
	}
}
