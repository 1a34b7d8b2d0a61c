package csvfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ldi/planner/internal/tracker"
	"github.com/ldi/planner/pkg/models"
)

var ctx = context.Background()

func at(hour, minute int) *time.Time {
	t := time.Date(2026, 3, 1, hour, minute, 0, 0, time.Local)
	return &t
}

func seed(t *testing.T, m *tracker.Manager) {
	t.Helper()
	task := models.NewTask("write report", "quarterly", models.StatusInProgress)
	task.StartTime = at(8, 0)
	task.Duration = 45 * time.Minute
	if _, err := m.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	e, err := m.CreateEpic(ctx, models.NewEpic("release", ""))
	if err != nil {
		t.Fatalf("Failed to create epic: %v", err)
	}
	s1 := models.NewSubtask("build", "", models.StatusDone, e.ID)
	s1.StartTime = at(9, 0)
	s1.Duration = 90 * time.Minute
	s2 := models.NewSubtask("ship", "", models.StatusNew, e.ID)
	for _, s := range []models.Subtask{s1, s2} {
		if _, err := m.CreateSubtask(ctx, s); err != nil {
			t.Fatalf("Failed to create subtask: %v", err)
		}
	}
}

func TestEncodeFormat(t *testing.T) {
	m := tracker.New(nil)
	seed(t, m)

	var buf bytes.Buffer
	if err := Encode(&buf, m.Snapshot()); err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	want := strings.Join([]string{
		Header,
		"1,TASK,write report,IN_PROGRESS,quarterly,,2026-03-01 08:00,45",
		"2,EPIC,release,IN_PROGRESS,,,2026-03-01 09:00,90",
		"3,SUBTASK,build,DONE,,2,2026-03-01 09:00,90",
		"4,SUBTASK,ship,NEW,,2,,0",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRoundTripThroughStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tasks.csv")
	store := New(path)

	m, err := tracker.Open(ctx, nil, store)
	if err != nil {
		t.Fatalf("Failed to open empty store: %v", err)
	}
	seed(t, m)

	reloaded, err := tracker.Open(ctx, nil, New(path))
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if len(reloaded.Tasks()) != 1 || len(reloaded.Epics()) != 1 || len(reloaded.Subtasks()) != 2 {
		t.Fatalf("unexpected counts after reload")
	}
	orig, got := m.GetEpic(2), reloaded.GetEpic(2)
	if got.Status != orig.Status || !got.StartTime.Equal(*orig.StartTime) || got.Duration != orig.Duration {
		t.Errorf("expected epic aggregates to match, got %+v want %+v", got, orig)
	}
	if len(got.SubtaskIDs) != 2 {
		t.Errorf("expected subtasks to be relinked, got %v", got.SubtaskIDs)
	}
	task := reloaded.GetTask(1)
	if task.Title != "write report" || task.Description != "quarterly" || task.Duration != 45*time.Minute {
		t.Errorf("unexpected task after reload: %+v", task)
	}

	next, err := reloaded.CreateTask(ctx, models.NewTask("next", "", models.StatusNew))
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if next.ID != 5 {
		t.Errorf("expected id 5 after reload, got %d", next.ID)
	}
}

func TestResaveIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.csv")
	m, err := tracker.Open(ctx, nil, New(path))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	seed(t, m)

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	for range 2 {
		reloaded, err := tracker.Open(ctx, nil, New(path))
		if err != nil {
			t.Fatalf("Failed to reload: %v", err)
		}
		if err := reloaded.Save(ctx); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("expected identical output:\n%s\n---\n%s", first, second)
	}
}

func TestMissingAndEmptyFilesLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	missing := New(filepath.Join(dir, "missing.csv"))
	snap, err := missing.Load(ctx)
	if err != nil || snap.Len() != 0 {
		t.Errorf("expected empty snapshot for missing file, got %v, %v", snap, err)
	}

	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	snap, err = New(empty).Load(ctx)
	if err != nil || snap.Len() != 0 {
		t.Errorf("expected empty snapshot for empty file, got %v, %v", snap, err)
	}
}

func TestDecodeSkipsBlankLines(t *testing.T) {
	in := Header + "\r\n\r\n1,TASK,t,NEW,,,,0\r\n\n"
	snap, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].Title != "t" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestDecodeMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"too few fields", "1,TASK,t,NEW,,,"},
		{"comma in title", "1,TASK,a,b,NEW,,,,0"},
		{"unknown type", "1,STORY,t,NEW,,,,0"},
		{"bad id", "x,TASK,t,NEW,,,,0"},
		{"bad status", "1,TASK,t,OPEN,,,,0"},
		{"bad time", "1,TASK,t,NEW,,,01/03/2026,0"},
		{"negative duration", "1,TASK,t,NEW,,,,-5"},
		{"missing epic id", "1,SUBTASK,t,NEW,,,,0"},
		{"huge duration", "1,TASK,t,NEW,,,2026-01-01 10:00,200000000"},
		{"epic id on task", "1,TASK,t,NEW,,2,,0"},
		{"epic id on epic", "1,EPIC,t,NEW,,2,,0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(Header + "\n2,TASK,ok,NEW,,,,0\n" + tt.row + "\n"))
			if !errors.Is(err, models.ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
			var re *RecordError
			if !errors.As(err, &re) || re.Line != 3 {
				t.Errorf("expected error on line 3, got %v", err)
			}
		})
	}
}

func TestDecodeRequiresHeader(t *testing.T) {
	_, err := Decode(strings.NewReader("1,TASK,t,NEW,,,,0\n"))
	var re *RecordError
	if !errors.As(err, &re) || re.Line != 1 {
		t.Errorf("expected header error on line 1, got %v", err)
	}
}

func TestOpenReportsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.csv")
	if err := os.WriteFile(path, []byte(Header+"\n1,TASK,t\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	_, err := tracker.Open(ctx, nil, New(path))
	if !errors.Is(err, models.ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestCheckFieldsRejectsSeparators(t *testing.T) {
	m, err := tracker.Open(ctx, nil, New(filepath.Join(t.TempDir(), "tasks.csv")))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	for _, title := range []string{"a,b", "line\nbreak"} {
		if _, err := m.CreateTask(ctx, models.NewTask(title, "", models.StatusNew)); !errors.Is(err, tracker.ErrInvalidItem) {
			t.Errorf("expected %q to be rejected, got %v", title, err)
		}
	}
	if _, err := m.CreateEpic(ctx, models.NewEpic("e", "has, comma")); !errors.Is(err, tracker.ErrInvalidItem) {
		t.Errorf("expected description with comma to be rejected, got %v", err)
	}
}
