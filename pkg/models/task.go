package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedRecord is returned when persisted data cannot be turned back into items.
var ErrMalformedRecord = errors.New("malformed record")

type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// ParseStatus validates a persisted or wire status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusInProgress, StatusDone:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Kind string

const (
	KindTask    Kind = "TASK"
	KindEpic    Kind = "EPIC"
	KindSubtask Kind = "SUBTASK"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTask, KindEpic, KindSubtask:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown type %q", s)
}

// Ref identifies an item. Items of different kinds are never equal, even with the same ID.
type Ref struct {
	Kind Kind `json:"type"`
	ID   int  `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// Common holds the fields every kind of work item carries.
type Common struct {
	ID          int           `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	StartTime   *time.Time    `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}

// EndTime returns StartTime+Duration, or nil when the item is not scheduled.
func (c Common) EndTime() *time.Time {
	if c.StartTime == nil {
		return nil
	}
	end := c.StartTime.Add(c.Duration)
	return &end
}

func (c Common) clone() Common {
	out := c
	out.StartTime = cloneTime(c.StartTime)
	return out
}

// Item is implemented by *Task, *Epic and *Subtask only.
type Item interface {
	Ref() Ref
	Fields() Common
	CloneItem() Item
	sealed()
}

// Same reports whether a and b are the same item: same kind and same ID.
func Same(a, b Item) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Ref() == b.Ref()
}

type Task struct {
	Common
}

func NewTask(title, description string, status Status) Task {
	return Task{Common: Common{Title: title, Description: description, Status: status}}
}

func (t *Task) Ref() Ref        { return Ref{Kind: KindTask, ID: t.ID} }
func (t *Task) Fields() Common  { return t.Common.clone() }
func (t *Task) CloneItem() Item { return t.Clone() }
func (t *Task) sealed()         {}

// Clone returns an independent copy of t.
func (t *Task) Clone() *Task {
	return &Task{Common: t.Common.clone()}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// NormalizeTime converts t to local wall-clock time at minute precision,
// the resolution the snapshot format stores.
func NormalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(time.Local).Truncate(time.Minute)
	return &v
}
