package models

import (
	"slices"
	"time"
)

// Epic owns an ordered, duplicate-free list of subtask IDs. Its status and
// schedule are derived from those subtasks and never set directly.
type Epic struct {
	Common
	SubtaskIDs []int      `json:"subtask_ids"`
	End        *time.Time `json:"end_time"`
}

func NewEpic(title, description string) Epic {
	return Epic{Common: Common{Title: title, Description: description, Status: StatusNew}}
}

func (e *Epic) Ref() Ref        { return Ref{Kind: KindEpic, ID: e.ID} }
func (e *Epic) Fields() Common  { return e.Common.clone() }
func (e *Epic) CloneItem() Item { return e.Clone() }
func (e *Epic) sealed()         {}

// EndTime is the latest subtask end, not StartTime+Duration.
func (e *Epic) EndTime() *time.Time {
	return cloneTime(e.End)
}

func (e *Epic) Clone() *Epic {
	return &Epic{
		Common:     e.Common.clone(),
		SubtaskIDs: slices.Clone(e.SubtaskIDs),
		End:        cloneTime(e.End),
	}
}

// AddSubtask appends id unless it is already linked or is the epic itself.
func (e *Epic) AddSubtask(id int) {
	if id == e.ID || slices.Contains(e.SubtaskIDs, id) {
		return
	}
	e.SubtaskIDs = append(e.SubtaskIDs, id)
}

func (e *Epic) RemoveSubtask(id int) {
	e.SubtaskIDs = slices.DeleteFunc(e.SubtaskIDs, func(v int) bool { return v == id })
}

func (e *Epic) ClearSubtasks() {
	e.SubtaskIDs = nil
}
