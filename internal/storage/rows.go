// Package storage holds the row mapping shared by the SQL snapshot backends.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ldi/planner/pkg/models"
)

// Row is one item as stored in the items table.
type Row struct {
	ID          int64
	Type        string
	Title       string
	Status      string
	Description string
	EpicID      sql.NullInt64
	StartTime   sql.NullString
	Duration    int64
}

// Args returns the values in column order.
func (r Row) Args() []any {
	return []any{r.ID, r.Type, r.Title, r.Status, r.Description, r.EpicID, r.StartTime, r.Duration}
}

const Columns = "id, type, title, status, description, epic_id, start_time, duration_minutes"

// Rows flattens a snapshot into table rows, tasks first, then epics, then subtasks.
func Rows(snap *models.Snapshot) []Row {
	if snap == nil {
		return nil
	}
	out := make([]Row, 0, snap.Len())
	for i := range snap.Tasks {
		out = append(out, newRow(&snap.Tasks[i]))
	}
	for i := range snap.Epics {
		out = append(out, newRow(&snap.Epics[i]))
	}
	for i := range snap.Subtasks {
		r := newRow(&snap.Subtasks[i])
		r.EpicID = sql.NullInt64{Int64: int64(snap.Subtasks[i].EpicID), Valid: true}
		out = append(out, r)
	}
	return out
}

func newRow(item models.Item) Row {
	c := item.Fields()
	r := Row{
		ID:          int64(c.ID),
		Type:        string(item.Ref().Kind),
		Title:       c.Title,
		Status:      string(c.Status),
		Description: c.Description,
		Duration:    int64(c.Duration / time.Minute),
	}
	if c.StartTime != nil {
		r.StartTime = sql.NullString{String: models.FormatTime(c.StartTime), Valid: true}
	}
	return r
}

// Build turns rows back into a snapshot, rejecting anything the text
// format would also reject.
func Build(rows []Row) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	for _, r := range rows {
		if err := r.appendTo(snap); err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", models.ErrMalformedRecord, r.ID, err)
		}
	}
	return snap, nil
}

func (r Row) appendTo(snap *models.Snapshot) error {
	if r.ID <= 0 {
		return fmt.Errorf("invalid id")
	}
	kind, err := models.ParseKind(r.Type)
	if err != nil {
		return err
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	var start *time.Time
	if r.StartTime.Valid {
		if start, err = models.ParseTime(r.StartTime.String); err != nil {
			return err
		}
	}
	duration, err := models.ParseMinutes(r.Duration)
	if err != nil {
		return err
	}

	if kind != models.KindSubtask && r.EpicID.Valid {
		return fmt.Errorf("%s row has epic id %d", kind, r.EpicID.Int64)
	}

	c := models.Common{
		ID:          int(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Status:      status,
		StartTime:   start,
		Duration:    duration,
	}
	switch kind {
	case models.KindTask:
		snap.Tasks = append(snap.Tasks, models.Task{Common: c})
	case models.KindEpic:
		snap.Epics = append(snap.Epics, models.Epic{Common: c})
	case models.KindSubtask:
		if !r.EpicID.Valid {
			return fmt.Errorf("subtask without epic id")
		}
		snap.Subtasks = append(snap.Subtasks, models.Subtask{Common: c, EpicID: int(r.EpicID.Int64)})
	}
	return nil
}
