package models

import "time"

// Record is the JSON form of an item exchanged with front-ends.
// Times use TimeLayout and Duration is in whole minutes.
type Record struct {
	ID          int    `json:"id"`
	Type        Kind   `json:"type,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status,omitempty"`
	EpicID      int    `json:"epic_id,omitempty"`
	Subtasks    []int  `json:"subtasks,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Duration    int    `json:"duration"`
}

func NewRecord(item Item) Record {
	c := item.Fields()
	r := Record{
		ID:          c.ID,
		Type:        item.Ref().Kind,
		Title:       c.Title,
		Description: c.Description,
		Status:      c.Status,
		StartTime:   FormatTime(c.StartTime),
		EndTime:     FormatTime(c.EndTime()),
		Duration:    int(c.Duration / time.Minute),
	}
	switch v := item.(type) {
	case *Epic:
		r.Subtasks = append([]int{}, v.SubtaskIDs...)
		r.EndTime = FormatTime(v.End)
	case *Subtask:
		r.EpicID = v.EpicID
	}
	return r
}

func NewRecords[T any, P interface {
	*T
	Item
}](items []T) []Record {
	out := make([]Record, 0, len(items))
	for i := range items {
		out = append(out, NewRecord(P(&items[i])))
	}
	return out
}

// ItemRecords converts a mixed slice of items.
func ItemRecords(items []Item) []Record {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		out = append(out, NewRecord(it))
	}
	return out
}

// Common parses the shared fields. An empty status defaults to NEW.
func (r Record) Common() (Common, error) {
	c := Common{ID: r.ID, Title: r.Title, Description: r.Description, Status: StatusNew}
	if r.Status != "" {
		s, err := ParseStatus(string(r.Status))
		if err != nil {
			return Common{}, err
		}
		c.Status = s
	}
	start, err := ParseTime(r.StartTime)
	if err != nil {
		return Common{}, err
	}
	c.StartTime = start
	d, err := ParseMinutes(int64(r.Duration))
	if err != nil {
		return Common{}, err
	}
	c.Duration = d
	return c, nil
}

func (r Record) Task() (Task, error) {
	c, err := r.Common()
	return Task{Common: c}, err
}

func (r Record) Epic() (Epic, error) {
	c, err := r.Common()
	return Epic{Common: c}, err
}

func (r Record) Subtask() (Subtask, error) {
	c, err := r.Common()
	return Subtask{Common: c, EpicID: r.EpicID}, err
}
