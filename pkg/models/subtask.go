package models

type Subtask struct {
	Common
	EpicID int `json:"epic_id"`
}

func NewSubtask(title, description string, status Status, epicID int) Subtask {
	return Subtask{
		Common: Common{Title: title, Description: description, Status: status},
		EpicID: epicID,
	}
}

func (s *Subtask) Ref() Ref        { return Ref{Kind: KindSubtask, ID: s.ID} }
func (s *Subtask) Fields() Common  { return s.Common.clone() }
func (s *Subtask) CloneItem() Item { return s.Clone() }
func (s *Subtask) sealed()         {}

func (s *Subtask) Clone() *Subtask {
	return &Subtask{Common: s.Common.clone(), EpicID: s.EpicID}
}
