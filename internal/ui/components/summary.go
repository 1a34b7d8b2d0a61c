package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/planner/pkg/models"
)

var kinds = []models.Kind{models.KindTask, models.KindEpic, models.KindSubtask}

var statuses = []models.Status{models.StatusNew, models.StatusInProgress, models.StatusDone}

// Summary counts items per kind and status.
type Summary struct {
	Width  int
	counts map[models.Kind]map[models.Status]int
	next   models.Item
}

func NewSummary(width int) *Summary {
	s := &Summary{Width: width, counts: make(map[models.Kind]map[models.Status]int)}
	for _, k := range kinds {
		s.counts[k] = make(map[models.Status]int)
	}
	return s
}

// Add counts every item in items.
func (s *Summary) Add(items ...models.Item) {
	for _, it := range items {
		s.counts[it.Ref().Kind][it.Fields().Status]++
	}
}

// SetNext records the item shown as up next.
func (s *Summary) SetNext(item models.Item) {
	s.next = item
}

func (s *Summary) Count(k models.Kind, st models.Status) int {
	return s.counts[k][st]
}

func (s *Summary) View() string {
	var rows []string
	for _, k := range kinds {
		cells := make([]string, 0, len(statuses))
		for _, st := range statuses {
			cells = append(cells, statusStyle(st).Render(fmt.Sprintf("%s %d", StatusIcon(st), s.counts[k][st])))
		}
		rows = append(rows, fmt.Sprintf("%-8s %s", k, strings.Join(cells, "  ")))
	}

	next := placeholderStyle.Render("Nothing scheduled")
	if s.next != nil {
		f := s.next.Fields()
		next = fmt.Sprintf("Next: %s %s %s", s.next.Ref(), f.Title, timeStyle.Render(Schedule(s.next)))
	}

	body := strings.Join(rows, "\n") + "\n\n" + next
	return headerStyle.Render("Status") + "\n" + boxStyle.Width(max(s.Width-2, 0)).Render(body)
}

// Truncate shortens text to width cells, used for one-line table output.
func Truncate(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}
	r := []rune(text)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
