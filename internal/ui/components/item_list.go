package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/planner/pkg/models"
)

var (
	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	inProgressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	newStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

// StatusIcon returns the marker drawn in front of an item with status s.
func StatusIcon(s models.Status) string {
	switch s {
	case models.StatusDone:
		return "✓"
	case models.StatusInProgress:
		return "◐"
	default:
		return "○"
	}
}

func statusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusDone:
		return doneStyle
	case models.StatusInProgress:
		return inProgressStyle
	default:
		return newStyle
	}
}

// ItemList renders work items in a bordered box of Width cells, one per
// line, in the order given.
type ItemList struct {
	Title       string
	Placeholder string
	Width       int
	Items       []models.Item
}

func NewItemList(title string, width int, items []models.Item) *ItemList {
	return &ItemList{
		Title:       title,
		Placeholder: "Nothing here yet",
		Width:       width,
		Items:       items,
	}
}

func (l *ItemList) View() string {
	var content string
	if len(l.Items) == 0 {
		content = placeholderStyle.Render(l.Placeholder)
	} else {
		content = l.renderBox()
	}

	if l.Title == "" {
		return content
	}
	return headerStyle.Render(l.Title) + "\n" + content
}

func (l *ItemList) renderBox() string {
	innerWidth := max(l.Width-4, 0)
	textWidth := max(innerWidth-2, 0)

	var lines []string
	for _, item := range l.Items {
		f := item.Fields()
		label := fmt.Sprintf("%s %s", item.Ref(), f.Title)
		if when := Schedule(item); when != "" {
			label += " " + timeStyle.Render(when)
		}

		wrapped := lipgloss.NewStyle().Width(textWidth).Render(label)
		style := statusStyle(f.Status)
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				lines = append(lines, style.Render(StatusIcon(f.Status))+" "+line)
			} else {
				lines = append(lines, "  "+line)
			}
		}
	}

	return boxStyle.Width(max(l.Width-2, 0)).Render(strings.Join(lines, "\n"))
}

// Schedule formats the interval of item as "start → end (duration)", or ""
// when it has no start time. Epics end with their latest subtask.
func Schedule(item models.Item) string {
	c := item.Fields()
	if c.StartTime == nil {
		return ""
	}
	end := c.EndTime()
	if e, ok := item.(*models.Epic); ok && e.End != nil {
		end = e.End
	}
	return fmt.Sprintf("%s → %s (%s)", models.FormatTime(c.StartTime), end.Format("15:04"), c.Duration)
}
