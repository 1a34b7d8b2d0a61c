package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
       _
 _ __ | | __ _ _ __  _ __   ___ _ __
| '_ \| |/ _' | '_ \| '_ \ / _ \ '__|
| |_) | | (_| | | | | | | |  __/ |
| .__/|_|\__,_|_| |_|_| |_|\___|_|
|_|
`

// Choice is one menu entry: a command name and its one-line help.
type Choice struct {
	Name string
	Help string
}

// MenuModel lets the user pick a planner command when none was given.
// Keys 1-9 pick an entry directly.
type MenuModel struct {
	choices  []Choice
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel(choices []Choice) MenuModel {
	return MenuModel{choices: choices}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch k := key.String(); k {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}

	case "enter":
		if len(m.choices) == 0 {
			return m, nil
		}
		m.selected = m.choices[m.cursor].Name
		return m, tea.Quit

	default:
		if n, err := strconv.Atoi(k); err == nil && n >= 1 && n <= len(m.choices) {
			m.cursor = n - 1
			m.selected = m.choices[m.cursor].Name
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	nameWidth := 0
	for _, c := range m.choices {
		nameWidth = max(nameWidth, len(c.Name))
	}

	var s strings.Builder
	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	for i, c := range m.choices {
		marker, style := " ", itemStyle
		if m.cursor == i {
			marker, style = ">", selectedItemStyle
		}
		s.WriteString(style.Render(fmt.Sprintf("%s %d %-*s", marker, i+1, nameWidth, c.Name)))
		if c.Help != "" {
			s.WriteString("  " + helpStyle.Render(c.Help))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n(arrows or j/k to move, enter or 1-9 to pick, q to quit)\n")

	return s.String()
}

func (m MenuModel) Selected() string {
	return m.selected
}

// RunMenu shows choices and returns the chosen command name, or "" on quit.
func RunMenu(choices []Choice) (string, error) {
	p := tea.NewProgram(NewMenuModel(choices))
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
