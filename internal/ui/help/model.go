package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/theme"
)

// Model is the help overlay. It lists the bindings of the view it was
// opened from above the global key map.
type Model struct {
	keys     *keys.KeyMap
	help     help.Model
	viewName string
	viewKeys []key.Binding
	width    int
	height   int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetView sets the view whose bindings are listed first.
func (m *Model) SetView(name string, bindings []key.Binding) {
	m.viewName = name
	m.viewKeys = bindings
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{titleStyle.Render("Keyboard Shortcuts")}

	if len(m.viewKeys) > 0 {
		m.help.ShowAll = false
		sections = append(sections,
			lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render(m.viewName),
			lipgloss.NewStyle().MarginBottom(1).Render(m.help.ShortHelpView(m.viewKeys)),
		)
	}

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	sections = append(sections, m.help.View(m.keys))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
