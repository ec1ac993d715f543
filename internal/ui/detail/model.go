package detail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/activity"
	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/theme"
)

// BackMsg signals the parent to navigate back to the feed.
type BackMsg struct{}

// Model is the activity detail view component.
type Model struct {
	activity *model.Activity
	lang     activity.Lang
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		lang:     activity.FI,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg {
			return BackMsg{}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.activity == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No activity selected")
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(m.viewport.View())
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.activity == nil {
		return ""
	}

	a := *m.activity
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(activity.Icon(a.Type)+" "+activity.Title(a, m.lang)))

	badge := activity.StatusBadge(a.Status, m.lang)
	if badge.Text != "" {
		sections = append(sections, theme.BadgeStyle(string(badge.Kind)).Render(badge.Text))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(18)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label+":")+valStyle.Render(value))
	}

	row("ID", a.ID)
	row("Type", string(a.Type))
	row("Action", a.Action)
	row("Actor", a.Actor)
	if !a.Timestamp.IsZero() {
		row("Time", a.Timestamp.Local().Format("2006-01-02 15:04:05"))
	}

	d := a.Details
	fields := []struct{ label, value string }{
		{"Filename", d.Filename},
		{"File type", d.FileType},
		{"File size", intStr(d.FileSize)},
		{"Pages", intStr(int64(d.PagesProcessed))},
		{"Processing time", floatStr(d.ProcessingTime, "s")},
		{"Confidence", floatStr(d.Confidence*100, "%")},
		{"Error type", d.ErrorType},
		{"Error code", d.ErrorCode},
		{"Error", d.ErrorMessage},
		{"Retries", intStr(int64(d.RetryCount))},
		{"Analysis", d.AnalysisType},
		{"Export", d.ExportType},
		{"Records", intStr(int64(d.RecordsCount))},
		{"Document", d.DocID},
		{"Error ID", d.ErrorID},
		{"Customer", d.CustomerID},
		{"Email", d.Email},
		{"OCR action", d.OCRAction},
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-8, 80), 1)))
	sections = append(sections, "", separator, "")

	for _, f := range fields {
		row(f.label, f.value)
	}

	if len(d.Extra) > 0 {
		extraKeys := make([]string, 0, len(d.Extra))
		for k := range d.Extra {
			extraKeys = append(extraKeys, k)
		}
		sort.Strings(extraKeys)
		for _, k := range extraKeys {
			row(k, fmt.Sprint(d.Extra[k]))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func intStr(v int64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprint(v)
}

func floatStr(v float64, unit string) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%s", v, unit)
}

// SetActivity updates the activity being displayed and re-renders.
func (m *Model) SetActivity(a model.Activity, lang activity.Lang) {
	m.activity = &a
	m.lang = lang
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 6
	m.viewport.Height = height - 4
	if m.activity != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
