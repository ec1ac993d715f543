// Package feedview is the live activity feed panel of the dashboard.
package feedview

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/activity"
	"github.com/nhle/docflow/internal/feed"
	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/theme"
)

const reloadTimeout = 15 * time.Second

// Source is the live feed the view renders. *feed.Feed implements it.
type Source interface {
	Activities() []model.Activity
	Status() feed.Status
	Attempts() int
	ConnErr() error
	LoadErr() error
	Updates() <-chan struct{}
	Reload(ctx context.Context) error
	Connect(ctx context.Context)
}

// UpdatedMsg is sent when the feed signals a change.
type UpdatedMsg struct{}

// ReloadedMsg carries the outcome of a manual reload.
type ReloadedMsg struct {
	Err error
}

// SelectedActivityMsg asks the parent to open the detail view.
type SelectedActivityMsg struct {
	Activity model.Activity
}

// WaitForUpdate returns a tea.Cmd that blocks until the feed signals.
func WaitForUpdate(src Source) tea.Cmd {
	return func() tea.Msg {
		<-src.Updates()
		return UpdatedMsg{}
	}
}

// Indicator renders the connection dot and label for s.
func Indicator(s feed.Status, lang activity.Lang) string {
	var dot, fi, en string
	switch s {
	case feed.StatusConnected:
		dot, fi, en = "●", "Yhdistetty", "Connected"
	case feed.StatusConnecting:
		dot, fi, en = "◌", "Yhdistetään", "Connecting"
	case feed.StatusReconnecting:
		dot, fi, en = "◌", "Yhdistetään uudelleen", "Reconnecting"
	default:
		dot, fi, en = "○", "Ei yhteyttä", "Disconnected"
	}
	label := fi
	if lang == activity.EN {
		label = en
	}
	return theme.ConnectionStyle(string(s)).Render(dot) + " " + label
}

// Model is the activity feed view.
type Model struct {
	src       Source
	keys      *keys.KeyMap
	list      list.Model
	lang      activity.Lang
	reloading bool
	width     int
	height    int
}

// New creates a feed view over src.
func New(src Source, k *keys.KeyMap, lang activity.Lang, width, height int) Model {
	delegate := ItemDelegate{}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return Model{
		src:    src,
		keys:   k,
		list:   l,
		lang:   lang,
		width:  width,
		height: height,
	}
}

// Init starts listening for feed updates.
func (m Model) Init() tea.Cmd {
	return WaitForUpdate(m.src)
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case UpdatedMsg:
		cmd := m.refresh()
		return m, tea.Batch(cmd, WaitForUpdate(m.src))

	case ReloadedMsg:
		m.reloading = false
		return m, m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(ActivityItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return SelectedActivityMsg{Activity: item.Activity}
			}

		case key.Matches(msg, m.keys.Retry), key.Matches(msg, m.keys.Reload):
			return m, m.Retry()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Retry reloads the initial list and reconnects a dropped channel.
func (m *Model) Retry() tea.Cmd {
	if m.reloading {
		return nil
	}
	m.reloading = true
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		if src.Status() == feed.StatusDisconnected {
			src.Connect(context.Background())
		}
		return ReloadedMsg{Err: src.Reload(ctx)}
	}
}

func (m *Model) refresh() tea.Cmd {
	acts := m.src.Activities()
	items := make([]list.Item, len(acts))
	for i, a := range acts {
		items[i] = ActivityItem{Activity: a, Lang: m.lang}
	}
	return m.list.SetItems(items)
}

// SetLang switches the display language.
func (m *Model) SetLang(lang activity.Lang) tea.Cmd {
	m.lang = lang
	return m.refresh()
}

// Bindings returns the keys this view reacts to.
func (m Model) Bindings() []key.Binding {
	return []key.Binding{m.keys.Select, m.keys.Retry, m.keys.Reload}
}

// View renders the feed view.
func (m Model) View() string {
	status := m.statusLine()

	if err := m.src.LoadErr(); err != nil && len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, status, m.renderError(err))
	}

	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, status, m.renderEmptyState())
	}

	return lipgloss.JoinVertical(lipgloss.Left, status, m.list.View())
}

func (m Model) statusLine() string {
	s := m.src.Status()
	line := Indicator(s, m.lang)
	if s == feed.StatusReconnecting {
		line += theme.HelpStyle.Render(fmt.Sprintf("  (#%d)", m.src.Attempts()+1))
	}
	if err := m.src.ConnErr(); err != nil && s != feed.StatusConnected {
		line += theme.HelpStyle.Render("  " + err.Error())
	}
	if m.reloading {
		line += theme.HelpStyle.Render("  …")
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(line)
}

func (m Model) renderError(err error) string {
	msg := "Aktiviteettien lataus epäonnistui"
	hint := "Paina r yrittääksesi uudelleen"
	if m.lang == activity.EN {
		msg = "Failed to load activities"
		hint = "Press r to retry"
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-1).
		Align(lipgloss.Center, lipgloss.Center).
		Render(theme.ErrorStyle.Render(msg) + "\n" + err.Error() + "\n\n" + theme.HelpStyle.Render(hint))
}

func (m Model) renderEmptyState() string {
	msg := "Ei aktiviteetteja vielä."
	if m.lang == activity.EN {
		msg = "No activities yet."
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-1).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(msg)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
}
