// Package ocrtriage is the OCR error triage panel of the dashboard.
package ocrtriage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/panel"
	"github.com/nhle/docflow/internal/theme"
)

const requestTimeout = 15 * time.Second

// API is the subset of the DocFlow client the view uses.
type API interface {
	ListOCRErrors(ctx context.Context) (model.OCRErrorList, error)
	OCRAction(ctx context.Context, req model.OCRActionRequest) (model.Activity, error)
}

// LoadedMsg carries the result of a triage list load.
type LoadedMsg struct {
	List model.OCRErrorList
	Err  error
}

// ActionDoneMsg reports the outcome of an optimistic triage action.
type ActionDoneMsg struct {
	Mutation panel.Mutation[model.OCRErrorList]
	Action   string
	Err      error
}

// actionStatus is the triage state shown while an action is pending.
var actionStatus = map[string]string{
	model.OCRActionRetry:       model.OCRStatusRetrying,
	model.OCRActionAcknowledge: model.OCRStatusAcknowledged,
	model.OCRActionEscalate:    model.OCRStatusEscalated,
}

var severityOrder = []model.Severity{
	model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow,
}

// cloneList copies the error slice; stats are replaced wholesale and
// never mutated in place.
func cloneList(l model.OCRErrorList) model.OCRErrorList {
	l.Errors = panel.CloneSlice(l.Errors)
	return l
}

// Model is the OCR triage view.
type Model struct {
	api    API
	keys   *keys.KeyMap
	panel  *panel.Panel[model.OCRErrorList]
	cursor int
	info   string
	width  int
	height int
}

// New creates the OCR triage view.
func New(api API, k *keys.KeyMap, width, height int) Model {
	return Model{
		api:    api,
		keys:   k,
		panel:  panel.New(cloneList),
		width:  width,
		height: height,
	}
}

// Init loads the triage list.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load marks the panel loading and fetches the list.
func (m Model) Load() tea.Cmd {
	m.panel.Loading()
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := api.ListOCRErrors(ctx)
		return LoadedMsg{List: list, Err: err}
	}
}

// Update handles messages for the triage view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			m.panel.Failed(msg.Err)
			return m, nil
		}
		m.panel.Loaded(msg.List)
		m.clampCursor()
		return m, nil

	case ActionDoneMsg:
		m.panel.Settle(msg.Mutation, msg.Err)
		if msg.Err == nil {
			m.info = fmt.Sprintf("%s recorded", msg.Action)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.panel.Value().Errors)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Reload):
			return m, m.Load()
		case key.Matches(msg, m.keys.Retry):
			if m.panel.Retry() {
				return m, m.Load()
			}
			return m.act(model.OCRActionRetry)
		case key.Matches(msg, m.keys.Acknowledge):
			return m.act(model.OCRActionAcknowledge)
		case key.Matches(msg, m.keys.Escalate):
			return m.act(model.OCRActionEscalate)
		}
	}
	return m, nil
}

// act applies action to the selected error optimistically and sends it.
func (m Model) act(action string) (Model, tea.Cmd) {
	errs := m.panel.Value().Errors
	if m.cursor < 0 || m.cursor >= len(errs) {
		return m, nil
	}
	target := errs[m.cursor]

	req := model.OCRActionRequest{Action: action, DocID: target.DocID, ErrorID: target.ID}
	if action == model.OCRActionRetry {
		req.ErrorID = ""
	}
	if action == model.OCRActionAcknowledge {
		req.DocID = ""
	}
	if err := req.Validate(); err != nil {
		m.info = theme.ErrorStyle.Render(err.Error())
		return m, nil
	}

	mut, ok := m.panel.Begin(target.ID, func(l model.OCRErrorList) model.OCRErrorList {
		for i := range l.Errors {
			if l.Errors[i].ID == target.ID {
				l.Errors[i].Status = actionStatus[action]
				if action == model.OCRActionRetry {
					l.Errors[i].RetryCount++
				}
			}
		}
		return l
	})
	if !ok {
		return m, nil
	}
	m.info = ""

	api := m.api
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := api.OCRAction(ctx, req)
		return ActionDoneMsg{Mutation: mut, Action: action, Err: err}
	}
}

func (m *Model) clampCursor() {
	n := len(m.panel.Value().Errors)
	m.cursor = max(min(m.cursor, n-1), 0)
}

// Bindings returns the keys this view reacts to.
func (m Model) Bindings() []key.Binding {
	return []key.Binding{m.keys.Retry, m.keys.Acknowledge, m.keys.Escalate, m.keys.Reload}
}

// View renders the triage view.
func (m Model) View() string {
	center := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center)

	switch m.panel.State() {
	case panel.Loading:
		return center.Foreground(theme.ColorGray).Render("Loading OCR errors...")
	case panel.Failed:
		return center.Render(theme.ErrorStyle.Render("Failed to load OCR errors") + "\n" +
			m.panel.Err().Error() + "\n\n" + theme.HelpStyle.Render("Press r to retry"))
	}

	list := m.panel.Value()
	sections := []string{renderStats(list.Stats), ""}

	if len(list.Errors) == 0 {
		sections = append(sections, theme.HelpStyle.Render("  No OCR errors. All documents recognized."))
	}
	for i, e := range list.Errors {
		sev := theme.SeverityStyle(string(e.Severity)).Render(fmt.Sprintf("%-8s", e.Severity))
		status := theme.OCRStatusStyle(e.Status).Render(fmt.Sprintf("%-12s", e.Status))
		code := e.ErrorCode
		if code == "" {
			code = "-"
		}
		line := fmt.Sprintf("%s %s %-16s %-14s %-40s retries %d",
			sev, status, truncate(e.DocID, 16), truncate(code, 14), truncate(e.Message, 40), e.RetryCount)
		if e.Confidence > 0 {
			line += fmt.Sprintf("  %.0f%%", e.Confidence*100)
		}
		if m.panel.InFlight(e.ID) {
			line += theme.HelpStyle.Render(" ⟳")
		}
		if i == m.cursor {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		sections = append(sections, line)
	}

	if n := m.panel.Notice(); n != "" {
		sections = append(sections, "", theme.ErrorStyle.Render("  Action reverted: "+n))
	}
	if m.info != "" {
		sections = append(sections, "", "  "+m.info)
	}
	return strings.Join(sections, "\n")
}

func renderStats(s model.OCRStats) string {
	label := lipgloss.NewStyle().Foreground(theme.ColorGray)

	var sev []string
	for _, v := range severityOrder {
		sev = append(sev, theme.SeverityStyle(string(v)).Render(fmt.Sprintf("%s %d", v, s.BySeverity[v])))
	}

	codes := make([]string, 0, len(s.ByErrorCode))
	for code := range s.ByErrorCode {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if s.ByErrorCode[codes[i]] != s.ByErrorCode[codes[j]] {
			return s.ByErrorCode[codes[i]] > s.ByErrorCode[codes[j]]
		}
		return codes[i] < codes[j]
	})
	var byCode []string
	for _, code := range codes {
		byCode = append(byCode, fmt.Sprintf("%s %d", code, s.ByErrorCode[code]))
	}

	lines := []string{
		fmt.Sprintf("  %s %d   %s %.1f", label.Render("Total"), s.Total, label.Render("Avg retries"), s.AvgRetryCount),
		"  " + label.Render("Severity ") + strings.Join(sev, "  "),
	}
	if len(byCode) > 0 {
		lines = append(lines, "  "+label.Render("Codes    ")+strings.Join(byCode, "  "))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
