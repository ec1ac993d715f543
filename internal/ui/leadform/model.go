// Package leadform captures a sales lead from the dashboard.
package leadform

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/theme"
	"github.com/nhle/docflow/internal/ui"
)

const (
	submitTimeout = 15 * time.Second
	leadSource    = "dashboard"
)

// Submitter posts a lead. *client.Client implements it.
type Submitter interface {
	SubmitLead(ctx context.Context, l model.Lead) (model.Lead, error)
}

// SubmittedMsg reports the outcome of a submission.
type SubmittedMsg struct {
	Lead model.Lead
	Err  error
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name    string
	email   string
	company string
	phone   string
	message string
}

// Model is the lead capture view.
type Model struct {
	api        Submitter
	keys       *keys.KeyMap
	form       *huh.Form
	fb         *formBindings
	submitting bool
	last       *SubmittedMsg
	width      int
	height     int
}

// New creates the lead form view.
func New(api Submitter, k *keys.KeyMap, width, height int) Model {
	return Model{
		api:    api,
		keys:   k,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start clears the fields and opens the form.
func (m *Model) Start() tea.Cmd {
	*m.fb = formBindings{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.fb.name).
				Validate(required("name")),
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Company").
				Placeholder("optional").
				Value(&m.fb.company),
			huh.NewInput().
				Title("Phone").
				Placeholder("optional").
				Value(&m.fb.phone),
			huh.NewText().
				Title("Message").
				Placeholder("optional").
				Value(&m.fb.message),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
	return m.form.Init()
}

// Editing reports whether the form has focus.
func (m Model) Editing() bool {
	return m.form != nil
}

// Idle reports whether nothing has been entered or sent yet.
func (m Model) Idle() bool {
	return m.form == nil && !m.submitting && m.last == nil
}

// Lead builds the lead from the current field values.
func (m Model) Lead() model.Lead {
	l := model.Lead{
		Name:    m.fb.name,
		Email:   m.fb.email,
		Company: m.fb.company,
		Phone:   m.fb.phone,
		Message: strings.TrimSpace(m.fb.message),
		Source:  leadSource,
	}
	l.Normalize()
	return l
}

// Update handles messages for the lead form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if res, ok := msg.(SubmittedMsg); ok {
		m.submitting = false
		m.last = &res
		return m, nil
	}

	if m.form == nil {
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Select) && !m.submitting {
			return m, m.Start()
		}
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		m.submitting = true
		m.last = nil
		return m, m.submit(m.Lead())
	case huh.StateAborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) submit(l model.Lead) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		saved, err := api.SubmitLead(ctx, l)
		return SubmittedMsg{Lead: saved, Err: err}
	}
}

// Bindings returns the keys this view reacts to.
func (m Model) Bindings() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "new lead")),
	}
}

// View renders the form or the submission result.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	title := titleStyle.Render("New Lead")

	var body string
	switch {
	case m.form != nil:
		body = m.form.View()
	case m.submitting:
		body = theme.HelpStyle.Render("Sending...")
	case m.last != nil && m.last.Err != nil:
		body = theme.ErrorStyle.Render("Lead was not saved: "+m.last.Err.Error()) +
			"\n\n" + theme.HelpStyle.Render("enter to try again")
	case m.last != nil:
		body = lipgloss.NewStyle().Foreground(theme.ColorGreen).
			Render("Lead saved for "+m.last.Lead.Name+" <"+m.last.Lead.Email+">") +
			"\n\n" + theme.HelpStyle.Render("enter for another lead")
	default:
		body = theme.HelpStyle.Render("enter to start")
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + body)
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func validateEmail(s string) error {
	if !model.ValidEmail(strings.TrimSpace(strings.ToLower(s))) {
		return errors.New("invalid email address")
	}
	return nil
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
