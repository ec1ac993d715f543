// Package customers is the customer management panel of the dashboard.
package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/client"
	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/panel"
	"github.com/nhle/docflow/internal/theme"
)

const (
	pageSize       = 100
	requestTimeout = 15 * time.Second
)

// API is the subset of the DocFlow client the view uses.
type API interface {
	ListCustomers(ctx context.Context, q client.CustomerQuery) ([]model.Customer, client.Pagination, error)
	UpdateCustomer(ctx context.Context, id string, patch model.CustomerPatch) (model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	ContactCustomer(ctx context.Context, id string, req model.ContactRequest) error
}

// LoadedMsg carries the result of a customer list load.
type LoadedMsg struct {
	Customers []model.Customer
	Total     int
	Err       error
}

// MutationDoneMsg reports the outcome of an optimistic change.
type MutationDoneMsg struct {
	Mutation panel.Mutation[[]model.Customer]
	Err      error
}

// ContactSentMsg reports the outcome of a contact request.
type ContactSentMsg struct {
	Name string
	Err  error
}

// Model is the customers view.
type Model struct {
	api     API
	keys    *keys.KeyMap
	panel   *panel.Panel[[]model.Customer]
	total   int
	cursor  int
	contact *contactForm
	info    string
	width   int
	height  int
}

// New creates the customers view.
func New(api API, k *keys.KeyMap, width, height int) Model {
	return Model{
		api:    api,
		keys:   k,
		panel:  panel.New(panel.CloneSlice[model.Customer]),
		width:  width,
		height: height,
	}
}

// Init loads the customer list.
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
		list, pg, err := api.ListCustomers(ctx, client.CustomerQuery{Limit: pageSize})
		return LoadedMsg{Customers: list, Total: pg.Total, Err: err}
	}
}

// Editing reports whether the contact form has focus.
func (m Model) Editing() bool {
	return m.contact != nil
}

// Update handles messages for the customers view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			m.panel.Failed(msg.Err)
			return m, nil
		}
		m.panel.Loaded(msg.Customers)
		m.total = msg.Total
		m.clampCursor()
		return m, nil

	case MutationDoneMsg:
		m.panel.Settle(msg.Mutation, msg.Err)
		m.clampCursor()
		return m, nil

	case ContactSentMsg:
		if msg.Err != nil {
			m.info = theme.ErrorStyle.Render("Contact request failed: " + msg.Err.Error())
		} else {
			m.info = "Contact request sent for " + msg.Name
		}
		return m, nil
	}

	if m.contact != nil {
		return m.updateContact(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.panel.Value())-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Reload):
		return m, m.Load()
	case key.Matches(keyMsg, m.keys.Retry):
		if m.panel.Retry() {
			return m, m.Load()
		}
	case key.Matches(keyMsg, m.keys.ToggleStatus):
		return m, m.toggleStatus()
	case key.Matches(keyMsg, m.keys.Delete):
		return m, m.deleteSelected()
	case key.Matches(keyMsg, m.keys.Contact):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.info = ""
		m.contact = newContactForm(c, m.width, m.height)
		return m, m.contact.form.Init()
	}
	return m, nil
}

func (m Model) updateContact(msg tea.Msg) (Model, tea.Cmd) {
	cmd := m.contact.update(msg)

	switch m.contact.form.State {
	case huh.StateCompleted:
		cf := m.contact
		m.contact = nil
		api := m.api
		req := cf.request()
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			err := api.ContactCustomer(ctx, cf.customer.ID, req)
			return ContactSentMsg{Name: cf.customer.Name, Err: err}
		}
	case huh.StateAborted:
		m.contact = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) selected() (model.Customer, bool) {
	list := m.panel.Value()
	if m.cursor < 0 || m.cursor >= len(list) {
		return model.Customer{}, false
	}
	return list[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.panel.Value())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// nextStatus flips active accounts to inactive and everything else to
// active.
func nextStatus(s model.CustomerStatus) model.CustomerStatus {
	if s == model.CustomerActive {
		return model.CustomerInactive
	}
	return model.CustomerActive
}

func (m Model) toggleStatus() tea.Cmd {
	c, ok := m.selected()
	if !ok {
		return nil
	}
	status := nextStatus(c.Status)
	patch := model.CustomerPatch{Status: &status}

	mut, ok := m.panel.Begin(c.ID, func(list []model.Customer) []model.Customer {
		for i := range list {
			if list[i].ID == c.ID {
				list[i] = patch.Apply(list[i])
			}
		}
		return list
	})
	if !ok {
		return nil
	}

	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := api.UpdateCustomer(ctx, c.ID, patch)
		return MutationDoneMsg{Mutation: mut, Err: err}
	}
}

func (m Model) deleteSelected() tea.Cmd {
	c, ok := m.selected()
	if !ok {
		return nil
	}

	mut, ok := m.panel.Begin(c.ID, func(list []model.Customer) []model.Customer {
		out := list[:0]
		for _, x := range list {
			if x.ID != c.ID {
				out = append(out, x)
			}
		}
		return out
	})
	if !ok {
		return nil
	}

	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return MutationDoneMsg{Mutation: mut, Err: api.DeleteCustomer(ctx, c.ID)}
	}
}

// Bindings returns the keys this view reacts to.
func (m Model) Bindings() []key.Binding {
	return []key.Binding{m.keys.ToggleStatus, m.keys.Delete, m.keys.Contact, m.keys.Reload, m.keys.Retry}
}

// View renders the customers view.
func (m Model) View() string {
	if m.contact != nil {
		title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1).
			Render("Contact " + m.contact.customer.Name)
		return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.contact.form.View())
	}

	center := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center)

	switch m.panel.State() {
	case panel.Loading:
		return center.Foreground(theme.ColorGray).Render("Loading customers...")
	case panel.Failed:
		return center.Render(theme.ErrorStyle.Render("Failed to load customers") + "\n" +
			m.panel.Err().Error() + "\n\n" + theme.HelpStyle.Render("Press r to retry"))
	}

	list := m.panel.Value()
	if len(list) == 0 {
		return center.Foreground(theme.ColorGray).Render("No customers yet.")
	}

	var rows []string
	header := fmt.Sprintf("%-24s %-22s %-28s %-11s %-10s %10s %8s",
		"Name", "Company", "Email", "Status", "Plan", "€/month", "Docs")
	rows = append(rows, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGray).PaddingLeft(2).Render(header))

	for i, c := range list {
		status := theme.CustomerStatusStyle(string(c.Status)).Render(fmt.Sprintf("%-9s", c.Status))
		line := fmt.Sprintf("%-24s %-22s %-28s %s %-10s %10.2f %8d",
			truncate(c.Name, 24), truncate(c.Company, 22), truncate(c.Email, 28),
			status, c.Plan, c.MonthlyValue, c.DocumentsProcessed)
		if m.panel.InFlight(c.ID) {
			line += theme.HelpStyle.Render(" ⟳")
		}
		if i == m.cursor {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		rows = append(rows, line)
	}

	footer := theme.HelpStyle.Render(fmt.Sprintf("  %d of %d customers", len(list), max(m.total, len(list))))
	rows = append(rows, "", footer)

	if n := m.panel.Notice(); n != "" {
		rows = append(rows, theme.ErrorStyle.Render("  Change reverted: "+n))
	}
	if m.info != "" {
		rows = append(rows, "  "+m.info)
	}

	return strings.Join(rows, "\n")
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
