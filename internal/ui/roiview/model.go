// Package roiview is the savings calculator panel of the dashboard.
package roiview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/roi"
	"github.com/nhle/docflow/internal/theme"
	"github.com/nhle/docflow/internal/ui"
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	invoices    string
	minutes     string
	hourlyRate  string
	packageCost string
}

// Model is the ROI calculator view.
type Model struct {
	keys   *keys.KeyMap
	form   *huh.Form
	fb     *formBindings
	result *roi.Result
	err    error
	width  int
	height int
}

// New creates the ROI view with typical starting values.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys: k,
		fb: &formBindings{
			invoices:    "500",
			minutes:     "6",
			hourlyRate:  "40",
			packageCost: "299",
		},
		width:  width,
		height: height,
	}
}

// Start (re)opens the input form, keeping the previous values.
func (m *Model) Start() tea.Cmd {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Invoices per month").
				Value(&m.fb.invoices).
				Validate(validateNumber),
			huh.NewInput().
				Title("Minutes per invoice").
				Value(&m.fb.minutes).
				Validate(validateNumber),
			huh.NewInput().
				Title("Hourly rate (€)").
				Value(&m.fb.hourlyRate).
				Validate(validateNumber),
			huh.NewInput().
				Title("DocFlow package (€/month)").
				Value(&m.fb.packageCost).
				Validate(validateNumber),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
	return m.form.Init()
}

// Editing reports whether the form has focus.
func (m Model) Editing() bool {
	return m.form != nil
}

// HasResult reports whether a calculation has been shown.
func (m Model) HasResult() bool {
	return m.result != nil || m.err != nil
}

// Update handles messages for the ROI view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		if k, ok := msg.(tea.KeyMsg); ok && (key.Matches(k, m.keys.Select) || key.Matches(k, m.keys.Reload)) {
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
		m.calculate()
		return m, nil
	case huh.StateAborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m *Model) calculate() {
	in, err := m.input()
	if err != nil {
		m.result, m.err = nil, err
		return
	}
	res, err := roi.Calculate(in)
	if err != nil {
		m.result, m.err = nil, err
		return
	}
	m.result, m.err = &res, nil
}

func (m Model) input() (roi.Input, error) {
	var in roi.Input
	var err error
	parse := func(s string) float64 {
		v, perr := parseNumber(s)
		if perr != nil && err == nil {
			err = perr
		}
		return v
	}
	in.Invoices = parse(m.fb.invoices)
	in.MinutesPerDoc = parse(m.fb.minutes)
	in.HourlyRate = parse(m.fb.hourlyRate)
	in.PackageCost = parse(m.fb.packageCost)
	return in, err
}

// Bindings returns the keys this view reacts to.
func (m Model) Bindings() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit inputs")),
	}
}

// View renders the form or the last result.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	if m.form != nil {
		return lipgloss.NewStyle().Padding(1, 2).
			Render(titleStyle.Render("ROI Calculator") + "\n" + m.form.View())
	}

	var body string
	switch {
	case m.err != nil:
		body = theme.ErrorStyle.Render(m.err.Error())
	case m.result != nil:
		body = RenderResult(*m.result)
	}
	hint := theme.HelpStyle.Render("enter to edit inputs")
	return lipgloss.NewStyle().Padding(1, 2).
		Render(titleStyle.Render("ROI Calculator") + "\n" + body + "\n\n" + hint)
}

// RenderResult formats a calculation as a two-column table.
func RenderResult(r roi.Result) string {
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(26)
	rows := []struct{ k, v string }{
		{"Manual hours / month", fmt.Sprintf("%.1f h", r.MonthlyHours)},
		{"Manual cost / month", fmt.Sprintf("%.2f €", r.MonthlyCost)},
		{"DocFlow hours / month", fmt.Sprintf("%.1f h", r.DocFlowHours)},
		{"DocFlow cost / month", fmt.Sprintf("%.2f €", r.DocFlowCost)},
		{"Savings / month", fmt.Sprintf("%.2f €", r.MonthlySavings)},
		{"Savings / year", fmt.Sprintf("%.2f €", r.YearlySavings)},
		{"Work days freed / year", strconv.Itoa(r.WorkDaysPerYear)},
	}
	payback := "never"
	if r.PaybackDays != nil {
		payback = fmt.Sprintf("%d days", *r.PaybackDays)
	}
	rows = append(rows, struct{ k, v string }{"Payback", payback})

	lines := make([]string, len(rows))
	for i, row := range rows {
		val := row.v
		if row.k == "Savings / month" || row.k == "Savings / year" {
			style := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
			if r.MonthlySavings <= 0 {
				style = style.Foreground(theme.ColorRed)
			}
			val = style.Render(val)
		}
		lines[i] = label.Render(row.k) + val
	}
	return strings.Join(lines, "\n")
}

// parseNumber accepts a decimal comma as well as a point.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func validateNumber(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	_, err := parseNumber(s)
	return err
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
