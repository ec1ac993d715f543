package app

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/docflow/internal/activity"
	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/ui"
	"github.com/nhle/docflow/internal/ui/command"
	"github.com/nhle/docflow/internal/ui/customers"
	"github.com/nhle/docflow/internal/ui/detail"
	"github.com/nhle/docflow/internal/ui/feedview"
	helpview "github.com/nhle/docflow/internal/ui/help"
	"github.com/nhle/docflow/internal/ui/leadform"
	"github.com/nhle/docflow/internal/ui/ocrtriage"
	"github.com/nhle/docflow/internal/ui/roiview"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewFeed ViewState = iota
	ViewCustomers
	ViewOCR
	ViewROI
	ViewLead
	ViewDetail
	ViewHelp
	ViewCommand
)

// tabs are the views cycled with tab, in order.
var tabs = []ViewState{ViewFeed, ViewCustomers, ViewOCR, ViewROI, ViewLead}

var tabNames = map[activity.Lang][]string{
	activity.FI: {"Tapahtumat", "Asiakkaat", "OCR-virheet", "ROI", "Liidi"},
	activity.EN: {"Activity", "Customers", "OCR errors", "ROI", "Lead"},
}

// Feed is the live activity feed driving the first tab. *feed.Feed
// implements it.
type Feed interface {
	feedview.Source
	Start(ctx context.Context)
	Close()
}

// API is the DocFlow client surface used by the panels. *client.Client
// implements it.
type API interface {
	customers.API
	ocrtriage.API
	leadform.Submitter
}

// Options configures the dashboard.
type Options struct {
	Feed   Feed
	API    API
	Lang   activity.Lang
	Tenant string
	Logger *slog.Logger
}

// Model is the root Bubble Tea model that manages view routing and
// layout.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	feed         Feed
	lang         activity.Lang
	tenant       string
	log          *slog.Logger

	feedView     feedview.Model
	detail       detail.Model
	customerView customers.Model
	ocrView      ocrtriage.Model
	roiView      roiview.Model
	leadView     leadform.Model
	helpView     helpview.Model
	commandView  command.Model

	ready bool
}

// New creates the root model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	lang := opts.Lang
	if lang == "" {
		lang = activity.FI
	}

	return Model{
		currentView:  ViewFeed,
		keys:         k,
		feed:         opts.Feed,
		lang:         lang,
		tenant:       opts.Tenant,
		log:          log,
		feedView:     feedview.New(opts.Feed, k, lang, 80, 24),
		detail:       detail.New(k, 80, 24),
		customerView: customers.New(opts.API, k, 80, 24),
		ocrView:      ocrtriage.New(opts.API, k, 80, 24),
		roiView:      roiview.New(k, 80, 24),
		leadView:     leadform.New(opts.API, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
	}
}

// Init starts the feed and loads the data-backed panels.
func (m Model) Init() tea.Cmd {
	f := m.feed
	return tea.Batch(
		func() tea.Msg {
			f.Start(context.Background())
			return nil
		},
		m.feedView.Init(),
		m.customerView.Init(),
		m.ocrView.Init(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.feedView.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.customerView.SetSize(w, h)
		m.ocrView.SetSize(w, h)
		m.roiView.SetSize(w, h)
		m.leadView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	// Background results go to their owning view whichever is active.
	case feedview.UpdatedMsg, feedview.ReloadedMsg:
		m.feedView, cmd = m.feedView.Update(msg)
		if r, ok := msg.(feedview.ReloadedMsg); ok && r.Err != nil {
			m.log.Warn("feed reload failed", "error", r.Err)
		}
		return m, cmd

	case customers.LoadedMsg, customers.MutationDoneMsg, customers.ContactSentMsg:
		m.logResult("customers", msg)
		m.customerView, cmd = m.customerView.Update(msg)
		return m, cmd

	case ocrtriage.LoadedMsg, ocrtriage.ActionDoneMsg:
		m.logResult("ocr", msg)
		m.ocrView, cmd = m.ocrView.Update(msg)
		return m, cmd

	case leadform.SubmittedMsg:
		m.logResult("lead", msg)
		m.leadView, cmd = m.leadView.Update(msg)
		return m, cmd

	case feedview.SelectedActivityMsg:
		m.detail.SetActivity(msg.Activity, m.lang)
		m.previousView = m.currentView
		m.currentView = ViewDetail
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewFeed
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if m.capturesKeys() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, m.quit()

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.helpView.SetView(m.viewName(m.currentView), m.viewBindings(m.currentView))
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command):
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case key.Matches(msg, m.keys.NextView):
			return m, m.switchTo(m.cycle(1))

		case key.Matches(msg, m.keys.PrevView):
			return m, m.switchTo(m.cycle(-1))

		case key.Matches(msg, m.keys.Lang):
			return m, m.setLang(toggleLang(m.lang))

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesKeys reports whether the active view consumes every key, as
// forms and the command palette do.
func (m Model) capturesKeys() bool {
	switch m.currentView {
	case ViewCommand:
		return true
	case ViewCustomers:
		return m.customerView.Editing()
	case ViewROI:
		return m.roiView.Editing()
	case ViewLead:
		return m.leadView.Editing()
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewFeed:
		m.feedView, cmd = m.feedView.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewCustomers:
		m.customerView, cmd = m.customerView.Update(msg)
	case ViewOCR:
		m.ocrView, cmd = m.ocrView.Update(msg)
	case ViewROI:
		m.roiView, cmd = m.roiView.Update(msg)
	case ViewLead:
		m.leadView, cmd = m.leadView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// cycle returns the tab delta steps away from the current one. Overlays
// cycle from the view they were opened on.
func (m Model) cycle(delta int) ViewState {
	cur := m.currentView
	if m.activeTab() < 0 {
		cur = ViewFeed
	}
	idx := 0
	for i, v := range tabs {
		if v == cur {
			idx = i
		}
	}
	n := len(tabs)
	return tabs[((idx+delta)%n+n)%n]
}

// activeTab is the index of the highlighted tab, or -1 for overlays
// other than the activity detail.
func (m Model) activeTab() int {
	cur := m.currentView
	if cur == ViewDetail {
		cur = ViewFeed
	}
	for i, v := range tabs {
		if v == cur {
			return i
		}
	}
	return -1
}

// switchTo activates a tab, opening forms that have nothing to show yet.
func (m *Model) switchTo(v ViewState) tea.Cmd {
	m.currentView = v
	switch v {
	case ViewROI:
		if !m.roiView.Editing() && !m.roiView.HasResult() {
			return m.roiView.Start()
		}
	case ViewLead:
		if m.leadView.Idle() {
			return m.leadView.Start()
		}
	}
	return nil
}

func (m *Model) reloadCurrent() tea.Cmd {
	switch m.currentView {
	case ViewFeed, ViewDetail:
		return m.feedView.Retry()
	case ViewCustomers:
		return m.customerView.Load()
	case ViewOCR:
		return m.ocrView.Load()
	}
	return nil
}

func (m *Model) setLang(lang activity.Lang) tea.Cmd {
	m.lang = lang
	return m.feedView.SetLang(lang)
}

func toggleLang(l activity.Lang) activity.Lang {
	if l == activity.EN {
		return activity.FI
	}
	return activity.EN
}

func (m *Model) quit() tea.Cmd {
	if m.feed != nil {
		m.feed.Close()
	}
	return tea.Quit
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	m.log.Debug("command", "name", c.Name, "args", c.Args)
	switch c.Name {
	case "feed", "activity":
		return m.switchTo(ViewFeed)
	case "customers":
		return m.switchTo(ViewCustomers)
	case "ocr":
		return m.switchTo(ViewOCR)
	case "roi":
		return m.switchTo(ViewROI)
	case "lead":
		m.currentView = ViewLead
		return m.leadView.Start()
	case "reload", "refresh":
		return m.reloadCurrent()
	case "reconnect":
		f := m.feed
		return func() tea.Msg {
			f.Connect(context.Background())
			return nil
		}
	case "lang":
		if len(c.Args) == 1 {
			return m.setLang(activity.ParseLang(c.Args[0]))
		}
		return m.setLang(toggleLang(m.lang))
	case "help":
		m.helpView.SetView(m.viewName(m.currentView), m.viewBindings(m.currentView))
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case "quit", "q":
		return m.quit()
	default:
		m.log.Info("unknown command", "name", c.Name)
		return nil
	}
}

func (m Model) logResult(panel string, msg tea.Msg) {
	var err error
	switch msg := msg.(type) {
	case customers.LoadedMsg:
		err = msg.Err
	case customers.MutationDoneMsg:
		err = msg.Err
	case customers.ContactSentMsg:
		err = msg.Err
	case ocrtriage.LoadedMsg:
		err = msg.Err
	case ocrtriage.ActionDoneMsg:
		err = msg.Err
	case leadform.SubmittedMsg:
		err = msg.Err
	}
	if err != nil {
		m.log.Warn("panel request failed", "panel", panel, "error", err)
	}
}

func (m Model) viewName(v ViewState) string {
	names := tabNames[m.lang]
	switch v {
	case ViewDetail:
		return names[0]
	case ViewHelp, ViewCommand:
		return ""
	}
	for i, t := range tabs {
		if t == v {
			return names[i]
		}
	}
	return ""
}

func (m Model) viewBindings(v ViewState) []key.Binding {
	switch v {
	case ViewFeed:
		return m.feedView.Bindings()
	case ViewDetail:
		return []key.Binding{m.keys.Back}
	case ViewCustomers:
		return m.customerView.Bindings()
	case ViewOCR:
		return m.ocrView.Bindings()
	case ViewROI:
		return m.roiView.Bindings()
	case ViewLead:
		return m.leadView.Bindings()
	}
	return nil
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "DocFlow"
	if m.tenant != "" {
		title += " · " + m.tenant
	}
	header := m.layout.RenderHeader(title, feedview.Indicator(m.feed.Status(), m.lang))
	tabsRow := m.layout.RenderTabs(tabNames[m.lang], m.activeTab())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, tabsRow, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewFeed:
		return m.feedView.View()
	case ViewDetail:
		return m.detail.View()
	case ViewCustomers:
		return m.customerView.View()
	case ViewOCR:
		return m.ocrView.View()
	case ViewROI:
		return m.roiView.View()
	case ViewLead:
		return m.leadView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | j/k scroll"
	case ViewCustomers:
		if m.customerView.Editing() {
			return "enter submit | esc cancel"
		}
		return "s status | d delete | c contact | R reload | tab next view | q quit"
	case ViewOCR:
		return "r retry | a acknowledge | e escalate | R reload | tab next view | q quit"
	case ViewROI, ViewLead:
		if m.capturesKeys() {
			return "enter submit | esc cancel"
		}
		return "enter edit | tab next view | q quit"
	default:
		return "enter detail | r retry | : command | ? help | L fi/en | tab next view | q quit"
	}
}
