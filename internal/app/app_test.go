package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/docflow/internal/activity"
	"github.com/nhle/docflow/internal/client"
	"github.com/nhle/docflow/internal/feed"
	"github.com/nhle/docflow/internal/logging"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/ui/command"
	"github.com/nhle/docflow/internal/ui/customers"
)

type fakeFeed struct {
	updates  chan struct{}
	started  bool
	closed   bool
	connects int
}

func (f *fakeFeed) Activities() []model.Activity { return nil }
func (f *fakeFeed) Status() feed.Status          { return feed.StatusConnected }
func (f *fakeFeed) Attempts() int                { return 0 }
func (f *fakeFeed) ConnErr() error               { return nil }
func (f *fakeFeed) LoadErr() error               { return nil }
func (f *fakeFeed) Updates() <-chan struct{}     { return f.updates }
func (f *fakeFeed) Reload(context.Context) error { return nil }
func (f *fakeFeed) Connect(context.Context)      { f.connects++ }
func (f *fakeFeed) Start(context.Context)        { f.started = true }
func (f *fakeFeed) Close()                       { f.closed = true }

type fakeAPI struct{}

func (fakeAPI) ListCustomers(context.Context, client.CustomerQuery) ([]model.Customer, client.Pagination, error) {
	return []model.Customer{{ID: "c1", Name: "Ada", Status: model.CustomerActive}}, client.Pagination{Total: 1}, nil
}
func (fakeAPI) UpdateCustomer(context.Context, string, model.CustomerPatch) (model.Customer, error) {
	return model.Customer{}, nil
}
func (fakeAPI) DeleteCustomer(context.Context, string) error { return nil }
func (fakeAPI) ContactCustomer(context.Context, string, model.ContactRequest) error {
	return nil
}
func (fakeAPI) ListOCRErrors(context.Context) (model.OCRErrorList, error) {
	return model.OCRErrorList{}, nil
}
func (fakeAPI) OCRAction(context.Context, model.OCRActionRequest) (model.Activity, error) {
	return model.Activity{}, nil
}
func (fakeAPI) SubmitLead(_ context.Context, l model.Lead) (model.Lead, error) { return l, nil }

func newTestModel(t *testing.T) (Model, *fakeFeed) {
	t.Helper()
	f := &fakeFeed{updates: make(chan struct{}, 1)}
	m := New(Options{Feed: f, API: fakeAPI{}, Lang: activity.EN, Tenant: "acme", Logger: logging.Discard()})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return next.(Model), f
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestTabCyclesViews(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, ViewFeed, m.currentView)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ViewCustomers, m.currentView)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ViewOCR, m.currentView)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, ViewLead, m.currentView)
	assert.True(t, m.leadView.Editing())
}

func TestHelpToggles(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewFeed, m.currentView)
}

func TestCommandPaletteSwitchesView(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{':'}})
	assert.Equal(t, ViewCommand, m.currentView)

	// Letters go to the palette, not to the global bindings.
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Equal(t, ViewCommand, m.currentView)

	m, _ = send(t, m, command.CommandMsg{Name: "roi"})
	assert.Equal(t, ViewROI, m.currentView)
	assert.True(t, m.roiView.Editing())
}

func TestReconnectCommand(t *testing.T) {
	m, f := newTestModel(t)
	m.previousView = ViewFeed
	_, cmd := send(t, m, command.CommandMsg{Name: "reconnect"})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, f.connects)
}

func TestBackgroundResultsReachInactiveViews(t *testing.T) {
	m, _ := newTestModel(t)
	require.Equal(t, ViewFeed, m.currentView)

	list, _, _ := fakeAPI{}.ListCustomers(context.Background(), client.CustomerQuery{})
	m, _ = send(t, m, customers.LoadedMsg{Customers: list, Total: 1})

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, m.View(), "Ada")
}

func TestLangToggle(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Contains(t, m.View(), "Customers")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'L'}})
	assert.Equal(t, activity.FI, m.lang)
	assert.Contains(t, m.View(), "Asiakkaat")
}

func TestQuitClosesFeed(t *testing.T) {
	m, f := newTestModel(t)
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.True(t, f.closed)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
