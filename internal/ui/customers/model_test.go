package customers

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/docflow/internal/client"
	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/panel"
)

type fakeAPI struct {
	mu         sync.Mutex
	list       []model.Customer
	listErr    error
	updateErr  error
	deleteErr  error
	contactErr error
	patches    []model.CustomerPatch
	deleted    []string
	contacts   []model.ContactRequest
}

func (f *fakeAPI) ListCustomers(_ context.Context, _ client.CustomerQuery) ([]model.Customer, client.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, client.Pagination{}, f.listErr
	}
	out := make([]model.Customer, len(f.list))
	copy(out, f.list)
	return out, client.Pagination{Total: len(out)}, nil
}

func (f *fakeAPI) UpdateCustomer(_ context.Context, _ string, patch model.CustomerPatch) (model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return model.Customer{}, f.updateErr
}

func (f *fakeAPI) DeleteCustomer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeAPI) ContactCustomer(_ context.Context, _ string, req model.ContactRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, req)
	return f.contactErr
}

func press(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func seedCustomers() []model.Customer {
	return []model.Customer{
		{ID: "c1", Name: "Ada Virtanen", Email: "ada@acme.fi", Company: "Acme", Status: model.CustomerActive, Plan: model.PlanPro},
		{ID: "c2", Name: "Bo Niemi", Email: "bo@globex.fi", Company: "Globex", Status: model.CustomerTrial, Plan: model.PlanFree},
	}
}

func loaded(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	m := New(api, keys.DefaultKeyMap(), 160, 40)
	m, _ = m.Update(m.Init()())
	require.Equal(t, panel.Ready, m.panel.State())
	return m
}

func TestLoadFailureThenRetry(t *testing.T) {
	api := &fakeAPI{list: seedCustomers(), listErr: errors.New("connection refused")}
	m := New(api, keys.DefaultKeyMap(), 160, 40)

	m, _ = m.Update(m.Init()())
	assert.Equal(t, panel.Failed, m.panel.State())
	assert.Contains(t, m.View(), "Failed to load customers")
	assert.Contains(t, m.View(), "connection refused")

	api.listErr = nil
	m, cmd := m.Update(press('r'))
	require.NotNil(t, cmd)
	assert.Equal(t, panel.Loading, m.panel.State())

	m, _ = m.Update(cmd())
	assert.Equal(t, panel.Ready, m.panel.State())
	assert.Len(t, m.panel.Value(), 2)
	assert.Contains(t, m.View(), "Ada Virtanen")
}

func TestToggleStatusIsOptimistic(t *testing.T) {
	api := &fakeAPI{list: seedCustomers()}
	m := loaded(t, api)

	m, cmd := m.Update(press('s'))
	require.NotNil(t, cmd)
	assert.Equal(t, model.CustomerInactive, m.panel.Value()[0].Status)
	assert.True(t, m.panel.InFlight("c1"))

	// A second change on the same customer waits for the first.
	_, again := m.Update(press('s'))
	assert.Nil(t, again)

	m, _ = m.Update(cmd())
	assert.False(t, m.panel.InFlight("c1"))
	assert.Equal(t, model.CustomerInactive, m.panel.Value()[0].Status)
	require.Len(t, api.patches, 1)
	assert.Equal(t, model.CustomerInactive, *api.patches[0].Status)
	assert.Empty(t, m.panel.Notice())
}

func TestToggleStatusRollsBackOnFailure(t *testing.T) {
	api := &fakeAPI{list: seedCustomers(), updateErr: errors.New("server exploded")}
	m := loaded(t, api)

	m, _ = m.Update(press('j'))
	m, cmd := m.Update(press('s'))
	require.NotNil(t, cmd)
	assert.Equal(t, model.CustomerActive, m.panel.Value()[1].Status)

	m, _ = m.Update(cmd())
	assert.Equal(t, model.CustomerTrial, m.panel.Value()[1].Status)
	assert.Equal(t, "server exploded", m.panel.Notice())
	assert.Contains(t, m.View(), "Change reverted: server exploded")
}

func TestDeleteRemovesRowAndRestoresOnFailure(t *testing.T) {
	api := &fakeAPI{list: seedCustomers(), deleteErr: errors.New("forbidden")}
	m := loaded(t, api)

	m, cmd := m.Update(press('d'))
	require.NotNil(t, cmd)
	require.Len(t, m.panel.Value(), 1)
	assert.Equal(t, "c2", m.panel.Value()[0].ID)

	m, _ = m.Update(cmd())
	assert.Len(t, m.panel.Value(), 2)
	assert.Equal(t, []string{"c1"}, api.deleted)
}

func TestDeleteLastRowMovesCursor(t *testing.T) {
	api := &fakeAPI{list: seedCustomers()}
	m := loaded(t, api)

	m, _ = m.Update(press('j'))
	m, cmd := m.Update(press('d'))
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.Equal(t, 0, m.cursor)
	c, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "c1", c.ID)
}

func TestContactFormOpensForSelectedCustomer(t *testing.T) {
	api := &fakeAPI{list: seedCustomers()}
	m := loaded(t, api)

	m, _ = m.Update(press('c'))
	require.True(t, m.Editing())
	assert.Equal(t, "ada@acme.fi", m.contact.fb.email)
	assert.Contains(t, m.View(), "Contact Ada Virtanen")

	m.contact = nil
	m, _ = m.Update(ContactSentMsg{Name: "Ada Virtanen"})
	assert.Contains(t, m.View(), "Contact request sent for Ada Virtanen")
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, model.CustomerInactive, nextStatus(model.CustomerActive))
	assert.Equal(t, model.CustomerActive, nextStatus(model.CustomerInactive))
	assert.Equal(t, model.CustomerActive, nextStatus(model.CustomerTrial))
	assert.Equal(t, model.CustomerActive, nextStatus(model.CustomerSuspended))
}
