package panel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID     string
	Status string
}

func setStatus(id, status string) func([]row) []row {
	return func(rows []row) []row {
		for i := range rows {
			if rows[i].ID == id {
				rows[i].Status = status
			}
		}
		return rows
	}
}

func loadedPanel() *Panel[[]row] {
	p := New(CloneSlice[row])
	p.Loaded([]row{{"c1", "active"}, {"c2", "trial"}})
	return p
}

func TestLoadLifecycle(t *testing.T) {
	p := New[[]row](nil)
	assert.Equal(t, Loading, p.State())

	p.Failed(errors.New("boom"))
	assert.Equal(t, Failed, p.State())
	assert.EqualError(t, p.Err(), "boom")

	require.True(t, p.Retry())
	assert.Equal(t, Loading, p.State())
	assert.NoError(t, p.Err())
	assert.False(t, p.Retry(), "retry only from error")

	p.Loaded([]row{{"c1", "active"}})
	assert.Equal(t, Ready, p.State())
	assert.Equal(t, "ready", p.State().String())
}

func TestOptimisticSuccessKeepsLocalState(t *testing.T) {
	p := loadedPanel()

	m, ok := p.Begin("c1", setStatus("c1", "suspended"))
	require.True(t, ok)
	assert.Equal(t, "suspended", p.Value()[0].Status, "applied immediately")
	assert.True(t, p.InFlight("c1"))

	p.Settle(m, nil)
	assert.Equal(t, "suspended", p.Value()[0].Status)
	assert.False(t, p.InFlight("c1"))
	assert.Empty(t, p.Notice())
}

func TestOptimisticFailureRestoresSnapshot(t *testing.T) {
	p := loadedPanel()
	before := p.Value()

	m, ok := p.Begin("c1", setStatus("c1", "suspended"))
	require.True(t, ok)
	p.Settle(m, errors.New("Forbidden"))

	assert.Equal(t, before, p.Value())
	assert.Equal(t, "Forbidden", p.Notice())
	assert.False(t, p.Mutating())
}

func TestSnapshotIsIsolatedFromApply(t *testing.T) {
	p := loadedPanel()
	m, ok := p.Begin("c2", func(rows []row) []row {
		rows[1].Status = "mutated in place"
		return rows
	})
	require.True(t, ok)
	p.Settle(m, errors.New("nope"))
	assert.Equal(t, "trial", p.Value()[1].Status)
}

func TestSameKeyIsNotReentrant(t *testing.T) {
	p := loadedPanel()

	first, ok := p.Begin("c1", setStatus("c1", "inactive"))
	require.True(t, ok)

	_, ok = p.Begin("c1", setStatus("c1", "active"))
	assert.False(t, ok)
	assert.Equal(t, "inactive", p.Value()[0].Status, "second action is a no-op")

	other, ok := p.Begin("c2", setStatus("c2", "active"))
	require.True(t, ok, "other keys proceed")

	p.Settle(first, nil)
	p.Settle(other, nil)
	_, ok = p.Begin("c1", setStatus("c1", "active"))
	assert.True(t, ok)
}

func TestBeginRequiresReady(t *testing.T) {
	p := New(CloneSlice[row])
	_, ok := p.Begin("c1", setStatus("c1", "x"))
	assert.False(t, ok)
}

func TestFailureAfterReloadKeepsFreshValue(t *testing.T) {
	p := loadedPanel()

	m, ok := p.Begin("c1", setStatus("c1", "suspended"))
	require.True(t, ok)

	p.Loaded([]row{{"c1", "active"}, {"c2", "active"}, {"c3", "trial"}})
	assert.Equal(t, "suspended", p.Value()[0].Status, "pending change replayed over the reload")
	require.Len(t, p.Value(), 3)

	p.Settle(m, errors.New("Forbidden"))
	assert.Equal(t, []row{{"c1", "active"}, {"c2", "active"}, {"c3", "trial"}}, p.Value())
	assert.Equal(t, "Forbidden", p.Notice())
}

func TestFailuresOnlyWithdrawTheirOwnChange(t *testing.T) {
	p := loadedPanel()

	a, ok := p.Begin("c1", setStatus("c1", "inactive"))
	require.True(t, ok)
	b, ok := p.Begin("c2", setStatus("c2", "active"))
	require.True(t, ok)

	p.Settle(a, errors.New("first failed"))
	assert.Equal(t, []row{{"c1", "active"}, {"c2", "active"}}, p.Value())

	p.Settle(b, errors.New("second failed"))
	assert.Equal(t, []row{{"c1", "active"}, {"c2", "trial"}}, p.Value())
	assert.Equal(t, "second failed", p.Notice())
}

func TestSuccessSurvivesLaterFailure(t *testing.T) {
	p := loadedPanel()

	a, ok := p.Begin("c1", setStatus("c1", "inactive"))
	require.True(t, ok)
	b, ok := p.Begin("c2", setStatus("c2", "active"))
	require.True(t, ok)

	p.Settle(b, nil)
	p.Settle(a, errors.New("nope"))
	assert.Equal(t, []row{{"c1", "active"}, {"c2", "active"}}, p.Value())
}
