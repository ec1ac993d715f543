package roiview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/docflow/internal/keys"
	"github.com/nhle/docflow/internal/roi"
)

func TestCalculateFromFields(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.fb.minutes = "6,5"
	m.calculate()

	require.NoError(t, m.err)
	require.NotNil(t, m.result)
	want, err := roi.Calculate(roi.Input{Invoices: 500, MinutesPerDoc: 6.5, HourlyRate: 40, PackageCost: 299})
	require.NoError(t, err)
	assert.Equal(t, want, *m.result)
	assert.True(t, m.HasResult())
	assert.Contains(t, m.View(), "Savings / month")
}

func TestCalculateRejectsOutOfRangeInput(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.fb.invoices = "0"
	m.calculate()

	assert.Nil(t, m.result)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "invoices")
}

func TestStartOpensForm(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	assert.False(t, m.Editing())
	m.Start()
	assert.True(t, m.Editing())
	assert.Contains(t, m.View(), "Invoices per month")
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber(" 12,5 ")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, v, 1e-9)

	_, err = parseNumber("abc")
	assert.Error(t, err)
	assert.Error(t, validateNumber("  "))
}

func TestRenderResultWithoutPayback(t *testing.T) {
	out := RenderResult(roi.Result{MonthlySavings: -10})
	assert.Contains(t, out, "Payback")
	assert.Contains(t, out, "never")
}
