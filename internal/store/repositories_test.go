package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/store"
	"github.com/nhle/docflow/internal/testutil"
)

func TestActivityStore(t *testing.T) {
	db := testutil.NewTestStore(t)
	activities := store.NewActivityStore(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	up, err := activities.Create(ctx, tenantA, model.Activity{
		Type:      model.ActivityUpload,
		Action:    "upload",
		Details:   model.Details{Filename: "invoice.pdf", FileSize: 2048, Extra: map[string]any{"source": "mail"}},
		Timestamp: base,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, up.ID)
	assert.Equal(t, model.StatusSuccess, up.Status)
	assert.Equal(t, "tenant-a", up.TenantID)

	_, err = activities.Create(ctx, tenantA, model.Activity{
		Type:      model.ActivityOCRFailed,
		Status:    model.StatusFailed,
		Details:   model.Details{ErrorCode: "OCR_TIMEOUT", DocID: "doc-1"},
		Timestamp: base.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = activities.Create(ctx, tenantA, model.Activity{
		Type:      "something_new",
		Timestamp: base.Add(2 * time.Minute),
	})
	require.NoError(t, err)

	_, err = activities.Create(ctx, tenantB, model.Activity{Type: model.ActivityUpload, Timestamp: base})
	require.NoError(t, err)

	t.Run("recent is newest first and tenant scoped", func(t *testing.T) {
		got, res, err := activities.Recent(ctx, tenantA, store.PageRequest{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		require.Len(t, got, 3)
		assert.Equal(t, model.ActivityUnknown, got[0].Type)
		assert.Equal(t, model.ActivityOCRFailed, got[1].Type)
		assert.Equal(t, model.ActivityUpload, got[2].Type)
	})

	t.Run("details round trip", func(t *testing.T) {
		got, err := activities.Get(ctx, tenantA, up.ID)
		require.NoError(t, err)
		assert.Equal(t, "invoice.pdf", got.Details.Filename)
		assert.Equal(t, int64(2048), got.Details.FileSize)
		assert.Equal(t, "mail", got.Details.Extra["source"])
		assert.True(t, base.Equal(got.Timestamp))
	})

	t.Run("by types", func(t *testing.T) {
		got, err := activities.ByTypes(ctx, tenantA, []model.ActivityType{model.ActivityOCRFailed, model.ActivityError}, 200)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "doc-1", got[0].Details.DocID)
	})

	t.Run("other tenant cannot read", func(t *testing.T) {
		_, err := activities.Get(ctx, tenantB, up.ID)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("duplicate client id is a validation error", func(t *testing.T) {
		_, err := activities.Create(ctx, tenantA, model.Activity{ID: up.ID, Type: model.ActivityUpload})
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "id", verr.Fields[0].Field)

		_, err = activities.Create(ctx, tenantB, model.Activity{ID: up.ID, Type: model.ActivityUpload})
		require.NoError(t, err)
	})
}

func TestCustomerStore(t *testing.T) {
	db := testutil.NewTestStore(t)
	customers := store.NewCustomerStore(db)
	ctx := context.Background()

	acme, err := customers.Create(ctx, tenantA, model.Customer{
		Name: "Aino", Email: "aino@acme.fi", Company: "Acme Oy", Plan: model.PlanPro, MonthlyValue: 149,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CustomerTrial, acme.Status)
	assert.Equal(t, "tenant-a", acme.TenantID)

	_, err = customers.Create(ctx, tenantA, model.Customer{
		Name: "Eero", Email: "eero@beta.fi", Status: model.CustomerActive, Plan: model.PlanBasic,
	})
	require.NoError(t, err)

	t.Run("create validates", func(t *testing.T) {
		_, err := customers.Create(ctx, tenantA, model.Customer{Email: "nope", Plan: "gold"})
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 3)
	})

	t.Run("list filters", func(t *testing.T) {
		got, res, err := customers.List(ctx, tenantA, store.CustomerFilter{Status: model.CustomerActive}, store.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		require.Len(t, got, 1)
		assert.Equal(t, "Eero", got[0].Name)

		got, _, err = customers.List(ctx, tenantA, store.CustomerFilter{Plan: model.PlanPro}, store.PageRequest{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Aino", got[0].Name)
	})

	t.Run("update", func(t *testing.T) {
		status := model.CustomerSuspended
		got, err := customers.Update(ctx, tenantA, acme.ID, model.CustomerPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, model.CustomerSuspended, got.Status)
		assert.Equal(t, "Aino", got.Name)

		reloaded, err := customers.Get(ctx, tenantA, acme.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CustomerSuspended, reloaded.Status)
	})

	t.Run("update rejects bad enum", func(t *testing.T) {
		plan := model.Plan("gold")
		_, err := customers.Update(ctx, tenantA, acme.ID, model.CustomerPatch{Plan: &plan})
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("other tenant sees not found", func(t *testing.T) {
		_, err := customers.Get(ctx, tenantB, acme.ID)
		require.ErrorIs(t, err, model.ErrNotFound)
		name := "x"
		_, err = customers.Update(ctx, tenantB, acme.ID, model.CustomerPatch{Name: &name})
		require.ErrorIs(t, err, model.ErrNotFound)
		require.ErrorIs(t, customers.Delete(ctx, tenantB, acme.ID), model.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, customers.Delete(ctx, tenantA, acme.ID))
		_, err := customers.Get(ctx, tenantA, acme.ID)
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestLeadStore(t *testing.T) {
	db := testutil.NewTestStore(t)
	leads := store.NewLeadStore(db)
	ctx := context.Background()

	l, err := leads.Create(ctx, tenantA, model.Lead{Name: "  Liisa ", Email: "Liisa@Example.COM"})
	require.NoError(t, err)
	assert.Equal(t, "Liisa", l.Name)
	assert.Equal(t, "liisa@example.com", l.Email)
	assert.Equal(t, model.DefaultLeadSource, l.Source)

	_, err = leads.Create(ctx, tenantA, model.Lead{Name: "x", Email: "broken"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	got, res, err := leads.List(ctx, tenantA, store.PageRequest{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, got, 1)
	assert.Equal(t, l.ID, got[0].ID)

	got, _, err = leads.List(ctx, tenantB, store.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
