package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/store"
	"github.com/nhle/docflow/internal/testutil"
)

func TestPostgresTenantIsolation(t *testing.T) {
	dsn := testutil.StartPostgresContainer(t)

	db, err := store.Open(store.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	customers := store.NewCustomerStore(db)
	c, err := customers.Create(ctx, tenantB, model.Customer{Name: "B", Email: "b@example.com"})
	require.NoError(t, err)

	_, err = customers.Get(ctx, tenantA, c.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	got, err := customers.Get(ctx, tenantB, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-b", got.TenantID)

	admin := model.Identity{UserID: "root", TenantID: "tenant-b", Role: model.RoleAdmin, OverrideReason: "support ticket"}
	_, res, err := customers.List(ctx, admin, store.CustomerFilter{}, store.PageRequest{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Limit)
	assert.Equal(t, 1, res.Total)

	// Session settings are transaction-local.
	var setting string
	require.NoError(t, db.WithTenantContext(ctx, tenantA, func(tx *store.Tx) error { return nil }))
	err = db.WithTenantContext(ctx, tenantB, func(tx *store.Tx) error {
		return tx.CurrentSetting(ctx, "app.current_tenant_id", &setting)
	})
	require.NoError(t, err)
	assert.Equal(t, "tenant-b", setting)
}
