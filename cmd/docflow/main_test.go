package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/docflow/internal/auth"
	"github.com/nhle/docflow/internal/model"
)

func useTempConfig(t *testing.T) {
	t.Helper()
	prev := configPath
	configPath = filepath.Join(t.TempDir(), "config.yaml")
	t.Cleanup(func() { configPath = prev })
}

func TestMintCarriesIdentity(t *testing.T) {
	useTempConfig(t)
	t.Setenv("DOCFLOW_AUTH_JWT_SECRET", "test-secret")

	f := identityFlags{tenant: "acme", role: model.RoleSupport, email: "ops@acme.fi"}
	tok, err := f.mint()
	require.NoError(t, err)

	iss, err := auth.NewIssuer("test-secret", 0)
	require.NoError(t, err)
	id, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "acme", id.TenantID)
	assert.Equal(t, model.RoleSupport, id.Role)
	assert.Equal(t, "ops@acme.fi", id.Email)
	assert.NotEmpty(t, id.UserID)
}

func TestMintRejectsUnknownRole(t *testing.T) {
	useTempConfig(t)
	t.Setenv("DOCFLOW_AUTH_JWT_SECRET", "test-secret")

	f := identityFlags{tenant: "acme", role: "root"}
	_, err := f.mint()
	assert.ErrorContains(t, err, `unknown role "root"`)
}

func TestMintRequiresSecret(t *testing.T) {
	useTempConfig(t)
	t.Setenv("DOCFLOW_AUTH_JWT_SECRET", "")

	f := identityFlags{tenant: "acme", role: model.RoleAdmin}
	_, err := f.mint()
	assert.ErrorContains(t, err, "DOCFLOW_AUTH_JWT_SECRET")
}

func TestROICommandValidatesInput(t *testing.T) {
	cmd := roiCmd()
	cmd.SetArgs([]string{"--invoices", "0"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoices")
}
