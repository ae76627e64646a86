package authz_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisade-sh/palisade/internal/authz"
)

func TestRegistryFullyAnchoredPatterns(t *testing.T) {
	reg := authz.NewRegistry(authz.ModeRelax)
	require.NoError(t, reg.Register(http.MethodGet, `/api/admin/users`, "user.admin", authz.PermView))
	require.NoError(t, reg.Register(http.MethodGet, `/api/admin/users/\d+`, "user.admin", authz.PermView))

	assert.Len(t, reg.FindPolicies(http.MethodGet, "/api/admin/users"), 1)
	assert.Empty(t, reg.FindPolicies(http.MethodGet, "/api/admin/users/1x"), "suffix must not match")
	assert.Empty(t, reg.FindPolicies(http.MethodGet, "/xx/api/admin/users"), "prefix must not match")

	assert.Len(t, reg.FindPolicies(http.MethodGet, "/api/admin/users/42"), 1)
	assert.Empty(t, reg.FindPolicies(http.MethodGet, "/api/admin/users/abc"))
}

func TestRegistryMethodHandling(t *testing.T) {
	reg := authz.NewRegistry(authz.ModeRelax)
	require.NoError(t, reg.Register("get", `/api/admin/users`, "user.admin", authz.PermView))

	assert.Len(t, reg.FindPolicies("GET", "/api/admin/users"), 1)
	assert.Len(t, reg.FindPolicies("get", "/api/admin/users"), 1)
	assert.Empty(t, reg.FindPolicies("POST", "/api/admin/users"))
}

func TestRegistryPreservesOrderAndDuplicates(t *testing.T) {
	reg := authz.NewRegistry(authz.ModeRelax)
	require.NoError(t, reg.Register(http.MethodGet, `/api/admin/roles/\d+/members`, "role.admin", authz.PermView))
	require.NoError(t, reg.Register(http.MethodGet, `/api/admin/roles/\d+/members`, "user.admin", authz.PermView))
	require.NoError(t, reg.Register(http.MethodGet, `/api/admin/roles/\d+/members`, "role.admin", authz.PermView))

	got := reg.FindPolicies(http.MethodGet, "/api/admin/roles/3/members")
	require.Len(t, got, 3)
	assert.Equal(t, "role.admin", got[0].ResourceKey)
	assert.Equal(t, "user.admin", got[1].ResourceKey)
	assert.Equal(t, "role.admin", got[2].ResourceKey)
}

func TestRegistryEmptyResultIsNotAnError(t *testing.T) {
	reg := authz.NewRegistry(authz.ModeStrict)
	assert.Empty(t, reg.FindPolicies(http.MethodGet, "/api/admin/unknown"))
}

func TestRegistryRejectsBadInput(t *testing.T) {
	reg := authz.NewRegistry(authz.ModeRelax)
	assert.Error(t, reg.Register("", `/x`, "r", "VIEW"))
	assert.Error(t, reg.Register(http.MethodGet, `/x`, "", "VIEW"))
	assert.Error(t, reg.Register(http.MethodGet, `/x(`, "r", "VIEW"))
}

func TestRegistryModeSwitchAtRuntime(t *testing.T) {
	reg := authz.NewRegistry(authz.ModeRelax)
	assert.Equal(t, authz.ModeRelax, reg.Mode())
	reg.SetMode(authz.ModeStrict)
	assert.Equal(t, authz.ModeStrict, reg.Mode())
}

func TestParseMode(t *testing.T) {
	mode, err := authz.ParseMode("strict")
	require.NoError(t, err)
	assert.Equal(t, authz.ModeStrict, mode)

	mode, err = authz.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, authz.ModeRelax, mode)

	_, err = authz.ParseMode("lenient")
	assert.Error(t, err)
}
