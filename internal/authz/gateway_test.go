package authz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisade-sh/palisade/internal/audit"
	"github.com/palisade-sh/palisade/internal/authz"
)

type captureSink struct {
	records []audit.DenialRecord
}

func (s *captureSink) RecordDenial(ctx context.Context, rec audit.DenialRecord) error {
	s.records = append(s.records, rec)
	return nil
}

type gatewayEnv struct {
	fixture *fixture
	reg     *authz.Registry
	sink    *captureSink
	handler http.Handler
	reached bool
}

func newGatewayEnv(t *testing.T, mode authz.Mode) *gatewayEnv {
	t.Helper()
	env := &gatewayEnv{fixture: newFixture(), reg: authz.NewRegistry(mode), sink: &captureSink{}}
	require.NoError(t, env.reg.Register(http.MethodGet, `/api/admin/users`, "menu.admin.users", authz.PermView))
	require.NoError(t, env.reg.Register(http.MethodGet, `/api/admin/both`, "menu.admin.users", authz.PermView))
	require.NoError(t, env.reg.Register(http.MethodGet, `/api/admin/both`, "menu.admin.codes", authz.PermView))

	gateway := authz.NewGateway(env.reg, env.fixture.evaluator, env.sink, nil)
	env.handler = gateway.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.reached = true
		w.WriteHeader(http.StatusOK)
	}))
	return env
}

func (env *gatewayEnv) do(req *http.Request) *httptest.ResponseRecorder {
	env.reached = false
	res := httptest.NewRecorder()
	env.handler.ServeHTTP(res, req)
	return res
}

func requestAs(actor authz.Actor, method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(authz.ContextWithActor(req.Context(), actor))
}

func TestGatewayAuthRequired(t *testing.T) {
	env := newGatewayEnv(t, authz.ModeRelax)
	res := env.do(httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.False(t, env.reached)
	assert.Empty(t, env.sink.records)
}

func TestGatewayTenantMissing(t *testing.T) {
	env := newGatewayEnv(t, authz.ModeRelax)
	res := env.do(requestAs(authz.Actor{UserID: 7}, http.MethodGet, "/api/admin/users"))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.False(t, env.reached)
}

func TestGatewayTenantMismatch(t *testing.T) {
	env := newGatewayEnv(t, authz.ModeRelax)
	// Give the actor an allow so only the mismatch can deny.
	roleID := env.fixture.store.AddRole("acme", "EDITOR", "Editor")
	env.fixture.store.AssignRole(roleID, authz.SubjectUser, 7)
	resID := env.fixture.store.AddResource("acme", "menu.admin.users")
	env.fixture.store.AddGrant(roleID, resID, authz.PermView, authz.EffectAllow)

	req := requestAs(authz.Actor{TenantID: "acme", UserID: 7}, http.MethodGet, "/api/admin/users")
	req.Header.Set(authz.TenantChannelHeader, "globex")
	res := env.do(req)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, env.reached)
	assert.Empty(t, env.sink.records, "tenant mismatch is not an audit event")
}

func TestGatewayAllowsMatchingGrant(t *testing.T) {
	env := newGatewayEnv(t, authz.ModeRelax)
	roleID := env.fixture.store.AddRole("acme", "EDITOR", "Editor")
	env.fixture.store.AssignRole(roleID, authz.SubjectUser, 7)
	resID := env.fixture.store.AddResource("acme", "menu.admin.users")
	env.fixture.store.AddGrant(roleID, resID, authz.PermView, authz.EffectAllow)

	req := requestAs(authz.Actor{TenantID: "acme", UserID: 7}, http.MethodGet, "/api/admin/users")
	req.Header.Set(authz.TenantChannelHeader, "acme")
	res := env.do(req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, env.reached)
	assert.Empty(t, env.sink.records, "allow paths emit no audit record")
}

func TestGatewayDeniesAndAudits(t *testing.T) {
	env := newGatewayEnv(t, authz.ModeRelax)
	roleID := env.fixture.store.AddRole("acme", "VIEWER", "Viewer")
	env.fixture.store.AssignRole(roleID, authz.SubjectUser, 7)
	env.fixture.store.AddResource("acme", "menu.admin.users")

	res := env.do(requestAs(authz.Actor{TenantID: "acme", UserID: 7}, http.MethodGet, "/api/admin/users"))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, env.reached)

	require.Len(t, env.sink.records, 1)
	rec := env.sink.records[0]
	assert.Equal(t, "acme", rec.TenantID)
	assert.Equal(t, int64(7), rec.UserID)
	assert.Equal(t, "menu.admin.users", rec.ResourceKey)
	assert.Equal(t, authz.PermView, rec.PermissionCode)
	assert.Equal(t, http.MethodGet, rec.HTTPMethod)
	assert.Equal(t, "/api/admin/users", rec.Path)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestGatewayConjunctiveRequirements(t *testing.T) {
	env := newGatewayEnv(t, authz.ModeRelax)
	roleID := env.fixture.store.AddRole("acme", "EDITOR", "Editor")
	env.fixture.store.AssignRole(roleID, authz.SubjectUser, 7)
	users := env.fixture.store.AddResource("acme", "menu.admin.users")
	env.fixture.store.AddResource("acme", "menu.admin.codes")
	env.fixture.store.AddGrant(roleID, users, authz.PermView, authz.EffectAllow)

	// Only the first requirement is satisfied; the second denies.
	res := env.do(requestAs(authz.Actor{TenantID: "acme", UserID: 7}, http.MethodGet, "/api/admin/both"))
	assert.Equal(t, http.StatusForbidden, res.Code)
	require.Len(t, env.sink.records, 1)
	assert.Equal(t, "menu.admin.codes", env.sink.records[0].ResourceKey)
}

func TestGatewayRelaxFallbackRequiresAdmin(t *testing.T) {
	env := newGatewayEnv(t, authz.ModeRelax)
	roleID := env.fixture.store.AddRole("acme", "EDITOR", "Editor")
	env.fixture.store.AssignRole(roleID, authz.SubjectUser, 7)

	res := env.do(requestAs(authz.Actor{TenantID: "acme", UserID: 7}, http.MethodGet, "/api/admin/unmatched"))
	assert.Equal(t, http.StatusForbidden, res.Code)

	adminRole := env.fixture.store.AddRole("acme", "ADMIN", "Administrator")
	env.fixture.store.AssignRole(adminRole, authz.SubjectUser, 9)
	res = env.do(requestAs(authz.Actor{TenantID: "acme", UserID: 9}, http.MethodGet, "/api/admin/unmatched"))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, env.reached)
}

func TestGatewayStrictFallbackSkipsAdminCheck(t *testing.T) {
	store := authz.NewMemoryStore()
	adminRole := store.AddRole("acme", "ADMIN", "Administrator")
	store.AssignRole(adminRole, authz.SubjectUser, 9)
	failing := newFailingStore(store)

	cache := authz.NewDecisionCache(authz.DefaultCacheConfig())
	evaluator := authz.NewEvaluator(failing, cache, "ADMIN", nil)
	reg := authz.NewRegistry(authz.ModeStrict)
	gateway := authz.NewGateway(reg, evaluator, nil, nil)
	handler := gateway.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestAs(authz.Actor{TenantID: "acme", UserID: 9}, http.MethodGet, "/api/admin/unmatched"))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Zero(t, failing.roleCodeCalls, "strict mode must not consult the admin flag")
}

func TestGatewayInternalFaultIs500(t *testing.T) {
	store := authz.NewMemoryStore()
	store.AddResource("acme", "menu.admin.users")
	failing := newFailingStore(store)
	failing.failResource = true

	cache := authz.NewDecisionCache(authz.DefaultCacheConfig())
	evaluator := authz.NewEvaluator(failing, cache, "ADMIN", nil)
	reg := authz.NewRegistry(authz.ModeRelax)
	require.NoError(t, reg.Register(http.MethodGet, `/api/admin/users`, "menu.admin.users", authz.PermView))
	sink := &captureSink{}
	gateway := authz.NewGateway(reg, evaluator, sink, nil)
	handler := gateway.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestAs(authz.Actor{TenantID: "acme", UserID: 7}, http.MethodGet, "/api/admin/users"))
	assert.Equal(t, http.StatusInternalServerError, res.Code, "store faults are not denials")
	assert.Empty(t, sink.records)
}
