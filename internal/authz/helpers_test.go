package authz_test

import (
	"context"
	"errors"

	"github.com/palisade-sh/palisade/internal/authz"
)

// fixture wires a memory store, cache and evaluator with one tenant's
// worth of data.
type fixture struct {
	store     *authz.MemoryStore
	cache     *authz.DecisionCache
	evaluator *authz.Evaluator
}

func newFixture() *fixture {
	store := authz.NewMemoryStore()
	cache := authz.NewDecisionCache(authz.DefaultCacheConfig())
	return &fixture{
		store:     store,
		cache:     cache,
		evaluator: authz.NewEvaluator(store, cache, "ADMIN", nil),
	}
}

// failingStore injects store-level faults to exercise INTERNAL paths.
type failingStore struct {
	authz.PolicyStore
	err           error
	failUserRoles bool
	failGrants    bool
	failResource  bool
	roleCodeCalls int
}

func newFailingStore(inner authz.PolicyStore) *failingStore {
	return &failingStore{PolicyStore: inner, err: errors.New("storage unavailable")}
}

func (f *failingStore) UserRoleIDs(ctx context.Context, tenantID string, userID int64) ([]int64, error) {
	if f.failUserRoles {
		return nil, f.err
	}
	return f.PolicyStore.UserRoleIDs(ctx, tenantID, userID)
}

func (f *failingStore) Grants(ctx context.Context, tenantID string, roleIDs []int64) ([]authz.Grant, error) {
	if f.failGrants {
		return nil, f.err
	}
	return f.PolicyStore.Grants(ctx, tenantID, roleIDs)
}

func (f *failingStore) ResourceID(ctx context.Context, tenantID, key string) (int64, bool, error) {
	if f.failResource {
		return 0, false, f.err
	}
	return f.PolicyStore.ResourceID(ctx, tenantID, key)
}

func (f *failingStore) RoleCodes(ctx context.Context, tenantID string, roleIDs []int64) ([]string, error) {
	f.roleCodeCalls++
	return f.PolicyStore.RoleCodes(ctx, tenantID, roleIDs)
}
