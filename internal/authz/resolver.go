package authz

import (
	"context"
	"fmt"
	"sort"
)

// RoleResolver computes the effective role set for an actor: the union
// of roles assigned directly to the user and, when the actor carries a
// primary department, roles assigned to that department. There is no
// transitive department hierarchy.
type RoleResolver struct {
	store PolicyStore
}

// NewRoleResolver constructs a resolver over the given store.
func NewRoleResolver(store PolicyStore) *RoleResolver {
	return &RoleResolver{store: store}
}

// EffectiveRoleIDs returns the deduplicated, sorted role ids the actor
// holds. An actor with no assignments resolves to an empty set rather
// than an error, so callers fail closed.
func (r *RoleResolver) EffectiveRoleIDs(ctx context.Context, actor Actor) ([]int64, error) {
	userRoles, err := r.store.UserRoleIDs(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, Internal(fmt.Errorf("resolve user roles: %w", err))
	}
	seen := make(map[int64]struct{}, len(userRoles))
	ids := make([]int64, 0, len(userRoles))
	for _, id := range userRoles {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if actor.HasDepartment() {
		deptRoles, err := r.store.DepartmentRoleIDs(ctx, actor.TenantID, actor.DepartmentID)
		if err != nil {
			return nil, Internal(fmt.Errorf("resolve department roles: %w", err))
		}
		for _, id := range deptRoles {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
