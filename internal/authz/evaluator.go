package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// DefaultAdminRoleCode is the role code that bypasses permission checks
// unless overridden in configuration.
const DefaultAdminRoleCode = "ADMIN"

// Evaluator combines the role resolver and the policy store into a
// single allow/deny decision with DENY-override semantics and the
// administrative bypass. Decisions and the bypass flag are memoized in
// the DecisionCache.
type Evaluator struct {
	store         PolicyStore
	resolver      *RoleResolver
	cache         *DecisionCache
	adminRoleCode string
	logger        *slog.Logger
}

// NewEvaluator constructs an evaluator. adminRoleCode falls back to
// DefaultAdminRoleCode when empty; logger may be nil.
func NewEvaluator(store PolicyStore, cache *DecisionCache, adminRoleCode string, logger *slog.Logger) *Evaluator {
	if adminRoleCode == "" {
		adminRoleCode = DefaultAdminRoleCode
	}
	return &Evaluator{
		store:         store,
		resolver:      NewRoleResolver(store),
		cache:         cache,
		adminRoleCode: adminRoleCode,
		logger:        logger,
	}
}

// Resolver exposes the underlying role resolver.
func (e *Evaluator) Resolver() *RoleResolver {
	return e.resolver
}

// Evaluate returns the decision for one (actor, resource, permission)
// tuple, consulting the cache first. Store failures propagate as
// ErrInternal and are never converted into a deny.
func (e *Evaluator) Evaluate(ctx context.Context, actor Actor, resourceKey, permissionCode string) (Decision, error) {
	return e.cache.Decision(actor, resourceKey, permissionCode, func() (Decision, error) {
		return e.evaluate(ctx, actor, resourceKey, permissionCode)
	})
}

// CanAccess reports whether the actor may perform the permission on the
// resource.
func (e *Evaluator) CanAccess(ctx context.Context, actor Actor, resourceKey, permissionCode string) (bool, error) {
	d, err := e.Evaluate(ctx, actor, resourceKey, permissionCode)
	if err != nil {
		return false, err
	}
	return d.Allowed(), nil
}

// RequirePermission is CanAccess for strict enforcement points: a denial
// comes back as ErrForbidden instead of a boolean.
func (e *Evaluator) RequirePermission(ctx context.Context, actor Actor, resourceKey, permissionCode string) error {
	d, err := e.Evaluate(ctx, actor, resourceKey, permissionCode)
	if err != nil {
		return err
	}
	if !d.Allowed() {
		return fmt.Errorf("%w: %s %s on %s", ErrForbidden, permissionCode, d.Reason, resourceKey)
	}
	return nil
}

func (e *Evaluator) evaluate(ctx context.Context, actor Actor, resourceKey, permissionCode string) (Decision, error) {
	resourceID, ok, err := e.store.ResourceID(ctx, actor.TenantID, resourceKey)
	if err != nil {
		return Decision{}, Internal(fmt.Errorf("resolve resource %q: %w", resourceKey, err))
	}
	if !ok {
		// Unknown resources deny rather than error so callers cannot
		// probe which keys exist.
		return deny(ReasonResourceUnknown), nil
	}
	permissionID, ok, err := e.store.PermissionID(ctx, permissionCode)
	if err != nil {
		return Decision{}, Internal(fmt.Errorf("resolve permission %q: %w", permissionCode, err))
	}
	if !ok {
		return deny(ReasonPermissionUnknown), nil
	}

	admin, err := e.IsAdmin(ctx, actor)
	if err != nil {
		return Decision{}, err
	}
	if admin {
		return allowBypass(), nil
	}

	roleIDs, err := e.resolver.EffectiveRoleIDs(ctx, actor)
	if err != nil {
		return Decision{}, err
	}
	if len(roleIDs) == 0 {
		return deny(ReasonNoRoles), nil
	}

	grants, err := e.store.Grants(ctx, actor.TenantID, roleIDs)
	if err != nil {
		return Decision{}, Internal(fmt.Errorf("fetch grants: %w", err))
	}
	allowed := false
	for _, g := range grants {
		if g.ResourceID != resourceID || g.PermissionID != permissionID {
			continue
		}
		if g.Effect == EffectDeny {
			// DENY-override: a single deny suppresses every allow,
			// whichever role it came from.
			return deny(ReasonDenyGrant), nil
		}
		if g.Effect == EffectAllow {
			allowed = true
		}
	}
	if allowed {
		return allow(), nil
	}
	return deny(ReasonNoAllowGrant), nil
}

// IsAdmin reports whether the actor holds the administrative bypass
// role. The flag is cached independently of decisions because the
// RELAX fallback consults it without evaluating any permission.
func (e *Evaluator) IsAdmin(ctx context.Context, actor Actor) (bool, error) {
	return e.cache.AdminFlag(actor.TenantID, actor.UserID, func() (bool, error) {
		roleIDs, err := e.resolver.EffectiveRoleIDs(ctx, actor)
		if err != nil {
			return false, err
		}
		if len(roleIDs) == 0 {
			return false, nil
		}
		codes, err := e.store.RoleCodes(ctx, actor.TenantID, roleIDs)
		if err != nil {
			return false, Internal(fmt.Errorf("fetch role codes: %w", err))
		}
		for _, code := range codes {
			if code == e.adminRoleCode {
				return true, nil
			}
		}
		return false, nil
	})
}

// EffectivePermissions materializes the actor's ALLOW grants as sorted
// "resourceKey:permissionCode" entries for introspection. The
// administrative bypass is reported separately by IsAdmin, not folded
// into the list.
func (e *Evaluator) EffectivePermissions(ctx context.Context, actor Actor) ([]string, error) {
	return e.cache.PermissionList(actor.TenantID, actor.UserID, func() ([]string, error) {
		return e.materializePermissions(ctx, actor)
	})
}

func (e *Evaluator) materializePermissions(ctx context.Context, actor Actor) ([]string, error) {
	roleIDs, err := e.resolver.EffectiveRoleIDs(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return []string{}, nil
	}
	grants, err := e.store.Grants(ctx, actor.TenantID, roleIDs)
	if err != nil {
		return nil, Internal(fmt.Errorf("fetch grants: %w", err))
	}

	type pair struct {
		resourceID   int64
		permissionID int64
	}
	denied := make(map[pair]struct{})
	for _, g := range grants {
		if g.Effect == EffectDeny {
			denied[pair{g.ResourceID, g.PermissionID}] = struct{}{}
		}
	}
	allowedPairs := make(map[pair]struct{})
	var resourceIDs, permissionIDs []int64
	for _, g := range grants {
		if g.Effect != EffectAllow {
			continue
		}
		p := pair{g.ResourceID, g.PermissionID}
		if _, overridden := denied[p]; overridden {
			continue
		}
		if _, dup := allowedPairs[p]; dup {
			continue
		}
		allowedPairs[p] = struct{}{}
		resourceIDs = append(resourceIDs, g.ResourceID)
		permissionIDs = append(permissionIDs, g.PermissionID)
	}
	if len(allowedPairs) == 0 {
		return []string{}, nil
	}

	keys, err := e.store.ResourceKeys(ctx, actor.TenantID, resourceIDs)
	if err != nil {
		return nil, Internal(fmt.Errorf("resolve resource keys: %w", err))
	}
	codes, err := e.store.PermissionCodes(ctx, permissionIDs)
	if err != nil {
		return nil, Internal(fmt.Errorf("resolve permission codes: %w", err))
	}
	out := make([]string, 0, len(allowedPairs))
	for p := range allowedPairs {
		key, okKey := keys[p.resourceID]
		code, okCode := codes[p.permissionID]
		if !okKey || !okCode {
			if e.logger != nil {
				e.logger.Warn("dangling grant reference",
					slog.Int64("resource_id", p.resourceID),
					slog.Int64("permission_id", p.permissionID))
			}
			continue
		}
		out = append(out, key+":"+code)
	}
	sort.Strings(out)
	return out, nil
}
