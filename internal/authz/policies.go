package authz

import "net/http"

// EndpointPolicy is one row of the endpoint-to-permission table loaded
// at process start.
type EndpointPolicy struct {
	Method         string
	PathPattern    string
	ResourceKey    string
	PermissionCode string
}

// DefaultEndpointPolicies returns the administration API table. Several
// endpoints deliberately register more than one requirement; the
// gateway applies them conjunctively.
func DefaultEndpointPolicies() []EndpointPolicy {
	return []EndpointPolicy{
		// Common codes
		{http.MethodGet, `/api/admin/codes`, "code.admin", PermView},
		{http.MethodGet, `/api/admin/codes/\d+`, "code.admin", PermView},
		{http.MethodPost, `/api/admin/codes`, "code.admin", PermEdit},
		{http.MethodPut, `/api/admin/codes/\d+`, "code.admin", PermEdit},
		{http.MethodDelete, `/api/admin/codes/\d+`, "code.admin", PermEdit},

		// Code usage (read-only references from other modules)
		{http.MethodGet, `/api/admin/codes/\d+/usage`, "code.usage", PermView},
		{http.MethodGet, `/api/admin/code-usage`, "code.usage", PermUse},

		// Users
		{http.MethodGet, `/api/admin/users`, "user.admin", PermView},
		{http.MethodGet, `/api/admin/users/\d+`, "user.admin", PermView},
		{http.MethodPost, `/api/admin/users`, "user.admin", PermEdit},
		{http.MethodPut, `/api/admin/users/\d+`, "user.admin", PermEdit},
		{http.MethodDelete, `/api/admin/users/\d+`, "user.admin", PermEdit},
		{http.MethodPost, `/api/admin/users/\d+/reset-password`, "user.admin", PermExecute},

		// Roles
		{http.MethodGet, `/api/admin/roles`, "role.admin", PermView},
		{http.MethodGet, `/api/admin/roles/\d+`, "role.admin", PermView},
		{http.MethodPost, `/api/admin/roles`, "role.admin", PermEdit},
		{http.MethodPut, `/api/admin/roles/\d+`, "role.admin", PermEdit},
		{http.MethodDelete, `/api/admin/roles/\d+`, "role.admin", PermEdit},

		// Role members: reading requires sight of both roles and users.
		{http.MethodGet, `/api/admin/roles/\d+/members`, "role.admin", PermView},
		{http.MethodGet, `/api/admin/roles/\d+/members`, "user.admin", PermView},
		{http.MethodPost, `/api/admin/roles/\d+/members`, "role.member", PermEdit},
		{http.MethodDelete, `/api/admin/roles/\d+/members/\d+`, "role.member", PermEdit},

		// Role permissions (grants)
		{http.MethodGet, `/api/admin/roles/\d+/permissions`, "role.permission", PermView},
		{http.MethodPut, `/api/admin/roles/\d+/permissions`, "role.permission", PermEdit},
		{http.MethodDelete, `/api/admin/roles/\d+/permissions/\d+`, "role.permission", PermEdit},

		// Resources
		{http.MethodGet, `/api/admin/resources`, "resource.admin", PermView},
		{http.MethodGet, `/api/admin/resources/\d+`, "resource.admin", PermView},
		{http.MethodPost, `/api/admin/resources`, "resource.admin", PermEdit},
		{http.MethodPut, `/api/admin/resources/\d+`, "resource.admin", PermEdit},
		{http.MethodDelete, `/api/admin/resources/\d+`, "resource.admin", PermEdit},

		// Menus
		{http.MethodGet, `/api/admin/menus`, "menu.admin", PermView},
		{http.MethodGet, `/api/admin/menus/\d+`, "menu.admin", PermView},
		{http.MethodPost, `/api/admin/menus`, "menu.admin", PermEdit},
		{http.MethodPut, `/api/admin/menus/\d+`, "menu.admin", PermEdit},
		{http.MethodDelete, `/api/admin/menus/\d+`, "menu.admin", PermEdit},

		// Tenant selector (switching the active tenant context)
		{http.MethodGet, `/api/admin/tenants`, "tenant.selector", PermView},
		{http.MethodPost, `/api/admin/tenants/select`, "tenant.selector", PermUse},

		// Audit log
		{http.MethodGet, `/api/admin/audit-logs`, "audit.log", PermView},
		{http.MethodGet, `/api/admin/audit-logs/\d+`, "audit.log", PermView},
		{http.MethodGet, `/api/admin/audit-logs/export`, "audit.log", PermExecute},

		// Authorization runtime controls
		{http.MethodGet, `/api/admin/authz/mode`, "authz.mode", PermView},
		{http.MethodPut, `/api/admin/authz/mode`, "authz.mode", PermEdit},
	}
}

// RegisterDefaults loads the default table into the registry.
func RegisterDefaults(r *Registry) error {
	for _, p := range DefaultEndpointPolicies() {
		if err := r.Register(p.Method, p.PathPattern, p.ResourceKey, p.PermissionCode); err != nil {
			return err
		}
	}
	return nil
}
