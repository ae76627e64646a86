package authz

import "context"

// PolicyStore is the read interface onto role and grant data. All
// lookups are tenant-scoped; implementations must never let one tenant
// observe another tenant's rows. The administration surface mutates the
// underlying data out of band, so the store is consulted fresh on every
// uncached evaluation.
type PolicyStore interface {
	// UserRoleIDs returns the ids of roles assigned directly to the user.
	UserRoleIDs(ctx context.Context, tenantID string, userID int64) ([]int64, error)

	// DepartmentRoleIDs returns the ids of roles assigned to the department.
	DepartmentRoleIDs(ctx context.Context, tenantID string, departmentID int64) ([]int64, error)

	// ResourceID resolves a dotted resource key. A tenant-specific entry
	// takes precedence over a shared entry with the same key. ok is false
	// when neither exists.
	ResourceID(ctx context.Context, tenantID, key string) (id int64, ok bool, err error)

	// PermissionID resolves a permission code from the fixed vocabulary.
	PermissionID(ctx context.Context, code string) (id int64, ok bool, err error)

	// Grants returns every grant attached to the given roles within the
	// tenant.
	Grants(ctx context.Context, tenantID string, roleIDs []int64) ([]Grant, error)

	// RoleCodes returns the symbolic codes of the given roles within the
	// tenant, used for the administrative bypass check.
	RoleCodes(ctx context.Context, tenantID string, roleIDs []int64) ([]string, error)

	// ResourceKeys maps resource ids back to their dotted keys, used to
	// materialize permission lists for introspection.
	ResourceKeys(ctx context.Context, tenantID string, ids []int64) (map[int64]string, error)

	// PermissionCodes maps permission ids back to their codes.
	PermissionCodes(ctx context.Context, ids []int64) (map[int64]string, error)
}
