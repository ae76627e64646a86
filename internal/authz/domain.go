package authz

// SubjectType distinguishes who a role assignment targets.
type SubjectType string

const (
	// SubjectUser grants the role to exactly one user.
	SubjectUser SubjectType = "USER"
	// SubjectDepartment grants the role to every user whose primary
	// department matches the assignment subject.
	SubjectDepartment SubjectType = "DEPARTMENT"
)

// Effect is the outcome attached to a grant.
type Effect string

const (
	EffectAllow Effect = "ALLOW"
	EffectDeny  Effect = "DENY"
)

// Well-known permission codes.
const (
	PermView    = "VIEW"
	PermUse     = "USE"
	PermEdit    = "EDIT"
	PermExecute = "EXECUTE"
)

// Actor is the authenticated subject of a request. It is supplied by the
// upstream identity layer and treated as immutable for the request.
// DepartmentID is zero when the user has no primary department.
type Actor struct {
	TenantID     string
	UserID       int64
	DepartmentID int64
}

// HasDepartment reports whether the actor carries a primary department.
func (a Actor) HasDepartment() bool {
	return a.DepartmentID > 0
}

// Valid reports whether the actor has the minimum identity shape.
func (a Actor) Valid() bool {
	return a.TenantID != "" && a.UserID > 0
}

// Role is a named permission grouping scoped to one tenant.
type Role struct {
	ID       int64
	TenantID string
	Code     string
	Name     string
}

// RoleAssignment ties a role to a user or department subject.
type RoleAssignment struct {
	RoleID      int64
	SubjectType SubjectType
	SubjectID   int64
}

// Resource is a protected object identified by a dotted key, e.g.
// "menu.admin.users". TenantID is empty for shared entries available to
// every tenant; a tenant-specific entry with the same key wins.
type Resource struct {
	ID       int64
	TenantID string
	Key      string
}

// Permission is an atomic action from the fixed vocabulary.
type Permission struct {
	ID   int64
	Code string
}

// Grant attaches an effect to a (role, resource, permission) triple.
type Grant struct {
	RoleID       int64
	ResourceID   int64
	PermissionID int64
	Effect       Effect
}

// Verdict classifies the outcome of a permission evaluation.
type Verdict int8

const (
	// VerdictDeny rejects the access.
	VerdictDeny Verdict = iota
	// VerdictAllow grants the access through an ALLOW grant.
	VerdictAllow
	// VerdictAllowBypass grants the access because the actor holds the
	// administrative bypass role. Kept distinct from VerdictAllow so the
	// reason an access succeeded stays auditable.
	VerdictAllowBypass
)

// String returns the audit label for the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictAllowBypass:
		return "allow_bypass"
	default:
		return "deny"
	}
}

// Denial reasons carried on Decision. These never leave the process
// boundary verbatim; callers surface a generic FORBIDDEN instead.
const (
	ReasonResourceUnknown   = "resource_unknown"
	ReasonPermissionUnknown = "permission_unknown"
	ReasonNoRoles           = "no_roles"
	ReasonDenyGrant         = "deny_grant"
	ReasonNoAllowGrant      = "no_allow_grant"
	ReasonNoPolicyStrict    = "no_policy_strict"
	ReasonNotAdminRelax     = "not_admin_relax"
)

// Decision is the result of evaluating one (actor, resource, permission)
// tuple. Reason is set only for denials.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Allowed reports whether the decision permits the access.
func (d Decision) Allowed() bool {
	return d.Verdict == VerdictAllow || d.Verdict == VerdictAllowBypass
}

func allow() Decision              { return Decision{Verdict: VerdictAllow} }
func allowBypass() Decision        { return Decision{Verdict: VerdictAllowBypass} }
func deny(reason string) Decision  { return Decision{Verdict: VerdictDeny, Reason: reason} }
