package authz

import (
	"context"
	"sync"
)

// MemoryStore is an in-process PolicyStore used for tests and local
// seeding. All methods are safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	roles       map[int64]Role
	assignments []RoleAssignment
	resources   map[int64]Resource
	permissions map[string]int64
	grants      []Grant
	nextID      int64
}

// NewMemoryStore returns an empty store pre-seeded with the standard
// permission vocabulary.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		roles:       make(map[int64]Role),
		resources:   make(map[int64]Resource),
		permissions: make(map[string]int64),
	}
	for _, code := range []string{PermView, PermUse, PermEdit, PermExecute} {
		s.permissions[code] = s.allocID()
	}
	return s
}

func (s *MemoryStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

// AddRole registers a role and returns its id.
func (s *MemoryStore) AddRole(tenantID, code, name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.roles[id] = Role{ID: id, TenantID: tenantID, Code: code, Name: name}
	return id
}

// AssignRole attaches a role to a user or department subject.
func (s *MemoryStore) AssignRole(roleID int64, subjectType SubjectType, subjectID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, RoleAssignment{RoleID: roleID, SubjectType: subjectType, SubjectID: subjectID})
}

// RemoveAssignments drops every assignment for the subject.
func (s *MemoryStore) RemoveAssignments(subjectType SubjectType, subjectID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.assignments[:0]
	for _, a := range s.assignments {
		if a.SubjectType == subjectType && a.SubjectID == subjectID {
			continue
		}
		kept = append(kept, a)
	}
	s.assignments = kept
}

// AddResource registers a resource key. An empty tenantID creates a
// shared entry visible to every tenant.
func (s *MemoryStore) AddResource(tenantID, key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.resources[id] = Resource{ID: id, TenantID: tenantID, Key: key}
	return id
}

// AddGrant attaches an effect to a (role, resource, permission) triple.
func (s *MemoryStore) AddGrant(roleID, resourceID int64, permissionCode string, effect Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	permID, ok := s.permissions[permissionCode]
	if !ok {
		permID = s.allocID()
		s.permissions[permissionCode] = permID
	}
	s.grants = append(s.grants, Grant{RoleID: roleID, ResourceID: resourceID, PermissionID: permID, Effect: effect})
}

// RemoveGrants drops every grant held by the role.
func (s *MemoryStore) RemoveGrants(roleID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.grants[:0]
	for _, g := range s.grants {
		if g.RoleID == roleID {
			continue
		}
		kept = append(kept, g)
	}
	s.grants = kept
}

func (s *MemoryStore) roleInTenant(roleID int64, tenantID string) bool {
	role, ok := s.roles[roleID]
	return ok && role.TenantID == tenantID
}

// UserRoleIDs implements PolicyStore.
func (s *MemoryStore) UserRoleIDs(ctx context.Context, tenantID string, userID int64) ([]int64, error) {
	return s.subjectRoleIDs(tenantID, SubjectUser, userID), nil
}

// DepartmentRoleIDs implements PolicyStore.
func (s *MemoryStore) DepartmentRoleIDs(ctx context.Context, tenantID string, departmentID int64) ([]int64, error) {
	return s.subjectRoleIDs(tenantID, SubjectDepartment, departmentID), nil
}

func (s *MemoryStore) subjectRoleIDs(tenantID string, subjectType SubjectType, subjectID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, a := range s.assignments {
		if a.SubjectType != subjectType || a.SubjectID != subjectID {
			continue
		}
		if !s.roleInTenant(a.RoleID, tenantID) {
			continue
		}
		ids = append(ids, a.RoleID)
	}
	return ids
}

// ResourceID implements PolicyStore. The tenant-specific entry wins over
// a shared entry with the same key.
func (s *MemoryStore) ResourceID(ctx context.Context, tenantID, key string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sharedID int64
	var sharedOK bool
	for id, res := range s.resources {
		if res.Key != key {
			continue
		}
		if res.TenantID == tenantID {
			return id, true, nil
		}
		if res.TenantID == "" {
			sharedID, sharedOK = id, true
		}
	}
	return sharedID, sharedOK, nil
}

// PermissionID implements PolicyStore.
func (s *MemoryStore) PermissionID(ctx context.Context, code string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.permissions[code]
	return id, ok, nil
}

// Grants implements PolicyStore.
func (s *MemoryStore) Grants(ctx context.Context, tenantID string, roleIDs []int64) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[int64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		if s.roleInTenant(id, tenantID) {
			want[id] = struct{}{}
		}
	}
	var out []Grant
	for _, g := range s.grants {
		if _, ok := want[g.RoleID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// ResourceKeys implements PolicyStore.
func (s *MemoryStore) ResourceKeys(ctx context.Context, tenantID string, ids []int64) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		res, ok := s.resources[id]
		if !ok {
			continue
		}
		if res.TenantID != "" && res.TenantID != tenantID {
			continue
		}
		out[id] = res.Key
	}
	return out, nil
}

// PermissionCodes implements PolicyStore.
func (s *MemoryStore) PermissionCodes(ctx context.Context, ids []int64) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := make(map[int64]string, len(s.permissions))
	for code, id := range s.permissions {
		byID[id] = code
	}
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if code, ok := byID[id]; ok {
			out[id] = code
		}
	}
	return out, nil
}

// RoleCodes implements PolicyStore.
func (s *MemoryStore) RoleCodes(ctx context.Context, tenantID string, roleIDs []int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var codes []string
	for _, id := range roleIDs {
		role, ok := s.roles[id]
		if !ok || role.TenantID != tenantID {
			continue
		}
		codes = append(codes, role.Code)
	}
	return codes, nil
}
