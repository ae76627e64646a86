// Package pg implements the authz.PolicyStore read interface on
// PostgreSQL. All queries are tenant-scoped; the administration surface
// owns the schema and every write path.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/palisade-sh/palisade/internal/authz"
)

// Store reads role and grant data from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a store backed by the provided pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UserRoleIDs implements authz.PolicyStore.
func (s *Store) UserRoleIDs(ctx context.Context, tenantID string, userID int64) ([]int64, error) {
	const q = `
		SELECT ra.role_id
		FROM role_assignments ra
		JOIN roles r ON r.id = ra.role_id
		WHERE r.tenant_id = $1 AND ra.subject_type = 'USER' AND ra.subject_id = $2`
	return s.queryIDs(ctx, q, tenantID, userID)
}

// DepartmentRoleIDs implements authz.PolicyStore.
func (s *Store) DepartmentRoleIDs(ctx context.Context, tenantID string, departmentID int64) ([]int64, error) {
	const q = `
		SELECT ra.role_id
		FROM role_assignments ra
		JOIN roles r ON r.id = ra.role_id
		WHERE r.tenant_id = $1 AND ra.subject_type = 'DEPARTMENT' AND ra.subject_id = $2`
	return s.queryIDs(ctx, q, tenantID, departmentID)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("query role ids", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("scan role id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate role ids", err)
	}
	return ids, nil
}

// ResourceID implements authz.PolicyStore. A tenant row shadows a shared
// (NULL tenant) row with the same key.
func (s *Store) ResourceID(ctx context.Context, tenantID, key string) (int64, bool, error) {
	const q = `
		SELECT id FROM resources
		WHERE key = $2 AND (tenant_id = $1 OR tenant_id IS NULL)
		ORDER BY tenant_id NULLS LAST
		LIMIT 1`
	var id int64
	err := s.pool.QueryRow(ctx, q, tenantID, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("resolve resource", err)
	}
	return id, true, nil
}

// PermissionID implements authz.PolicyStore.
func (s *Store) PermissionID(ctx context.Context, code string) (int64, bool, error) {
	const q = `SELECT id FROM permissions WHERE code = $1`
	var id int64
	err := s.pool.QueryRow(ctx, q, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("resolve permission", err)
	}
	return id, true, nil
}

// Grants implements authz.PolicyStore.
func (s *Store) Grants(ctx context.Context, tenantID string, roleIDs []int64) ([]authz.Grant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	const q = `
		SELECT g.role_id, g.resource_id, g.permission_id, g.effect
		FROM role_grants g
		JOIN roles r ON r.id = g.role_id
		WHERE r.tenant_id = $1 AND g.role_id = ANY($2)`
	rows, err := s.pool.Query(ctx, q, tenantID, roleIDs)
	if err != nil {
		return nil, wrap("query grants", err)
	}
	defer rows.Close()
	var grants []authz.Grant
	for rows.Next() {
		var g authz.Grant
		var effect string
		if err := rows.Scan(&g.RoleID, &g.ResourceID, &g.PermissionID, &effect); err != nil {
			return nil, wrap("scan grant", err)
		}
		g.Effect = authz.Effect(effect)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate grants", err)
	}
	return grants, nil
}

// RoleCodes implements authz.PolicyStore.
func (s *Store) RoleCodes(ctx context.Context, tenantID string, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	const q = `SELECT code FROM roles WHERE tenant_id = $1 AND id = ANY($2)`
	rows, err := s.pool.Query(ctx, q, tenantID, roleIDs)
	if err != nil {
		return nil, wrap("query role codes", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, wrap("scan role code", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate role codes", err)
	}
	return codes, nil
}

// ResourceKeys implements authz.PolicyStore.
func (s *Store) ResourceKeys(ctx context.Context, tenantID string, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	const q = `
		SELECT id, key FROM resources
		WHERE id = ANY($2) AND (tenant_id = $1 OR tenant_id IS NULL)`
	rows, err := s.pool.Query(ctx, q, tenantID, ids)
	if err != nil {
		return nil, wrap("query resource keys", err)
	}
	defer rows.Close()
	out := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, wrap("scan resource key", err)
		}
		out[id] = key
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate resource keys", err)
	}
	return out, nil
}

// PermissionCodes implements authz.PolicyStore.
func (s *Store) PermissionCodes(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	const q = `SELECT id, code FROM permissions WHERE id = ANY($1)`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, wrap("query permission codes", err)
	}
	defer rows.Close()
	out := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, wrap("scan permission code", err)
		}
		out[id] = code
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate permission codes", err)
	}
	return out, nil
}

// wrap annotates store failures. Constraint details from PgError stay in
// the message for operators; callers only see an ErrInternal-kind fault.
func wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("authz/pg: %s: %s (%s): %w", op, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("authz/pg: %s: %w", op, err)
}
