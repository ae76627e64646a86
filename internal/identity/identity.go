// Package identity turns pre-validated identity claims into an
// authz.Actor. Token verification happens upstream; this package only
// checks that the claims it is handed have the expected shape.
package identity

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/palisade-sh/palisade/internal/authz"
)

// Header names populated by the upstream authentication layer.
const (
	HeaderTenant     = "X-Identity-Tenant"
	HeaderUser       = "X-Identity-User"
	HeaderDepartment = "X-Identity-Department"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TenantID is deliberately not required here: its absence is the
// gateway's TenantCheck concern, not a malformed subject.
type claims struct {
	TenantID     string
	UserID       int64 `validate:"required,gt=0"`
	DepartmentID int64 `validate:"gte=0"`
}

// ParseActor builds an actor from raw claim values. A malformed subject
// yields authz.ErrTokenInvalid.
func ParseActor(tenantID, userID, departmentID string) (authz.Actor, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("%w: user id %q", authz.ErrTokenInvalid, userID)
	}
	var dept int64
	if departmentID != "" {
		dept, err = strconv.ParseInt(departmentID, 10, 64)
		if err != nil {
			return authz.Actor{}, fmt.Errorf("%w: department id %q", authz.ErrTokenInvalid, departmentID)
		}
	}
	c := claims{TenantID: tenantID, UserID: uid, DepartmentID: dept}
	if err := validate.Struct(c); err != nil {
		return authz.Actor{}, fmt.Errorf("%w: %v", authz.ErrTokenInvalid, err)
	}
	return authz.Actor{TenantID: c.TenantID, UserID: c.UserID, DepartmentID: c.DepartmentID}, nil
}
