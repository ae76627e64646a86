package authz

import "errors"

// Sentinel errors for the enforcement path. Every kind fails closed:
// ambiguity or partial data never yields an allow.
var (
	// ErrAuthRequired indicates no validated identity was present.
	ErrAuthRequired = errors.New("authz: authentication required")

	// ErrTenantMissing indicates no tenant id was resolvable from any
	// input channel.
	ErrTenantMissing = errors.New("authz: tenant missing")

	// ErrTenantMismatch indicates the identity claim and the transport
	// header disagree on the tenant.
	ErrTenantMismatch = errors.New("authz: tenant mismatch")

	// ErrTokenInvalid indicates an identity subject was present but did
	// not parse into the expected actor shape.
	ErrTokenInvalid = errors.New("authz: token invalid")

	// ErrForbidden indicates permission evaluation denied the request.
	ErrForbidden = errors.New("authz: forbidden")

	// ErrInternal indicates the policy store or cache substrate failed.
	// It must propagate as a fault distinct from ErrForbidden and is the
	// only kind eligible for caller-level retry.
	ErrInternal = errors.New("authz: internal")
)

// Internal wraps a store failure so that errors.Is(err, ErrInternal)
// holds while the cause stays inspectable.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return &internalError{cause: err}
}

type internalError struct {
	cause error
}

func (e *internalError) Error() string {
	return "authz: internal: " + e.cause.Error()
}

func (e *internalError) Unwrap() []error {
	return []error{ErrInternal, e.cause}
}
