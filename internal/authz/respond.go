package authz

import (
	"errors"
	"net/http"

	"github.com/palisade-sh/palisade/internal/platform/httpx"
)

// RespondError maps enforcement error kinds to RFC7807 responses.
// Internal NOT_FOUND conditions never reach this point; the evaluator
// collapses them into denials so callers cannot enumerate resources.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAuthRequired):
		httpx.Problem(w, http.StatusUnauthorized, "Authentication Required", "no validated identity present")
	case errors.Is(err, ErrTokenInvalid):
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Identity", "identity claims are malformed")
	case errors.Is(err, ErrTenantMissing):
		httpx.Problem(w, http.StatusBadRequest, "Tenant Missing", "no tenant resolvable from the request")
	case errors.Is(err, ErrTenantMismatch):
		httpx.Problem(w, http.StatusForbidden, "Tenant Mismatch", "tenant channels disagree")
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
