package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/palisade-sh/palisade/internal/platform/httpx"
)

// Handler exposes the introspection and runtime-control endpoints of the
// authorization core. The routes are themselves guarded by the gateway
// through the default policy table.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	evaluator *Evaluator
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, registry *Registry, evaluator *Evaluator) *Handler {
	return &Handler{logger: logger, registry: registry, evaluator: evaluator}
}

// MountAdmin registers the runtime-control routes. These sit behind the
// gateway and require the authz.mode resource.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/authz/mode", h.getMode)
	r.Put("/authz/mode", h.setMode)
}

// MountIntrospection registers the self-service permission listing. Any
// authenticated actor may read their own effective permissions, so the
// route lives outside the gateway.
func (h *Handler) MountIntrospection(r chi.Router) {
	r.Get("/me/permissions", h.myPermissions)
}

type permissionsResponse struct {
	TenantID    string   `json:"tenant_id"`
	UserID      int64    `json:"user_id"`
	Admin       bool     `json:"admin"`
	Permissions []string `json:"permissions"`
}

// myPermissions returns the actor's materialized ALLOW grants plus the
// administrative bypass flag.
func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		RespondError(w, ErrAuthRequired)
		return
	}
	admin, err := h.evaluator.IsAdmin(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	perms, err := h.evaluator.EffectivePermissions(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		TenantID:    actor.TenantID,
		UserID:      actor.UserID,
		Admin:       admin,
		Permissions: perms,
	})
}

type modePayload struct {
	Mode string `json:"mode"`
}

func (h *Handler) getMode(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, modePayload{Mode: h.registry.Mode().String()})
}

func (h *Handler) setMode(w http.ResponseWriter, r *http.Request) {
	var payload modePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be JSON with a mode field")
		return
	}
	mode, err := ParseMode(payload.Mode)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Mode", `mode must be "relax" or "strict"`)
		return
	}
	h.registry.SetMode(mode)
	if h.logger != nil {
		h.logger.Info("authz fallback mode changed", slog.String("mode", mode.String()))
	}
	httpx.JSON(w, http.StatusOK, modePayload{Mode: mode.String()})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.Error("authz handler", slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	RespondError(w, err)
}
