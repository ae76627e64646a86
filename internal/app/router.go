package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/palisade-sh/palisade/internal/authz"
	"github.com/palisade-sh/palisade/internal/observability"
	"github.com/palisade-sh/palisade/internal/platform/httpx"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Gateway      *authz.Gateway
	AuthzHandler *authz.Handler
	Metrics      *observability.Metrics

	// Admin is the downstream administration surface protected by the
	// gateway. When nil, protected requests that pass enforcement get a
	// 404 problem response.
	Admin http.Handler
}

// NewRouter constructs the chi.Router with Palisade defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Self-service introspection only needs an authenticated actor.
	r.Route("/api", func(r chi.Router) {
		if params.AuthzHandler != nil {
			params.AuthzHandler.MountIntrospection(r)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(params.Gateway.Middleware())
			if params.AuthzHandler != nil {
				params.AuthzHandler.MountAdmin(r)
			}
			admin := params.Admin
			if admin == nil {
				admin = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					httpx.Problem(w, http.StatusNotFound, "Not Found", "")
				})
			}
			r.Mount("/", admin)
		})
	})

	return r
}
