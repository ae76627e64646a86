package authz

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	"github.com/palisade-sh/palisade/internal/audit"
)

// DecisionRecorder receives the outcome of each gateway decision for
// metrics. Implementations must be safe for concurrent use.
type DecisionRecorder interface {
	DecisionRecorded(verdict string)
}

// Gateway enforces endpoint policies at the request boundary. Each
// request walks a fixed sequence, terminal on the first failure:
// identity check, tenant check (including the cross-channel comparison),
// policy lookup, then conjunctive permission evaluation. Denials on a
// matched policy are reported to the audit sink; allow paths and
// authentication-stage failures are not.
type Gateway struct {
	registry  *Registry
	evaluator *Evaluator
	sink      audit.Sink
	logger    *slog.Logger
	recorder  DecisionRecorder
}

// NewGateway constructs the gateway. sink and logger may be nil;
// a nil sink drops denial records.
func NewGateway(registry *Registry, evaluator *Evaluator, sink audit.Sink, logger *slog.Logger) *Gateway {
	return &Gateway{registry: registry, evaluator: evaluator, sink: sink, logger: logger}
}

// SetRecorder installs a decision metrics recorder. Call during wiring,
// before the gateway serves requests.
func (g *Gateway) SetRecorder(r DecisionRecorder) {
	g.recorder = r
}

// Middleware returns the chi-compatible enforcement interceptor.
func (g *Gateway) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				RespondError(w, ErrAuthRequired)
				return
			}
			if actor.TenantID == "" {
				RespondError(w, ErrTenantMissing)
				return
			}
			// The transport channel must agree with the identity claim
			// before any permission logic runs; disagreement signals a
			// cross-tenant confusion attempt.
			if header := r.Header.Get(TenantChannelHeader); header != "" && header != actor.TenantID {
				if g.logger != nil {
					g.logger.Warn("tenant channel mismatch",
						slog.String("claim", actor.TenantID),
						slog.String("header", header),
						slog.String("path", r.URL.Path))
				}
				RespondError(w, ErrTenantMismatch)
				return
			}

			normalized := path.Clean(r.URL.Path)
			requirements := g.registry.FindPolicies(r.Method, normalized)
			if len(requirements) == 0 {
				g.decideUnmatched(w, r, actor, next, normalized)
				return
			}

			for _, req := range requirements {
				decision, err := g.evaluator.Evaluate(r.Context(), actor, req.ResourceKey, req.PermissionCode)
				if err != nil {
					g.fail(w, r, err)
					return
				}
				if !decision.Allowed() {
					g.denied(r, actor, req, normalized)
					RespondError(w, ErrForbidden)
					return
				}
				g.record(decision.Verdict.String())
			}
			next.ServeHTTP(w, r)
		})
	}
}

// decideUnmatched applies the fallback mode when no policy matched.
func (g *Gateway) decideUnmatched(w http.ResponseWriter, r *http.Request, actor Actor, next http.Handler, normalized string) {
	switch g.registry.Mode() {
	case ModeStrict:
		// Strict mode denies without consulting the admin flag.
		g.record(VerdictDeny.String())
		RespondError(w, ErrForbidden)
	default:
		admin, err := g.evaluator.IsAdmin(r.Context(), actor)
		if err != nil {
			g.fail(w, r, err)
			return
		}
		if !admin {
			g.record(VerdictDeny.String())
			RespondError(w, ErrForbidden)
			return
		}
		g.record(VerdictAllowBypass.String())
		next.ServeHTTP(w, r)
	}
}

func (g *Gateway) denied(r *http.Request, actor Actor, req Requirement, normalized string) {
	g.record(VerdictDeny.String())
	if g.sink == nil {
		return
	}
	rec := audit.NewDenialRecord(actor.TenantID, actor.UserID, req.ResourceKey, req.PermissionCode, r.Method, normalized)
	// Detach from the request context so an aborted request still
	// delivers its denial record.
	if err := g.sink.RecordDenial(context.WithoutCancel(r.Context()), rec); err != nil && g.logger != nil {
		g.logger.Error("audit sink failed", slog.Any("error", err), slog.String("record_id", rec.ID.String()))
	}
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, err error) {
	if g.logger != nil {
		g.logger.Error("permission evaluation failed",
			slog.Any("error", err),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
	}
	RespondError(w, err)
}

func (g *Gateway) record(verdict string) {
	if g.recorder != nil {
		g.recorder.DecisionRecorded(verdict)
	}
}
