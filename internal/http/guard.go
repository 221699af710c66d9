package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/observability/metrics"
	"github.com/edbridge/portal-api/internal/observability/statsd"
	"github.com/edbridge/portal-api/internal/ports"
)

// Guard is the request-pipeline interceptor enforcing role-based access.
// Routes declare their required roles explicitly at registration time; a
// route registered with no roles is public and bypasses the guard entirely,
// which keeps "protected vs public" an auditable annotation rather than an
// implicit convention.
type Guard struct {
	verifier ports.TokenVerifier
	resolver ports.MembershipResolver
	logger   *slog.Logger
	metrics  statsd.Sink
}

// GuardOptions groups dependencies for NewGuard.
type GuardOptions struct {
	Verifier ports.TokenVerifier
	Resolver ports.MembershipResolver
	Logger   *slog.Logger
	Metrics  statsd.Sink // optional
}

// NewGuard constructs a Guard.
func NewGuard(opts GuardOptions) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		verifier: opts.Verifier,
		resolver: opts.Resolver,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Require returns a middleware allowing only the named roles. With no roles
// it is a no-op: the route is public.
func (g *Guard) Require(roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(roles) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			identity, decision, err := g.evaluate(r, roles)
			g.observe(r, decision, err, time.Since(start))
			if !decision.Allowed {
				g.deny(w, decision, err)
				return
			}
			ctx := SetIdentityInContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// evaluate runs the verify -> resolve -> compare pipeline for one request.
// The identity is derived fresh on every call and never cached server-side.
func (g *Guard) evaluate(r *http.Request, roles []domainauth.Role) (*domainauth.ResolvedIdentity, domainauth.AccessDecision, error) {
	rawToken, ok := bearerToken(r)
	if !ok {
		return nil, domainauth.Deny(domainauth.ReasonNoIdentity), nil
	}

	claim, err := g.verifier.Verify(r.Context(), rawToken, domainauth.TokenUseAccess)
	if err != nil {
		return nil, domainauth.Deny(domainauth.ReasonNoIdentity), err
	}

	identity, err := g.resolver.Resolve(r.Context(), claim)
	if err != nil {
		var ae *domainauth.AuthzError
		if errors.As(err, &ae) {
			return nil, domainauth.Deny(ae.DecisionReason()), err
		}
		return nil, domainauth.Deny(domainauth.ReasonNoIdentity), err
	}

	for _, role := range roles {
		if identity.Role == role {
			return &identity, domainauth.Allow(domainauth.ReasonRoleMatch), nil
		}
	}
	return nil, domainauth.Deny(domainauth.ReasonRoleMismatch), nil
}

// deny writes the denial. Token problems are 401; authorization problems are
// 403. The response always carries the distinguishing reason so clients can
// tell "refresh and retry" from "hard logout".
func (g *Guard) deny(w http.ResponseWriter, decision domainauth.AccessDecision, cause error) {
	status := http.StatusForbidden
	errCode := string(decision.Reason)

	if decision.Reason == domainauth.ReasonNoIdentity {
		status = http.StatusUnauthorized
		if te, ok := domainauth.AsTokenError(cause); ok {
			errCode = "token_" + string(te.Code)
		}
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: errCode, Err: errors.New(http.StatusText(status))})
}

// observe logs and counts every decision for audit. The precise reason stays
// internal; clients only see the status and error code.
func (g *Guard) observe(r *http.Request, decision domainauth.AccessDecision, cause error, elapsed time.Duration) {
	if !decision.Allowed {
		g.logger.InfoContext(r.Context(), "access denied",
			"path", r.URL.Path,
			"method", r.Method,
			"reason", string(decision.Reason),
		)
	}
	metrics.EmitAuthDecision(g.metrics, metrics.AuthDecisionMetric{
		Allowed:  decision.Allowed,
		Reason:   string(decision.Reason),
		Duration: elapsed,
		Err:      cause,
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
