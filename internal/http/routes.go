package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Provisioning *service.ProvisioningService
	Users        AccountStatusWriter
	Guard        *Guard
	Logger       *slog.Logger // optional
}

// NewRouter creates and configures a new HTTP router. Every route's required
// roles are declared here, at registration time; routes registered through
// public() carry no requirement and bypass the guard by design.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	guard := services.Guard

	authHandlers := &AuthHandlers{Svc: services.Auth, Logger: services.Logger}
	userHandlers := &UserHandlers{Provisioning: services.Provisioning, Users: services.Users}

	public := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, h)
	}
	protected := func(pattern string, h http.HandlerFunc, roles ...domainauth.Role) {
		mux.Handle(pattern, guard.Require(roles...)(h))
	}

	// Authentication surface (public by declaration).
	public("POST /api/auth/login", authHandlers.Login)
	public("POST /api/auth/refresh", authHandlers.Refresh)
	public("POST /api/auth/forgot", authHandlers.ForgotPassword)
	public("POST /api/auth/reset", authHandlers.ResetPassword)
	public("POST /api/auth/logout", authHandlers.Logout)

	// Identity introspection: any provisioned role.
	protected("GET /api/me", userHandlers.Me,
		domainauth.RoleAdmin, domainauth.RoleCorporate, domainauth.RoleStudent)

	// Administrative provisioning surface.
	protected("POST /api/admin/users", userHandlers.ProvisionUser, domainauth.RoleAdmin)
	protected("PATCH /api/admin/users/{id}/status", userHandlers.UpdateStatus, domainauth.RoleAdmin)
	protected("GET /api/admin/provisioning/orphans", userHandlers.Orphans, domainauth.RoleAdmin)
	protected("DELETE /api/admin/provisioning/orphans/{id}", userHandlers.ResolveOrphan, domainauth.RoleAdmin)

	public("GET /healthz", healthHandler)
	public("HEAD /healthz", healthHandler)

	return mux
}
