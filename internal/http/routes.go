package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/extranet-gate/internal/observability/statsd"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth    AuthServiceInterface
	Policy  PolicyInterface
	Cookies CookieConfig
	// ProtectedDomain is the parent domain shared by every proxied
	// application; redirect targets must stay under it.
	ProtectedDomain string
	// PortalURL is the external base URL of the gateway itself.
	PortalURL string
	Metrics   statsd.Sink
	Logger    *slog.Logger
}

// NewRouter wires the forward-auth endpoint, the portal auth routes, and
// the health check behind the shared middleware chain.
func NewRouter(services RouterServices) http.Handler {
	if services.Logger == nil {
		services.Logger = slog.Default()
	}
	mux := http.NewServeMux()

	forwardAuth := &ForwardAuthHandlers{
		Auth:            services.Auth,
		Policy:          services.Policy,
		Cookies:         services.Cookies,
		ProtectedDomain: services.ProtectedDomain,
		PortalURL:       services.PortalURL,
		Metrics:         services.Metrics,
		Logger:          services.Logger,
	}
	authHandlers := &AuthHandlers{
		Svc:             services.Auth,
		Cookies:         services.Cookies,
		ProtectedDomain: services.ProtectedDomain,
		Metrics:         services.Metrics,
		Logger:          services.Logger,
	}

	mux.Handle("GET /api/authz/forward-auth", http.HandlerFunc(forwardAuth.ForwardAuth))

	registerAuthRoutes(mux, authHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = StripUntrustedHeaders()(handler)
	handler = Logging(services.Logger)(handler)
	handler = Recover(services.Logger)(handler)
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.Handle("POST /auth/login", http.HandlerFunc(h.Login))
	mux.Handle("POST /auth/2fa", http.HandlerFunc(h.SecondFactor))
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("GET /auth/status", http.HandlerFunc(h.Status))
	mux.Handle("GET /auth/providers", http.HandlerFunc(h.Providers))
	mux.Handle("GET /auth/oidc/{provider}", http.HandlerFunc(h.OIDCBegin))
	mux.Handle("GET /auth/oidc/{provider}/callback", http.HandlerFunc(h.OIDCCallback))
}
