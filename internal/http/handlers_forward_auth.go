package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/extranet-gate/internal/domain/auth"
	apperrors "github.com/target/extranet-gate/internal/errors"
	"github.com/target/extranet-gate/internal/observability/statsd"
	"github.com/target/extranet-gate/internal/service"
)

// AuthServiceInterface defines the auth service operations the handlers use.
type AuthServiceInterface interface {
	VerifyLocal(ctx context.Context, input service.LocalLoginInput) (domainauth.Session, error)
	BeginFederated(ctx context.Context, providerID, returnURL string) (string, error)
	CompleteFederated(ctx context.Context, input service.CompleteFederatedInput) (*service.CompleteFederatedResult, error)
	ValidateSession(ctx context.Context, sessionID string) (domainauth.Session, error)
	CompleteSecondFactor(ctx context.Context, sessionID, code string) (domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	ProviderIDs() []string
}

// PolicyInterface is the slice of the policy service the gateway needs.
type PolicyInterface interface {
	Authorize(session domainauth.Session, domain string) service.Decision
}

// ForwardAuthHandlers serves the ingress authorization contract: the
// reverse proxy sends every request here as a subrequest and acts on the
// status code.
type ForwardAuthHandlers struct {
	Auth    AuthServiceInterface
	Policy  PolicyInterface
	Cookies CookieConfig
	// ProtectedDomain is the parent domain return URLs must stay under.
	ProtectedDomain string
	// PortalURL is the external base URL of the gateway's own login
	// portal, e.g. https://auth.example.com.
	PortalURL string
	Metrics   statsd.Sink
	Logger    *slog.Logger
}

func (h *ForwardAuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *ForwardAuthHandlers) metrics() statsd.Sink {
	if h != nil && h.Metrics != nil {
		return h.Metrics
	}
	// The nil client is a no-op sink.
	return (*statsd.Client)(nil)
}

var (
	errMissingForwardedHost   = errors.New("X-Forwarded-Host is required")
	errAuthenticationRequired = errors.New("authentication required")
)

// ForwardAuth handles GET /api/authz/forward-auth.
//
// The target is taken from X-Forwarded-Proto/Host/Uri. Outcomes: 200 with
// Remote-* identity headers when the policy allows, 302 to the login
// portal for browsers that need (more) authentication, 401 for
// non-browser callers, 403 when the policy denies outright.
func (h *ForwardAuthHandlers) ForwardAuth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	target, ok := targetFromForwardedHeaders(r)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_forwarded_headers",
			Err:     errMissingForwardedHost,
		})
		return
	}

	session := h.sessionFromRequest(r)
	decision := h.Policy.Authorize(session, target.domain)

	h.logger().Info("forward-auth decision",
		slog.String("domain", target.domain),
		slog.String("uri", target.uri),
		slog.String("subject", session.Username),
		slog.String("level", session.Level().String()),
		slog.String("decision", decision.String()),
	)
	h.metrics().Count("forward_auth.decision", 1, map[string]string{"outcome": decision.String()})
	h.metrics().Timing("forward_auth.duration", time.Since(start), nil)

	switch decision {
	case service.DecisionAllow:
		h.writeAllowed(w, session)
	case service.DecisionUnauthenticated:
		h.redirectOrUnauthorized(w, r, "/auth/login", target)
	case service.DecisionSecondFactor:
		h.redirectOrUnauthorized(w, r, "/auth/2fa", target)
	default:
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "policy_denied",
			Err:     apperrors.PolicyDenied(target.domain),
		})
	}
}

// sessionFromRequest resolves the session cookie; any failure yields the
// anonymous session so policy evaluation proceeds (bypass rules still
// apply to anonymous requests).
func (h *ForwardAuthHandlers) sessionFromRequest(r *http.Request) domainauth.Session {
	id, ok := h.Cookies.SessionID(r)
	if !ok {
		return domainauth.Session{}
	}
	session, err := h.Auth.ValidateSession(r.Context(), id)
	if err != nil {
		if !apperrors.IsSessionInvalid(err) {
			// Store outages fail closed: log loudly, treat as anonymous,
			// and let the policy (default deny) decide.
			h.logger().Error("session validation failed", slog.Any("error", err))
		}
		return domainauth.Session{}
	}
	return session
}

// writeAllowed emits the 200 response with the gateway-asserted identity.
// For bypass targets reached anonymously the headers stay unset.
func (h *ForwardAuthHandlers) writeAllowed(w http.ResponseWriter, session domainauth.Session) {
	if session.ID != "" {
		w.Header().Set("Remote-User", session.Username)
		w.Header().Set("Remote-Name", session.DisplayName)
		w.Header().Set("Remote-Email", session.Email)
		w.Header().Set("Remote-Groups", strings.Join(session.Groups, ","))
	}
	w.WriteHeader(http.StatusOK)
}

// redirectOrUnauthorized sends browsers into the login flow with the
// original URL as the return target; non-browser callers get a plain 401.
func (h *ForwardAuthHandlers) redirectOrUnauthorized(w http.ResponseWriter, r *http.Request, portalPath string, target forwardedTarget) {
	if !isBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errAuthenticationRequired,
		})
		return
	}

	loginURL := h.PortalURL + portalPath
	if rd, err := SafeReturnURL(target.originalURL(), h.ProtectedDomain); err == nil {
		loginURL += "?rd=" + url.QueryEscape(rd)
	} else {
		h.logger().Warn("rejected return target", slog.String("target", target.originalURL()))
	}
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// forwardedTarget is the original request as described by the proxy.
type forwardedTarget struct {
	proto  string
	host   string
	domain string
	uri    string
}

func (t forwardedTarget) originalURL() string {
	return t.proto + "://" + t.host + t.uri
}

// targetFromForwardedHeaders derives the original request target from the
// X-Forwarded-* headers set by the reverse proxy.
func targetFromForwardedHeaders(r *http.Request) (forwardedTarget, bool) {
	host := strings.TrimSpace(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		return forwardedTarget{}, false
	}

	proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")))
	if proto != "http" {
		proto = "https"
	}

	uri := r.Header.Get("X-Forwarded-Uri")
	if uri == "" || !strings.HasPrefix(uri, "/") {
		uri = "/"
	}

	domain := strings.ToLower(host)
	if i := strings.LastIndex(domain, ":"); i != -1 && !strings.Contains(domain[i:], "]") {
		domain = domain[:i]
	}

	return forwardedTarget{proto: proto, host: host, domain: domain, uri: uri}, true
}
