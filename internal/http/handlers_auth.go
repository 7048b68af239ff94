package httpx

import (
	"log/slog"
	"net/http"

	apperrors "github.com/target/extranet-gate/internal/errors"
	"github.com/target/extranet-gate/internal/observability/statsd"
	"github.com/target/extranet-gate/internal/service"
)

// AuthHandlers provides the portal endpoints: local login, the federated
// flow, second factor, logout, and session introspection.
type AuthHandlers struct {
	Svc     AuthServiceInterface
	Cookies CookieConfig
	// ProtectedDomain bounds redirect_uri / rd targets.
	ProtectedDomain string
	Metrics         statsd.Sink
	Logger          *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) metrics() statsd.Sink {
	if h != nil && h.Metrics != nil {
		return h.Metrics
	}
	return (*statsd.Client)(nil)
}

// loginRequest is the POST /auth/login body.
type loginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	RememberMe  bool   `json:"remember_me"`
	RedirectURI string `json:"redirect_uri"`
}

// Login handles POST /auth/login: local credential verification.
// On success the session cookie is set and the validated post-login
// destination is returned for the portal UI to navigate to.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	session, err := h.Svc.VerifyLocal(r.Context(), service.LocalLoginInput{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		h.metrics().Count("auth.login", 1, map[string]string{"method": "local", "outcome": "failure"})
		if !apperrors.IsInvalidCredentials(err) && !apperrors.IsTooManyAttempts(err) {
			h.logger().ErrorContext(r.Context(), "local login failed", slog.Any("error", err))
		}
		WriteAppError(w, err)
		return
	}

	h.metrics().Count("auth.login", 1, map[string]string{"method": "local", "outcome": "success"})
	h.Cookies.SetSession(w, session)
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"redirect_to":   h.safeRedirect(req.RedirectURI),
		"second_factor": session.SecondFactor,
	})
}

// Providers handles GET /auth/providers: the available login methods.
func (h *AuthHandlers) Providers(w http.ResponseWriter, _ *http.Request) {
	ids := h.Svc.ProviderIDs()
	if ids == nil {
		ids = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"local":     true,
		"federated": ids,
	})
}

// OIDCBegin handles GET /auth/oidc/{provider}?rd=: it starts the
// federated flow and sends the browser to the provider.
func (h *AuthHandlers) OIDCBegin(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("provider")
	returnURL := h.safeRedirect(r.URL.Query().Get("rd"))

	authURL, err := h.Svc.BeginFederated(r.Context(), providerID, returnURL)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin federated login failed",
			slog.String("provider", providerID), slog.Any("error", err))
		WriteAppError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OIDCCallback handles GET /auth/oidc/{provider}/callback?code&state.
// Failures redirect back to the login page with a generic error marker;
// the provider detail stays in the logs.
func (h *AuthHandlers) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("provider")
	q := r.URL.Query()

	result, err := h.Svc.CompleteFederated(r.Context(), service.CompleteFederatedInput{
		ProviderID: providerID,
		Code:       q.Get("code"),
		State:      q.Get("state"),
	})
	if err != nil {
		h.metrics().Count("auth.login", 1, map[string]string{"method": "federated", "outcome": "failure"})
		h.logger().ErrorContext(r.Context(), "federated login failed",
			slog.String("provider", providerID), slog.Any("error", err))
		http.Redirect(w, r, "/auth/login?error=login_failed", http.StatusFound)
		return
	}

	h.metrics().Count("auth.login", 1, map[string]string{"method": "federated", "outcome": "success"})
	h.Cookies.SetSession(w, result.Session)
	http.Redirect(w, r, h.safeRedirect(result.ReturnURL), http.StatusFound)
}

// secondFactorRequest is the POST /auth/2fa body.
type secondFactorRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// SecondFactor handles POST /auth/2fa: it verifies a one-time code and
// upgrades the current session.
func (h *AuthHandlers) SecondFactor(w http.ResponseWriter, r *http.Request) {
	var req secondFactorRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	id, ok := h.Cookies.SessionID(r)
	if !ok {
		WriteAppError(w, apperrors.SessionNotFound())
		return
	}

	session, err := h.Svc.CompleteSecondFactor(r.Context(), id, req.Code)
	if err != nil {
		h.metrics().Count("auth.second_factor", 1, map[string]string{"outcome": "failure"})
		WriteAppError(w, err)
		return
	}

	h.metrics().Count("auth.second_factor", 1, map[string]string{"outcome": "success"})
	h.Cookies.SetSession(w, session)
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"redirect_to": h.safeRedirect(req.RedirectURI),
	})
}

// Logout handles POST /auth/logout. Idempotent: a missing or already
// revoked session still clears the cookie and reports success.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.Cookies.SessionID(r); ok {
		if err := h.Svc.Logout(r.Context(), id); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", slog.Any("error", err))
		}
	}
	h.Cookies.Clear(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /auth/status: session introspection for the portal.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Cookies.SessionID(r)
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	session, err := h.Svc.ValidateSession(r.Context(), id)
	if err != nil {
		if apperrors.IsSessionInvalid(err) {
			h.Cookies.Clear(w)
			WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"username":     session.Username,
			"display_name": session.DisplayName,
			"email":        session.Email,
			"groups":       session.Groups,
		},
		"method":        session.Method,
		"second_factor": session.SecondFactor,
		"expires_at":    session.ExpiresAt,
	})
}

// safeRedirect validates a caller-supplied destination, falling back to
// the portal root and logging rejected targets.
func (h *AuthHandlers) safeRedirect(raw string) string {
	if raw == "" {
		return "/"
	}
	rd, err := SafeReturnURL(raw, h.ProtectedDomain)
	if err != nil {
		h.logger().Warn("rejected redirect target", slog.String("target", raw))
		return "/"
	}
	return rd
}
