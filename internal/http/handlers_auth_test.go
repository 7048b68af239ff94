package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, handler http.Handler, path string, body map[string]any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLogin_SuccessSetsCookieAndRedirect(t *testing.T) {
	f := newGatewayFixture(t)
	f.seedUser(t, "alice", "hunter2")

	rec := postJSON(t, f.handler, "/auth/login", map[string]any{
		"username":     "alice",
		"password":     "hunter2",
		"redirect_uri": "https://app.example.com/reports",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "https://app.example.com/reports", body["redirect_to"])

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	c := cookies[0]
	assert.Equal(t, DefaultSessionCookieName, c.Name)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, "example.com", c.Domain)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Positive(t, c.MaxAge)
}

func TestLogin_WrongPasswordIsGeneric401(t *testing.T) {
	f := newGatewayFixture(t)
	f.seedUser(t, "alice", "hunter2")

	rec := postJSON(t, f.handler, "/auth/login", map[string]any{
		"username": "alice",
		"password": "wrong",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// The body must not reveal whether the user exists.
	assert.Contains(t, rec.Body.String(), "authentication_failed")
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_UnsafeRedirectFallsBackToRoot(t *testing.T) {
	f := newGatewayFixture(t)
	f.seedUser(t, "alice", "hunter2")

	rec := postJSON(t, f.handler, "/auth/login", map[string]any{
		"username":     "alice",
		"password":     "hunter2",
		"redirect_uri": "https://evil.com/phish",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", decodeBody(t, rec)["redirect_to"])
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newGatewayFixture(t)
	f.seedUser(t, "alice", "hunter2")

	for range 3 {
		rec := postJSON(t, f.handler, "/auth/login", map[string]any{
			"username": "alice", "password": "wrong",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := postJSON(t, f.handler, "/auth/login", map[string]any{
		"username": "alice", "password": "hunter2",
	}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestProviders_ListsFederatedIDs(t *testing.T) {
	f := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/providers", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["local"])
	assert.Equal(t, []any{"corp"}, body["federated"])
}

func TestOIDC_BeginRedirectsToProvider(t *testing.T) {
	f := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/oidc/corp?rd=/dashboard", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://idp.example.com/authorize?state="), loc)
}

func TestOIDC_BeginUnknownProvider(t *testing.T) {
	f := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/oidc/nope", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOIDC_CallbackCompletesLogin(t *testing.T) {
	f := newGatewayFixture(t)

	beginReq := httptest.NewRequest(http.MethodGet, "/auth/oidc/corp?rd=https://app.example.com/home", nil)
	beginRec := httptest.NewRecorder()
	f.handler.ServeHTTP(beginRec, beginReq)
	require.Equal(t, http.StatusFound, beginRec.Code)

	authURL, err := url.Parse(beginRec.Header().Get("Location"))
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	cbReq := httptest.NewRequest(http.MethodGet,
		"/auth/oidc/corp/callback?code=authcode&state="+url.QueryEscape(state), nil)
	cbRec := httptest.NewRecorder()
	f.handler.ServeHTTP(cbRec, cbReq)

	require.Equal(t, http.StatusFound, cbRec.Code)
	assert.Equal(t, "https://app.example.com/home", cbRec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range cbRec.Result().Cookies() {
		if c.Name == DefaultSessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.NotEmpty(t, sessionCookie.Value)
}

func TestOIDC_CallbackBadStateRedirectsToLogin(t *testing.T) {
	f := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/oidc/corp/callback?code=x&state=forged", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?error=login_failed", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestSecondFactor_UpgradesSession(t *testing.T) {
	f := newGatewayFixture(t)
	identity := f.seedUser(t, "alice", "hunter2", "admins")
	f.identities.SetTOTPSecret(identity.ID, []byte("12345678901234567890"))
	cookie := f.login(t, "alice", "hunter2")

	rec := postJSON(t, f.handler, "/auth/2fa", map[string]any{"code": "000000"}, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, f.handler, "/auth/2fa", map[string]any{"code": "123456"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	statusReq := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	statusReq.AddCookie(cookie)
	statusRec := httptest.NewRecorder()
	f.handler.ServeHTTP(statusRec, statusReq)

	body := decodeBody(t, statusRec)
	assert.Equal(t, true, body["second_factor"])
}

func TestSecondFactor_NoSession(t *testing.T) {
	f := newGatewayFixture(t)

	rec := postJSON(t, f.handler, "/auth/2fa", map[string]any{"code": "123456"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookieAndIsIdempotent(t *testing.T) {
	f := newGatewayFixture(t)
	f.seedUser(t, "alice", "hunter2")
	cookie := f.login(t, "alice", "hunter2")

	rec := postJSON(t, f.handler, "/auth/logout", map[string]any{}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Negative(t, cleared[0].MaxAge)

	// The old cookie no longer authenticates.
	fwd := httptest.NewRecorder()
	f.handler.ServeHTTP(fwd, forwardAuthRequest("app.example.com", "/", cookie))
	assert.Equal(t, http.StatusUnauthorized, fwd.Code)

	// Logging out again still succeeds.
	rec = postJSON(t, f.handler, "/auth/logout", map[string]any{}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatus_Anonymous(t *testing.T) {
	f := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["authenticated"])
}

func TestStatus_Authenticated(t *testing.T) {
	f := newGatewayFixture(t)
	f.seedUser(t, "alice", "hunter2", "employees")
	cookie := f.login(t, "alice", "hunter2")

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["authenticated"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
}

func TestStatus_StaleCookieIsClearedAndAnonymous(t *testing.T) {
	f := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: "stale"})
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["authenticated"])
	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestHealthz(t *testing.T) {
	f := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
