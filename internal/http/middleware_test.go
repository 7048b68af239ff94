package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripUntrustedHeaders(t *testing.T) {
	var seen http.Header
	handler := StripUntrustedHeaders()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Remote-User", "mallory")
	req.Header.Set("Remote-Name", "Mallory")
	req.Header.Set("Remote-Email", "mallory@evil.com")
	req.Header.Set("Remote-Groups", "admins")
	req.Header.Set("X-Forwarded-Host", "app.example.com")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, seen.Get("Remote-User"))
	assert.Empty(t, seen.Get("Remote-Name"))
	assert.Empty(t, seen.Get("Remote-Email"))
	assert.Empty(t, seen.Get("Remote-Groups"))
	assert.Equal(t, "app.example.com", seen.Get("X-Forwarded-Host"))
}

func TestIsBrowserRequest(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"navigation", map[string]string{"Sec-Fetch-Mode": "navigate", "Accept": "text/html"}, true},
		{"xhr with html accept", map[string]string{"Sec-Fetch-Mode": "cors", "Accept": "text/html"}, false},
		{"old browser without fetch metadata", map[string]string{"Accept": "text/html,application/xhtml+xml"}, true},
		{"api client", map[string]string{"Accept": "application/json"}, false},
		{"no headers", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, isBrowserRequest(req))
		})
	}
}
