package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeReturnURL(t *testing.T) {
	const domain = "example.com"

	accepted := []string{
		"/",
		"/dashboard",
		"/reports?q=1&page=2",
		"https://app.example.com/home",
		"https://example.com/",
		"http://legacy.example.com/app",
		"https://deep.nested.example.com/x",
	}
	for _, raw := range accepted {
		got, err := SafeReturnURL(raw, domain)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, got)
	}

	rejected := []string{
		"",
		"//evil.com/",
		"//evil.com",
		"https://evil.com/",
		"https://example.com.evil.com/",
		"https://notexample.com/",
		"javascript:alert(1)",
		"ftp://app.example.com/",
		"relative-without-slash",
		"http://%zz",
	}
	for _, raw := range rejected {
		_, err := SafeReturnURL(raw, domain)
		assert.Error(t, err, raw)
	}
}

func TestSafeReturnURL_TrailingDotHostStillMatches(t *testing.T) {
	// Hosts are normalized before comparison, so the dotted form of a
	// legitimate subdomain is accepted.
	got, err := SafeReturnURL("https://app.example.com./x", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com./x", got)
}

func TestHostWithinDomain(t *testing.T) {
	assert.True(t, HostWithinDomain("app.example.com", "example.com"))
	assert.True(t, HostWithinDomain("APP.Example.COM", "example.com"))
	assert.True(t, HostWithinDomain("example.com", "example.com"))
	assert.True(t, HostWithinDomain("a.b.example.com", "example.com"))

	assert.False(t, HostWithinDomain("example.com.evil.com", "example.com"))
	assert.False(t, HostWithinDomain("notexample.com", "example.com"))
	assert.False(t, HostWithinDomain("", "example.com"))
	assert.False(t, HostWithinDomain("app.example.com", ""))
}

func TestHostWithinDomain_PublicSuffixNeverMatches(t *testing.T) {
	// Configuring a bare public suffix as the protected domain must not
	// turn the whole TLD into a valid redirect target.
	assert.False(t, HostWithinDomain("evil.com", "com"))
	assert.False(t, HostWithinDomain("evil.co.uk", "co.uk"))
	assert.False(t, HostWithinDomain("anything.github.io", "github.io"))
}
