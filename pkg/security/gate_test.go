package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertAllowed(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		allowlist []string
		wantErr   bool
	}{
		{
			name:      "empty allowlist permits anything",
			url:       "https://anywhere.example.net/page",
			allowlist: nil,
			wantErr:   false,
		},
		{
			name:      "exact hostname match",
			url:       "https://example.com/login",
			allowlist: []string{"example.com"},
			wantErr:   false,
		},
		{
			name:      "exact match is case-insensitive",
			url:       "https://App.Example.COM",
			allowlist: []string{"app.example.com"},
			wantErr:   false,
		},
		{
			name:      "wildcard matches bare domain",
			url:       "https://example.com",
			allowlist: []string{"*.example.com"},
			wantErr:   false,
		},
		{
			name:      "wildcard matches subdomain",
			url:       "https://app.example.com/dashboard",
			allowlist: []string{"*.example.com"},
			wantErr:   false,
		},
		{
			name:      "wildcard matches nested subdomain",
			url:       "https://a.b.example.com",
			allowlist: []string{"*.example.com"},
			wantErr:   false,
		},
		{
			name:      "unrelated host rejected",
			url:       "https://evil.com",
			allowlist: []string{"*.example.com"},
			wantErr:   true,
		},
		{
			name:      "suffix trick rejected",
			url:       "https://notexample.com",
			allowlist: []string{"example.com"},
			wantErr:   true,
		},
		{
			name:      "unparseable url rejected when allowlist set",
			url:       "::not a url::",
			allowlist: []string{"example.com"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssertAllowed(tt.url, tt.allowlist, "checkout-flow")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestViolationErrorNamesFlowAndURL(t *testing.T) {
	err := AssertAllowed("https://evil.com/phish", []string{"example.com", "*.shop.example.com"}, "checkout-flow")
	require.Error(t, err)

	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "checkout-flow", violation.Flow)
	assert.Equal(t, "https://evil.com/phish", violation.URL)

	msg := err.Error()
	assert.Contains(t, msg, "checkout-flow")
	assert.Contains(t, msg, "https://evil.com/phish")
	assert.Contains(t, msg, "example.com")
}
