package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksUnauthenticated(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		url  string
		body string
		want bool
	}{
		{"login path", "https://example.com/login?next=/cart", "", true},
		{"auth path", "https://id.example.com/auth/realms/app", "", true},
		{"signin path", "https://example.com/signin", "", true},
		{"session expired phrase", "https://example.com/cart", "Your session expired, sorry.", true},
		{"please log in phrase", "https://example.com/cart", "Please log in to continue", true},
		{"unauthorized phrase uppercase", "https://example.com/api", "401 UNAUTHORIZED", true},
		{"access denied phrase", "https://example.com/admin", "Access Denied", true},
		{"ordinary page", "https://example.com/products/42", "Add to cart", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.LooksUnauthenticated(tt.url, tt.body))
		})
	}
}

type stubRecoverer struct {
	err   error
	calls int
}

func (s *stubRecoverer) RunAuthFlow(ctx context.Context, flowName, loginURL string) error {
	s.calls++
	return s.err
}

func TestRecoverSuccess(t *testing.T) {
	r := &stubRecoverer{}
	require.NoError(t, Recover(context.Background(), r, "checkout", "https://example.com/login"))
	assert.Equal(t, 1, r.calls)
}

func TestRecoverWrapsFailure(t *testing.T) {
	cause := errors.New("bad credentials")
	r := &stubRecoverer{err: cause}

	err := Recover(context.Background(), r, "checkout", "https://example.com/login")
	require.Error(t, err)

	var recoveryErr *RecoveryError
	require.ErrorAs(t, err, &recoveryErr)
	assert.Equal(t, "checkout", recoveryErr.Flow)
	require.ErrorIs(t, err, cause)
}

func TestRecoverWithoutRecoverer(t *testing.T) {
	err := Recover(context.Background(), nil, "checkout", "")
	var recoveryErr *RecoveryError
	require.ErrorAs(t, err, &recoveryErr)
}
