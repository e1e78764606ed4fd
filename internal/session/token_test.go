package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func TestNewTokenSigner_ShortSecret(t *testing.T) {
	_, err := NewTokenSigner("short")
	assert.Error(t, err)
}

func TestTokenSigner_RoundTrip(t *testing.T) {
	s, err := NewTokenSigner(testSecret)
	require.NoError(t, err)

	token, err := s.Sign("sess-1", time.Hour)
	require.NoError(t, err)

	id, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
}

func TestTokenSigner_Rejects(t *testing.T) {
	s, err := NewTokenSigner(testSecret)
	require.NoError(t, err)
	other, err := NewTokenSigner("another-secret-of-length")
	require.NoError(t, err)

	expired, err := s.Sign("sess-1", -time.Minute)
	require.NoError(t, err)

	foreign, err := other.Sign("sess-1", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "sess-1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "sess-1",
		Issuer:  tokenIssuer,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"other secret": foreign,
		"wrong issuer": wrongIssuer,
		"no expiry":    noExpiry,
		"garbage":      "not-a-jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(token)
			assert.Error(t, err)
		})
	}
}
