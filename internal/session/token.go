package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "item-catalog"

// TokenSigner signs the session cookie. The cookie value is an HS256 JWT
// whose subject is the session ID, so a client cannot forge or guess another
// client's session ID.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner creates a TokenSigner. The secret must be at least 16
// characters.
func NewTokenSigner(secret string) (*TokenSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("session: secret must be at least 16 characters")
	}
	return &TokenSigner{secret: []byte(secret)}, nil
}

// Sign returns a token naming sessionID that expires after ttl.
func (s *TokenSigner) Sign(sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("session: signing token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the session ID.
func (s *TokenSigner) Verify(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("session: token expired")
		}
		return "", fmt.Errorf("session: invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("session: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("session: token has no subject")
	}

	return c.Subject, nil
}
