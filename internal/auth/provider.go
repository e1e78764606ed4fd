// Package auth talks to the OAuth providers and decides who may change what.
//
// CONNECT FLOW (per provider):
//  1. The login page hands the browser an anti-forgery state token.
//  2. The provider's JS SDK returns a one-time credential to the browser,
//     which posts it to /gconnect or /fbconnect together with the state.
//  3. The server exchanges the credential, introspects the resulting token,
//     checks identity binding and audience, then fetches the profile.
//
// This package implements the provider calls (Exchange, Introspect,
// Profile, Revoke). The sequencing and the session/user bookkeeping live in
// service.AuthService.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound provider call.
const DefaultTimeout = 10 * time.Second

// ErrExchange is returned when the provider refuses to trade the browser's
// credential for an access token.
var ErrExchange = errors.New("auth: credential exchange failed")

// ProviderError carries an error reported in a provider response body. Its
// Message is passed through to the client unchanged.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth: %s reported: %s", e.Provider, e.Message)
}

// CallbackRequest is what the browser posts to a connect endpoint.
type CallbackRequest struct {
	// Payload is the one-time authorization code (Google) or the
	// short-lived user access token (Facebook).
	Payload string
	// DeclaredUserID is the provider user ID reported by the JS SDK next to
	// the token. Only Facebook uses it.
	DeclaredUserID string
}

// Credentials is the result of a successful exchange.
type Credentials struct {
	AccessToken string
	// SubjectID is the provider user the credentials were issued for.
	SubjectID string
}

// TokenInfo is the introspection result for an access token.
type TokenInfo struct {
	UserID   string
	Audience string // client/app ID the token was issued to
}

// Profile is the normalized user profile.
type Profile struct {
	Name    string
	Email   string
	Picture string
}

// Provider is one OAuth identity provider.
type Provider interface {
	Name() string
	// ClientID is this application's ID at the provider. Introspected
	// tokens must carry it as their audience.
	ClientID() string
	Exchange(ctx context.Context, req CallbackRequest) (*Credentials, error)
	Introspect(ctx context.Context, accessToken string) (*TokenInfo, error)
	Profile(ctx context.Context, accessToken string) (*Profile, error)
	Revoke(ctx context.Context, accessToken, providerUserID string) error
}

// NewHTTPClient returns the client used for provider calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doJSON sends req and decodes the JSON body into out whatever the status
// code: providers describe failures in the body. The status is returned for
// the caller to judge.
func doJSON(client *http.Client, req *http.Request, out any) (int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("auth: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("auth: reading %s response: %w", req.URL.Path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("auth: decoding %s response (status %d): %w", req.URL.Path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

// getJSON is doJSON for a GET request.
func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("auth: building request: %w", err)
	}
	return doJSON(client, req, out)
}
