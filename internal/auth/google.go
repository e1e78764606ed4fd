package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleTokenInfoURL = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v1/userinfo"
	googleRevokeURL    = "https://accounts.google.com/o/oauth2/revoke"

	// The Google JS SDK's one-time codes are bound to this pseudo redirect.
	googleRedirectURL = "postmessage"
)

// GoogleConfig holds the Google client credentials and endpoints. Zero
// endpoint fields fall back to Google's production URLs.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string

	Endpoint     oauth2.Endpoint
	TokenInfoURL string
	UserInfoURL  string
	RevokeURL    string
}

// GoogleConfigFromFile reads a client-secrets JSON file as downloaded from
// the Google API console.
func GoogleConfigFromFile(path string) (GoogleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GoogleConfig{}, fmt.Errorf("auth: reading google client secrets: %w", err)
	}

	conf, err := google.ConfigFromJSON(data)
	if err != nil {
		return GoogleConfig{}, fmt.Errorf("auth: parsing google client secrets: %w", err)
	}

	return GoogleConfig{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Endpoint:     conf.Endpoint,
	}, nil
}

// GoogleProvider implements Provider with golang.org/x/oauth2 for the code
// exchange and the v1 tokeninfo/userinfo endpoints for the rest.
type GoogleProvider struct {
	config       *oauth2.Config
	client       *http.Client
	tokenInfoURL string
	userInfoURL  string
	revokeURL    string
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider builds the Google connector.
//
// Any URL left empty in cfg falls back to Google's production endpoint; tests
// point them at an httptest server instead. The redirect URL is always
// "postmessage": the login page obtains the code through the JS SDK popup,
// so no browser redirect ever reaches this server.
//
// client is shared with the other providers and carries the OAUTH_TIMEOUT
// deadline. A nil client gets one with DefaultTimeout.
func NewGoogleProvider(cfg GoogleConfig, client *http.Client) *GoogleProvider {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  googleRedirectURL,
			Endpoint:     cfg.Endpoint,
		},
		client:       client,
		tokenInfoURL: orDefault(cfg.TokenInfoURL, googleTokenInfoURL),
		userInfoURL:  orDefault(cfg.UserInfoURL, googleUserInfoURL),
		revokeURL:    orDefault(cfg.RevokeURL, googleRevokeURL),
	}
}

func (p *GoogleProvider) Name() string     { return "google" }
func (p *GoogleProvider) ClientID() string { return p.config.ClientID }

// Exchange trades the one-time authorization code for an access token. The
// Google account ID comes from the "sub" claim of the id_token returned
// alongside it.
func (p *GoogleProvider) Exchange(ctx context.Context, req CallbackRequest) (*Credentials, error) {
	code := strings.TrimSpace(req.Payload)
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", ErrExchange)
	}

	// oauth2 picks the HTTP client up from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("%w: response carried no id_token", ErrExchange)
	}

	// The id_token arrived straight from the token endpoint over TLS; its
	// claims are only used to bind the identity, which Introspect confirms.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed id_token: %v", ErrExchange, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: id_token has no subject", ErrExchange)
	}

	return &Credentials{AccessToken: token.AccessToken, SubjectID: sub}, nil
}

type googleTokenInfo struct {
	IssuedTo         string `json:"issued_to"`
	Audience         string `json:"audience"`
	UserID           string `json:"user_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Introspect asks the tokeninfo endpoint who the token was issued to and
// for which client. An "error" field in the reply becomes a ProviderError.
func (p *GoogleProvider) Introspect(ctx context.Context, accessToken string) (*TokenInfo, error) {
	u := p.tokenInfoURL + "?" + url.Values{"access_token": {accessToken}}.Encode()

	var info googleTokenInfo
	status, err := getJSON(ctx, p.client, u, &info)
	if err != nil {
		return nil, err
	}
	if info.Error != "" {
		return nil, &ProviderError{Provider: p.Name(), Message: info.Error}
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Message: fmt.Sprintf("tokeninfo returned status %d", status)}
	}

	return &TokenInfo{UserID: info.UserID, Audience: info.IssuedTo}, nil
}

type googleUserInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Profile fetches name, email and picture from the userinfo endpoint.
func (p *GoogleProvider) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	u := p.userInfoURL + "?" + url.Values{
		"access_token": {accessToken},
		"alt":          {"json"},
	}.Encode()

	var info googleUserInfo
	status, err := getJSON(ctx, p.client, u, &info)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("auth: google userinfo returned status %d", status)
	}
	if info.Email == "" || info.Name == "" {
		return nil, fmt.Errorf("auth: google userinfo is missing name or email")
	}

	return &Profile{Name: info.Name, Email: info.Email, Picture: info.Picture}, nil
}

// Revoke invalidates the access token at Google.
func (p *GoogleProvider) Revoke(ctx context.Context, accessToken, _ string) error {
	u := p.revokeURL + "?" + url.Values{"token": {accessToken}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("auth: building revoke request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: revoking google token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: google revoke returned status %d", resp.StatusCode)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
