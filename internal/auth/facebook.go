package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const facebookGraphURL = "https://graph.facebook.com/v2.9"

// FacebookConfig holds the Facebook app credentials. GraphURL defaults to
// the Graph API version the login page's SDK is pinned to.
type FacebookConfig struct {
	AppID     string
	AppSecret string
	GraphURL  string
}

// FacebookProvider implements Provider on top of the Graph API. The browser
// already holds a short-lived user token from the JS SDK; Exchange upgrades
// it to a long-lived server-side token.
type FacebookProvider struct {
	appID     string
	appSecret string
	graphURL  string
	client    *http.Client
}

var _ Provider = (*FacebookProvider)(nil)

// NewFacebookProvider builds the Facebook connector. The app secret is used
// twice: to upgrade the short-lived token and, as "appID|appSecret", as the
// app access token for debug_token.
func NewFacebookProvider(cfg FacebookConfig, client *http.Client) *FacebookProvider {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &FacebookProvider{
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		graphURL:  strings.TrimRight(orDefault(cfg.GraphURL, facebookGraphURL), "/"),
		client:    client,
	}
}

func (p *FacebookProvider) Name() string     { return "facebook" }
func (p *FacebookProvider) ClientID() string { return p.appID }

// graphError is the error object the Graph API embeds in failed responses.
type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type facebookExchange struct {
	AccessToken string      `json:"access_token"`
	Error       *graphError `json:"error"`
}

// Exchange trades the short-lived token for a long-lived one. The subject
// is the user ID the SDK reported; Introspect checks the token against it.
func (p *FacebookProvider) Exchange(ctx context.Context, req CallbackRequest) (*Credentials, error) {
	shortLived := strings.TrimSpace(req.Payload)
	if shortLived == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrExchange)
	}

	u := p.graphURL + "/oauth/access_token?" + url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {p.appID},
		"client_secret":     {p.appSecret},
		"fb_exchange_token": {shortLived},
	}.Encode()

	var out facebookExchange
	status, err := getJSON(ctx, p.client, u, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrExchange, out.Error.Message)
	}
	if status != http.StatusOK || out.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token (status %d)", ErrExchange, status)
	}

	return &Credentials{
		AccessToken: out.AccessToken,
		SubjectID:   strings.TrimSpace(req.DeclaredUserID),
	}, nil
}

type facebookDebugToken struct {
	Data struct {
		AppID   string      `json:"app_id"`
		UserID  string      `json:"user_id"`
		IsValid bool        `json:"is_valid"`
		Error   *graphError `json:"error"`
	} `json:"data"`
	Error *graphError `json:"error"`
}

// Introspect calls /debug_token with the app access token.
func (p *FacebookProvider) Introspect(ctx context.Context, accessToken string) (*TokenInfo, error) {
	u := p.graphURL + "/debug_token?" + url.Values{
		"input_token":  {accessToken},
		"access_token": {p.appID + "|" + p.appSecret},
	}.Encode()

	var out facebookDebugToken
	status, err := getJSON(ctx, p.client, u, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case out.Error != nil:
		return nil, &ProviderError{Provider: p.Name(), Message: out.Error.Message}
	case out.Data.Error != nil:
		return nil, &ProviderError{Provider: p.Name(), Message: out.Data.Error.Message}
	case status != http.StatusOK:
		return nil, &ProviderError{Provider: p.Name(), Message: fmt.Sprintf("debug_token returned status %d", status)}
	case !out.Data.IsValid:
		return nil, &ProviderError{Provider: p.Name(), Message: "access token is not valid"}
	}

	return &TokenInfo{UserID: out.Data.UserID, Audience: out.Data.AppID}, nil
}

type facebookMe struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	Error *graphError `json:"error"`
}

// Profile reads /me. The picture URL sits two levels down, under
// picture.data.url.
func (p *FacebookProvider) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	u := p.graphURL + "/me?" + url.Values{
		"access_token": {accessToken},
		"fields":       {"name,id,email,picture"},
	}.Encode()

	var me facebookMe
	status, err := getJSON(ctx, p.client, u, &me)
	if err != nil {
		return nil, err
	}
	if me.Error != nil {
		return nil, fmt.Errorf("auth: facebook /me: %s", me.Error.Message)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("auth: facebook /me returned status %d", status)
	}
	if me.Email == "" || me.Name == "" {
		return nil, fmt.Errorf("auth: facebook profile is missing name or email")
	}

	return &Profile{Name: me.Name, Email: me.Email, Picture: me.Picture.Data.URL}, nil
}

// Revoke removes the app's permissions for the user, which invalidates the
// token.
func (p *FacebookProvider) Revoke(ctx context.Context, accessToken, providerUserID string) error {
	if providerUserID == "" {
		return fmt.Errorf("auth: facebook revoke needs the user ID")
	}

	u := p.graphURL + "/" + url.PathEscape(providerUserID) + "/permissions?" +
		url.Values{"access_token": {accessToken}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("auth: building revoke request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: revoking facebook permissions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: facebook revoke returned status %d", resp.StatusCode)
	}
	return nil
}
