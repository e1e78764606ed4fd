// Package session keeps per-browser login state on the server.
//
// The browser only holds a signed cookie naming its session; the Session
// value itself lives in a Store (SQL table or Redis). A session is created on
// the first request, populated by a successful OAuth connect and cleared by
// disconnect.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Session is the typed login state of one browser client.
//
// The provider fields (Provider through Picture) are either all set or all
// empty; normalize enforces that every time a session is loaded.
type Session struct {
	ID string `json:"-"`

	// State is the anti-forgery token handed out by the login page.
	State string `json:"state,omitempty"`

	Provider       string `json:"provider,omitempty"`
	ProviderUserID string `json:"providerUserId,omitempty"`
	AccessToken    string `json:"accessToken,omitempty"`
	UserID         string `json:"userId,omitempty"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
	Picture        string `json:"picture,omitempty"`

	Flashes []string `json:"flashes,omitempty"`

	// detached marks a session the store could not load. It stands in for
	// the real one for a single request and is never written back.
	detached bool
}

// Login is what a successful OAuth connect writes into the session.
type Login struct {
	Provider       string
	ProviderUserID string
	AccessToken    string
	UserID         string
	Username       string
	Email          string
	Picture        string
}

// New returns an empty session with the given ID.
func New(id string) *Session {
	return &Session{ID: id}
}

// LoggedIn reports whether a local user is bound to the session.
func (s *Session) LoggedIn() bool {
	return s != nil && s.UserID != ""
}

// ConnectedAs reports whether the session already holds credentials for
// this provider identity.
func (s *Session) ConnectedAs(provider, providerUserID string) bool {
	return s != nil &&
		s.AccessToken != "" &&
		s.Provider == provider &&
		s.ProviderUserID != "" &&
		s.ProviderUserID == providerUserID
}

func (s *Session) SetLogin(l Login) {
	s.Provider = l.Provider
	s.ProviderUserID = l.ProviderUserID
	s.AccessToken = l.AccessToken
	s.UserID = l.UserID
	s.Username = l.Username
	s.Email = l.Email
	s.Picture = l.Picture
}

// ClearLogin drops every provider-related field. State and pending flashes
// survive.
func (s *Session) ClearLogin() {
	s.SetLogin(Login{})
}

func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// PopFlashes returns the pending notices and removes them from the session.
func (s *Session) PopFlashes() []string {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

func (s *Session) normalize() {
	switch s.Provider {
	case ProviderGoogle, ProviderFacebook:
		if s.UserID == "" || s.AccessToken == "" || s.ProviderUserID == "" {
			s.ClearLogin()
		}
	default:
		s.ClearLogin()
	}
}

// Encode serialises a session for storage.
func Encode(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: encoding %s: %w", s.ID, err)
	}
	return data, nil
}

// Decode restores a stored session and validates it.
func Decode(id string, data []byte) (*Session, error) {
	s := New(id)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("session: decoding %s: %w", id, err)
	}
	s.normalize()
	return s, nil
}

// Store persists sessions between requests.
type Store interface {
	// Get returns (nil, false, nil) when the session does not exist or has
	// expired.
	Get(ctx context.Context, id string) (*Session, bool, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
