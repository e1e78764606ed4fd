package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/xid"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
	"github.com/sakif/item-catalog/internal/session"
)

// Messages returned to the browser by the connect and disconnect endpoints.
const (
	MsgInvalidState     = "Invalid state parameter."
	MsgExchangeFailed   = "Failed to upgrade the authorization code."
	MsgUserMismatch     = "Token's user ID doesn't match given user ID."
	MsgClientMismatch   = "Token's client ID does not match app's."
	MsgAlreadyConnected = "Current user is already connected."
	MsgProfileFailed    = "Failed to fetch the user profile."
	MsgNotConnected     = "Current user not connected."
)

// SessionSaver persists a session after it has been modified.
// *session.Manager implements it.
type SessionSaver interface {
	Save(ctx context.Context, sess *session.Session) error
}

// ConnectResult is the outcome of a successful connect.
type ConnectResult struct {
	AlreadyConnected bool
	UserID           string
	Name             string
	Email            string
	Picture          string
}

// LoginPage carries what the login page needs to start either provider's
// JS SDK.
type LoginPage struct {
	State          string
	GoogleClientID string
	FacebookAppID  string
}

// AuthService runs the OAuth connect flow and keeps the session and the
// users table in step with it.
//
//	AuthHandler → AuthService → auth.Provider (Google / Facebook)
//	                          ↘ UserRepository, SessionSaver
type AuthService struct {
	users     repository.UserRepository
	providers map[string]auth.Provider
	sessions  SessionSaver
	logger    *slog.Logger
}

// NewAuthService wires the service. Providers are keyed by Name(); a nil
// provider (not configured) is skipped.
func NewAuthService(
	users repository.UserRepository,
	sessions SessionSaver,
	logger *slog.Logger,
	providers ...auth.Provider,
) *AuthService {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		byName[p.Name()] = p
	}

	return &AuthService{
		users:     users,
		providers: byName,
		sessions:  sessions,
		logger:    logger,
	}
}

func (s *AuthService) provider(name string) (auth.Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, apperror.NotFound("provider", name)
	}
	return p, nil
}

// BeginLogin issues a fresh anti-forgery state, stores it in the session
// and returns what the login page renders.
//
// WHAT IS THE STATE FOR?
// The login page echoes the state back as ?state= on /gconnect and
// /fbconnect. Connect compares it with the copy in the session before
// anything else, so a connect request forged by another site (which cannot
// read the login page) is rejected with 401 before any provider is called.
func (s *AuthService) BeginLogin(ctx context.Context, sess *session.Session) (*LoginPage, error) {
	sess.State = xid.New().String()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("storing login state: %w", err)
	}

	page := &LoginPage{State: sess.State}
	if p, ok := s.providers[session.ProviderGoogle]; ok {
		page.GoogleClientID = p.ClientID()
	}
	if p, ok := s.providers[session.ProviderFacebook]; ok {
		page.FacebookAppID = p.ClientID()
	}
	return page, nil
}

// Connect completes a provider login.
//
// The checks run in a fixed order and the first failure ends the flow:
// state, provider lookup, exchange, introspection, identity binding, audience. Only then is
// the session compared with the incoming identity, the profile fetched and
// the local user resolved.
func (s *AuthService) Connect(
	ctx context.Context,
	sess *session.Session,
	providerName, state string,
	req auth.CallbackRequest,
) (*ConnectResult, error) {
	if sess.State == "" || state != sess.State {
		s.logger.Warn("connect: state mismatch", slog.String("provider", providerName))
		return nil, apperror.Unauthorized(MsgInvalidState)
	}

	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	creds, err := p.Exchange(ctx, req)
	if err != nil {
		s.logger.Warn("connect: exchange failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized(MsgExchangeFailed)
	}

	info, err := p.Introspect(ctx, creds.AccessToken)
	if err != nil {
		var pe *auth.ProviderError
		if errors.As(err, &pe) {
			return nil, apperror.Upstream(pe.Message)
		}
		return nil, fmt.Errorf("introspecting %s token: %w", providerName, err)
	}

	if creds.SubjectID == "" || info.UserID != creds.SubjectID {
		return nil, apperror.Unauthorized(MsgUserMismatch)
	}
	if info.Audience != p.ClientID() {
		s.logger.Warn("connect: token issued to another client",
			slog.String("provider", providerName),
			slog.String("audience", info.Audience),
		)
		return nil, apperror.Unauthorized(MsgClientMismatch)
	}

	if sess.ConnectedAs(providerName, creds.SubjectID) {
		return &ConnectResult{
			AlreadyConnected: true,
			UserID:           sess.UserID,
			Name:             sess.Username,
			Email:            sess.Email,
			Picture:          sess.Picture,
		}, nil
	}

	profile, err := p.Profile(ctx, creds.AccessToken)
	if err != nil {
		s.logger.Error("connect: profile fetch failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream(MsgProfileFailed)
	}

	user, err := s.resolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	sess.SetLogin(session.Login{
		Provider:       providerName,
		ProviderUserID: creds.SubjectID,
		AccessToken:    creds.AccessToken,
		UserID:         user.ID,
		Username:       profile.Name,
		Email:          profile.Email,
		Picture:        profile.Picture,
	})
	sess.AddFlash(fmt.Sprintf("Now logged in as %s", profile.Name))

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session after connect: %w", err)
	}

	s.logger.Info("user connected",
		slog.String("provider", providerName),
		slog.String("userID", user.ID),
	)

	return &ConnectResult{
		UserID:  user.ID,
		Name:    profile.Name,
		Email:   profile.Email,
		Picture: profile.Picture,
	}, nil
}

// resolveUser finds the local user by email or creates one. An existing
// user's stored name and picture are left unchanged.
func (s *AuthService) resolveUser(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up user by email: %w", err)
	}

	user = &model.User{
		Name:    profile.Name,
		Email:   profile.Email,
		Picture: profile.Picture,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created", slog.String("userID", user.ID))
	return user, nil
}

// Disconnect logs the session out of providerName. An empty providerName
// means whichever provider the session is connected with.
//
// Revocation is best effort: a provider failure is logged and the local
// login is cleared anyway.
func (s *AuthService) Disconnect(ctx context.Context, sess *session.Session, providerName string) error {
	if providerName == "" {
		providerName = sess.Provider
	}
	if sess.AccessToken == "" || sess.Provider != providerName {
		return apperror.Unauthorized(MsgNotConnected)
	}

	if p, ok := s.providers[providerName]; ok {
		if err := p.Revoke(ctx, sess.AccessToken, sess.ProviderUserID); err != nil {
			s.logger.Warn("disconnect: revoke failed",
				slog.String("provider", providerName),
				slog.String("error", err.Error()),
			)
		}
	}

	userID := sess.UserID
	sess.ClearLogin()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("saving session after disconnect: %w", err)
	}

	s.logger.Info("user disconnected",
		slog.String("provider", providerName),
		slog.String("userID", userID),
	)
	return nil
}
