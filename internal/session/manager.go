package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
)

const CookieName = "catalog_session"

// ErrUnavailable is returned by Save for a session that could not be read
// from the store at the start of the request.
var ErrUnavailable = errors.New("session: store unavailable for this request")

type contextKey string

const sessionKey contextKey = "session"

// Manager ties a Store to the browser cookie.
//
// Middleware resolves (or creates) the session before the handler runs and
// puts it in the request context. Handlers mutate the *Session and call
// Save; nothing is written back implicitly.
type Manager struct {
	store  Store
	signer *TokenSigner
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// Config controls cookie lifetime and flags.
type Config struct {
	TTL time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

func NewManager(store Store, signer *TokenSigner, cfg Config, logger *slog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		signer: signer,
		ttl:    cfg.TTL,
		secure: cfg.Secure,
		logger: logger,
	}
}

// Middleware loads the caller's session into the request context, issuing
// a fresh cookie when the request carries none or an invalid one.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, issue := m.load(r)

		if issue {
			if err := m.setCookie(w, sess.ID); err != nil {
				m.logger.Error("session: issuing cookie failed", slog.String("error", err.Error()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// load returns the session named by the cookie. The bool is true when the
// caller needs a new cookie.
func (m *Manager) load(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return New(xid.New().String()), true
	}

	id, err := m.signer.Verify(cookie.Value)
	if err != nil {
		m.logger.Debug("session: rejecting cookie", slog.String("error", err.Error()))
		return New(xid.New().String()), true
	}

	sess, found, err := m.store.Get(r.Context(), id)
	if err != nil {
		// The request continues anonymously. The stand-in is detached so a
		// Save cannot overwrite the stored session with an empty one.
		m.logger.Warn("session: store lookup failed",
			slog.String("session", id),
			slog.String("error", err.Error()),
		)
		sess := New(id)
		sess.detached = true
		return sess, false
	}
	if !found {
		return New(id), false
	}

	return sess, false
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) error {
	token, err := m.signer.Sign(id, m.ttl)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Save persists the session and refreshes its TTL. A session whose load
// failed is refused with ErrUnavailable.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess.detached {
		return fmt.Errorf("session: saving %s: %w", sess.ID, ErrUnavailable)
	}
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return fmt.Errorf("session: saving %s: %w", sess.ID, err)
	}
	return nil
}

// FromContext returns the session placed in ctx by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}

// WithSession returns a copy of ctx carrying sess. Used by tests and by
// callers that build requests without going through Middleware.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}
