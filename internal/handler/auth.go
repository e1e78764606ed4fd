package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/service"
	"github.com/sakif/item-catalog/internal/session"
)

const (
	NoticeLoggedOut    = "You have successfully been logged out."
	NoticeNotLoggedIn  = "You were not logged in"
	msgDisconnected    = "Successfully disconnected."
	maxCredentialBytes = 16 << 10
)

// AuthHandler serves the login page and the provider connect/disconnect
// endpoints.
//
// The connect endpoints are called by the login page's JavaScript, so they
// answer with JSON. /disconnect is a plain link and answers with a redirect.
type AuthHandler struct {
	pages
	auth *service.AuthService
}

// NewAuthHandler creates an AuthHandler. sessions and render serve the
// login page and the /disconnect notice; the JSON endpoints only use
// authService.
func NewAuthHandler(
	authService *service.AuthService,
	sessions service.SessionSaver,
	render Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		pages: pages{sessions: sessions, render: render, logger: logger},
		auth:  authService,
	}
}

// HandleLogin issues a fresh anti-forgery state and shows the login page.
//
// HTTP: GET /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	login, err := h.auth.BeginLogin(r.Context(), currentSession(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.renderPage(w, r, http.StatusOK, "login", &Page{Title: "Login", Login: login})
}

// ConnectResponse is the JSON body of a successful connect.
type ConnectResponse struct {
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// HandleGoogleConnect completes a Google sign-in.
//
// HTTP: POST /gconnect?state=<state>
// Body: the one-time authorization code from the Google JS SDK.
func (h *AuthHandler) HandleGoogleConnect(w http.ResponseWriter, r *http.Request) {
	h.connect(w, r, session.ProviderGoogle)
}

// HandleFacebookConnect completes a Facebook sign-in.
//
// HTTP: POST /fbconnect?state=<state>&user_id=<facebook user id>
// Body: the short-lived user access token from the Facebook JS SDK.
func (h *AuthHandler) HandleFacebookConnect(w http.ResponseWriter, r *http.Request) {
	h.connect(w, r, session.ProviderFacebook)
}

func (h *AuthHandler) connect(w http.ResponseWriter, r *http.Request, provider string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCredentialBytes))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "The credential could not be read."))
		return
	}

	query := r.URL.Query()
	res, err := h.auth.Connect(r.Context(), currentSession(r), provider, query.Get("state"), auth.CallbackRequest{
		Payload:        strings.TrimSpace(string(body)),
		DeclaredUserID: query.Get("user_id"),
	})
	if err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			h.logger.Error("connect failed",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, err)
		return
	}

	if res.AlreadyConnected {
		writeJSON(w, http.StatusOK, ConnectResponse{Message: service.MsgAlreadyConnected})
		return
	}

	writeJSON(w, http.StatusOK, ConnectResponse{
		Message: fmt.Sprintf("Welcome, %s!", res.Name),
		Name:    res.Name,
		Email:   res.Email,
		Picture: res.Picture,
	})
}

// HandleGoogleDisconnect revokes the Google token and logs out.
//
// HTTP: GET /gdisconnect
func (h *AuthHandler) HandleGoogleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.disconnect(w, r, session.ProviderGoogle)
}

// HandleFacebookDisconnect removes the app's Facebook permissions and logs
// out.
//
// HTTP: GET /fbdisconnect
func (h *AuthHandler) HandleFacebookDisconnect(w http.ResponseWriter, r *http.Request) {
	h.disconnect(w, r, session.ProviderFacebook)
}

func (h *AuthHandler) disconnect(w http.ResponseWriter, r *http.Request, provider string) {
	if err := h.auth.Disconnect(r.Context(), currentSession(r), provider); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgDisconnected})
}

// HandleDisconnect logs out of whichever provider the session uses and
// redirects home with a notice.
//
// HTTP: GET /disconnect
func (h *AuthHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.Provider == "" {
		h.redirectWithNotice(w, r, "/", NoticeNotLoggedIn)
		return
	}

	// The notice goes in first so Disconnect's save persists it.
	sess.AddFlash(NoticeLoggedOut)
	if err := h.auth.Disconnect(r.Context(), sess, ""); err != nil {
		h.logger.Warn("disconnect failed", slog.String("error", err.Error()))
		sess.ClearLogin()
		if err := h.sessions.Save(r.Context(), sess); err != nil {
			h.logger.Error("failed to save session", slog.String("error", err.Error()))
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}
