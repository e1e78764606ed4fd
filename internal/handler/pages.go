package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/service"
	"github.com/sakif/item-catalog/internal/session"
)

// Page is the data every HTML template receives. Handlers fill in the
// fields their page uses; renderPage adds the login state and notices.
type Page struct {
	Title string

	// LoggedIn switches templates between the public and the owner variant.
	LoggedIn bool
	Username string
	Picture  string
	Flashes  []string

	Categories []model.Category
	Category   *model.Category
	Items      []model.Item
	Item       *model.Item

	// Create/edit form state.
	Form       service.ItemInput
	FormAction string
	Error      string

	Login *service.LoginPage

	// Error page.
	Status  int
	Message string
}

// pages holds what HTML handlers share: the session saver for notices
// and the renderer.
type pages struct {
	sessions service.SessionSaver
	render   Renderer
	logger   *slog.Logger
}

// currentSession returns the session placed in the context by
// session.Manager. Outside the middleware an unsaved empty session is
// returned, so handlers never see nil.
func currentSession(r *http.Request) *session.Session {
	if sess, ok := session.FromContext(r.Context()); ok {
		return sess
	}
	return session.New("")
}

// renderPage writes a full HTML page.
//
// WHY A BUFFER?
// Once WriteHeader has been called the status is on the wire. Executing the
// template into a buffer first means a template error can still be answered
// with a 500 instead of a half-written 200 page.
//
// Pending notices are consumed by the render and the session saved, so each
// notice is shown exactly once.
func (p *pages) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, page *Page) {
	sess := currentSession(r)
	page.LoggedIn = sess.LoggedIn()
	page.Username = sess.Username
	page.Picture = sess.Picture

	if len(sess.Flashes) > 0 {
		page.Flashes = sess.PopFlashes()
		if err := p.sessions.Save(r.Context(), sess); err != nil {
			p.logger.Warn("failed to save session after reading notices",
				slog.String("error", err.Error()),
			)
		}
	}

	var buf bytes.Buffer
	if err := p.render.Render(&buf, name, page); err != nil {
		p.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError shows an HTML error page for a domain error.
func (p *pages) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, msg := classify(err)
	if status >= http.StatusInternalServerError {
		p.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	p.renderPage(w, r, status, "error", &Page{
		Title:   http.StatusText(status),
		Status:  status,
		Message: msg,
	})
}

// redirectWithNotice stores a notice for the next page and redirects.
func (p *pages) redirectWithNotice(w http.ResponseWriter, r *http.Request, target, notice string) {
	sess := currentSession(r)
	if notice != "" {
		sess.AddFlash(notice)
		if err := p.sessions.Save(r.Context(), sess); err != nil {
			p.logger.Warn("failed to save notice",
				slog.String("error", err.Error()),
			)
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// pathParam returns a chi URL parameter with any percent-encoding removed.
// chi matches on the raw path when the URL contains encoded slashes.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
