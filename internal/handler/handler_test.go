package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/item-catalog/internal/model"
	sqliteRepo "github.com/sakif/item-catalog/internal/repository/sqlite"
	"github.com/sakif/item-catalog/internal/service"
	"github.com/sakif/item-catalog/internal/session"
)

// =========================================================================
// TEST HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeRenderer records the last page instead of producing HTML.
type fakeRenderer struct {
	name string
	page *Page
}

func (f *fakeRenderer) Render(w io.Writer, name string, data any) error {
	f.name = name
	f.page = data.(*Page)
	_, err := io.WriteString(w, name)
	return err
}

// fakeSaver counts saves; the session itself is shared by pointer.
type fakeSaver struct {
	saves int
}

func (f *fakeSaver) Save(context.Context, *session.Session) error {
	f.saves++
	return nil
}

type catalogFixture struct {
	db       *sqliteRepo.DB
	catalog  *service.CatalogService
	handler  *CatalogHandler
	render   *fakeRenderer
	saver    *fakeSaver
	router   chi.Router
	owner    *model.User
	stranger *model.User
}

// newCatalogFixture builds the handler over an in-memory database holding
// the Snowboarding and Soccer categories and two users.
func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	catalog := service.NewCatalogService(db.Categories(), db.Items(), db.Users(), testLogger())
	require.NoError(t, catalog.EnsureCategories(ctx, []string{"Snowboarding", "Soccer"}))

	owner := &model.User{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.Users().Create(ctx, owner))
	stranger := &model.User{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, db.Users().Create(ctx, stranger))

	f := &catalogFixture{
		db:       db,
		catalog:  catalog,
		render:   &fakeRenderer{},
		saver:    &fakeSaver{},
		owner:    owner,
		stranger: stranger,
	}
	f.handler = NewCatalogHandler(catalog, f.saver, f.render, testLogger())

	r := chi.NewRouter()
	r.Get("/", f.handler.HandleHome)
	r.Get("/catalog/JSON", f.handler.HandleCatalogJSON)
	r.Get("/catalog/new", f.handler.HandleNewItem)
	r.Post("/catalog/new", f.handler.HandleNewItem)
	r.Get("/catalog/{category}", f.handler.HandleCategory)
	r.Get("/catalog/{category}/JSON", f.handler.HandleCategoryJSON)
	r.Get("/catalog/{category}/{item}", f.handler.HandleItem)
	r.Get("/catalog/{category}/{item}/JSON", f.handler.HandleItemJSON)
	r.HandleFunc("/catalog/{category}/{item}/edit", f.handler.HandleEditItem)
	r.HandleFunc("/catalog/{category}/{item}/delete", f.handler.HandleDeleteItem)
	f.router = r
	return f
}

// createItem stores an item owned by user in the named category.
func (f *catalogFixture) createItem(t *testing.T, user *model.User, category, name string) *model.Item {
	t.Helper()
	item, err := f.catalog.CreateItem(context.Background(), user.ID, service.ItemInput{
		Name:        name,
		Description: name + " description",
		Category:    category,
	})
	require.NoError(t, err)
	return item
}

// loggedInAs returns a session bound to user.
func loggedInAs(user *model.User) *session.Session {
	sess := session.New("sess-" + user.ID)
	sess.SetLogin(session.Login{
		Provider:       session.ProviderGoogle,
		ProviderUserID: "g-" + user.ID,
		AccessToken:    "tok",
		UserID:         user.ID,
		Username:       user.Name,
		Email:          user.Email,
	})
	return sess
}

// serve runs one request through the router with sess in the context
// (nil means an anonymous session).
func (f *catalogFixture) serve(sess *session.Session, method, target string, form url.Values) *httptest.ResponseRecorder {
	if sess == nil {
		sess = session.New("anon")
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req = req.WithContext(session.WithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}
