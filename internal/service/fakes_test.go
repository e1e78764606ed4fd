package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/session"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory stand-ins for the repositories, the session store and the OAuth
// providers. Each can be told to fail so error paths are reachable.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeUserRepo struct {
	users     []*model.User
	nextID    int
	createErr error
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	f.users = append(f.users, &stored)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	var found []*model.User
	for _, u := range f.users {
		if u.Email == email {
			found = append(found, u)
		}
	}
	switch len(found) {
	case 0:
		return nil, apperror.NotFound("user", email)
	case 1:
		cp := *found[0]
		return &cp, nil
	default:
		return nil, apperror.Ambiguous("user", email)
	}
}

type fakeCategoryRepo struct {
	categories []model.Category
}

func newFakeCategoryRepo(names ...string) *fakeCategoryRepo {
	f := &fakeCategoryRepo{}
	for _, n := range names {
		f.Ensure(context.Background(), n)
	}
	return f
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	out := append([]model.Category{}, f.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategoryRepo) GetByName(_ context.Context, name string) (*model.Category, error) {
	var found []model.Category
	for _, c := range f.categories {
		if c.Name == name {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return nil, apperror.NotFound("category", name)
	case 1:
		return &found[0], nil
	default:
		return nil, apperror.Ambiguous("category", name)
	}
}

func (f *fakeCategoryRepo) Ensure(ctx context.Context, name string) (*model.Category, error) {
	if c, err := f.GetByName(ctx, name); err == nil {
		return c, nil
	}
	c := model.Category{ID: fmt.Sprintf("cat-%d", len(f.categories)+1), Name: name}
	f.categories = append(f.categories, c)
	return &c, nil
}

type fakeItemRepo struct {
	items  []model.Item
	nextID int
	cats   *fakeCategoryRepo
}

func (f *fakeItemRepo) categoryName(id string) string {
	for _, c := range f.cats.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (f *fakeItemRepo) Create(_ context.Context, item *model.Item) error {
	f.nextID++
	item.ID = fmt.Sprintf("item-%d", f.nextID)
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	stored := *item
	stored.CategoryName = f.categoryName(item.CategoryID)
	f.items = append(f.items, stored)
	return nil
}

func (f *fakeItemRepo) Update(_ context.Context, item *model.Item) error {
	for i := range f.items {
		if f.items[i].ID == item.ID {
			owner := f.items[i].UserID
			f.items[i] = *item
			f.items[i].UserID = owner
			f.items[i].CategoryName = f.categoryName(item.CategoryID)
			return nil
		}
	}
	return apperror.NotFound("item", item.ID)
}

func (f *fakeItemRepo) Delete(_ context.Context, id string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("item", id)
}

func (f *fakeItemRepo) GetByName(_ context.Context, categoryID, name string) (*model.Item, error) {
	var found []model.Item
	for _, it := range f.items {
		if it.CategoryID == categoryID && it.Name == name {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return nil, apperror.NotFound("item", name)
	case 1:
		return &found[0], nil
	default:
		return nil, apperror.Ambiguous("item", name)
	}
}

func (f *fakeItemRepo) ListByCategory(_ context.Context, categoryID string) ([]model.Item, error) {
	out := make([]model.Item, 0)
	for _, it := range f.items {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) Latest(_ context.Context, limit int) ([]model.Item, error) {
	out := make([]model.Item, 0, limit)
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.items[i])
	}
	return out, nil
}

type fakeSessions struct {
	saved   int
	saveErr error
}

func (f *fakeSessions) Save(_ context.Context, _ *session.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved++
	return nil
}

// fakeProvider is a scripted auth.Provider. Calls records which steps ran.
type fakeProvider struct {
	name     string
	clientID string

	creds      *auth.Credentials
	exchErr    error
	info       *auth.TokenInfo
	introErr   error
	profile    *auth.Profile
	profileErr error
	revokeErr  error

	calls   []string
	revoked []string
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) ClientID() string { return f.clientID }

func (f *fakeProvider) Exchange(_ context.Context, _ auth.CallbackRequest) (*auth.Credentials, error) {
	f.calls = append(f.calls, "exchange")
	if f.exchErr != nil {
		return nil, f.exchErr
	}
	return f.creds, nil
}

func (f *fakeProvider) Introspect(_ context.Context, _ string) (*auth.TokenInfo, error) {
	f.calls = append(f.calls, "introspect")
	if f.introErr != nil {
		return nil, f.introErr
	}
	return f.info, nil
}

func (f *fakeProvider) Profile(_ context.Context, _ string) (*auth.Profile, error) {
	f.calls = append(f.calls, "profile")
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeProvider) Revoke(_ context.Context, token, providerUserID string) error {
	f.calls = append(f.calls, "revoke")
	f.revoked = append(f.revoked, token+"/"+providerUserID)
	return f.revokeErr
}
