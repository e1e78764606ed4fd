package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	getErr   error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, id string) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	data, ok := m.sessions[id]
	if !ok {
		return nil, false, nil
	}
	s, err := Decode(id, data)
	return s, err == nil, err
}

func (m *memStore) Save(_ context.Context, s *Session, _ time.Duration) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = data
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	signer, err := NewTokenSigner(testSecret)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewManager(store, signer, Config{TTL: time.Hour}, logger)
}

// captureSession runs one request through the middleware and returns the
// session the handler saw plus the recorder.
func captureSession(m *Manager, req *http.Request) (*Session, *httptest.ResponseRecorder) {
	var seen *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return seen, rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func TestManager_IssuesCookieOnFirstVisit(t *testing.T) {
	m := newTestManager(t, newMemStore())

	sess, rr := captureSession(m, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.LoggedIn())

	c := sessionCookie(t, rr)
	assert.True(t, c.HttpOnly)
	id, err := m.signer.Verify(c.Value)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, id)
}

func TestManager_LoadsSavedSession(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)

	first, rr := captureSession(m, httptest.NewRequest(http.MethodGet, "/", nil))
	first.SetLogin(googleLogin())
	require.NoError(t, m.Save(context.Background(), first))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rr))
	second, rr2 := captureSession(m, req)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.LoggedIn())
	assert.Empty(t, rr2.Result().Cookies(), "a valid cookie is not reissued")
}

func TestManager_ForgedCookie(t *testing.T) {
	m := newTestManager(t, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	sess, rr := captureSession(m, req)

	require.NotNil(t, sess)
	assert.False(t, sess.LoggedIn())
	sessionCookie(t, rr)
}

func TestManager_StoreFailureYieldsEmptySession(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)

	token, err := m.signer.Sign("sess-9", time.Hour)
	require.NoError(t, err)
	store.getErr = errors.New("backend down")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	sess, rr := captureSession(m, req)

	require.NotNil(t, sess)
	assert.Equal(t, "sess-9", sess.ID)
	assert.False(t, sess.LoggedIn())
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.ErrorIs(t, m.Save(context.Background(), sess), ErrUnavailable)
}

func TestManager_StoreFailureKeepsStoredSession(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)

	first, rr := captureSession(m, httptest.NewRequest(http.MethodGet, "/", nil))
	first.SetLogin(googleLogin())
	require.NoError(t, m.Save(context.Background(), first))
	cookie := sessionCookie(t, rr)

	// One request hits a store outage and tries to save a notice.
	store.getErr = errors.New("backend down")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	during, _ := captureSession(m, req)
	during.AddFlash("hello")
	assert.ErrorIs(t, m.Save(context.Background(), during), ErrUnavailable)

	// The next request still sees the login.
	store.getErr = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	after, _ := captureSession(m, req)

	assert.True(t, after.LoggedIn())
	assert.Equal(t, first.UserID, after.UserID)
	assert.Empty(t, after.Flashes)
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), New("s1"))
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
}
