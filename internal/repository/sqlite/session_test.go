package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/item-catalog/internal/session"
)

func TestSessionDB_SaveGetDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := db.Sessions()

	_, found, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)

	sess := session.New("s1")
	sess.State = "state-1"
	sess.SetLogin(session.Login{
		Provider:       session.ProviderFacebook,
		ProviderUserID: "fb-7",
		AccessToken:    "long",
		UserID:         "u1",
		Username:       "Bob",
	})
	require.NoError(t, store.Save(ctx, sess, time.Hour))

	sess.AddFlash("saved twice")
	require.NoError(t, store.Save(ctx, sess, time.Hour))

	got, found, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "state-1", got.State)
	assert.Equal(t, "Bob", got.Username)
	assert.Equal(t, []string{"saved twice"}, got.Flashes)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, found, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionDB_Expired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := db.Sessions()

	require.NoError(t, store.Save(ctx, session.New("old"), -time.Minute))

	_, found, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, found)

	var n int
	require.NoError(t, db.conn.QueryRowContext(ctx, `SELECT count(*) FROM sessions`).Scan(&n))
	assert.Zero(t, n, "expired rows are removed on read")
}
