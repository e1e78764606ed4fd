package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleLogin() Login {
	return Login{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-42",
		AccessToken:    "tok",
		UserID:         "u1",
		Username:       "Alice",
		Email:          "alice@example.com",
	}
}

func TestSession_LoginLifecycle(t *testing.T) {
	s := New("s1")
	assert.False(t, s.LoggedIn())

	s.SetLogin(googleLogin())
	assert.True(t, s.LoggedIn())
	assert.True(t, s.ConnectedAs(ProviderGoogle, "g-42"))
	assert.False(t, s.ConnectedAs(ProviderFacebook, "g-42"))
	assert.False(t, s.ConnectedAs(ProviderGoogle, "g-43"))

	s.State = "state-1"
	s.AddFlash("hello")
	s.ClearLogin()
	assert.False(t, s.LoggedIn())
	assert.Empty(t, s.AccessToken)
	assert.Equal(t, "state-1", s.State)
	assert.Equal(t, []string{"hello"}, s.Flashes)
}

func TestSession_PopFlashes(t *testing.T) {
	s := New("s1")
	s.AddFlash("one")
	s.AddFlash("two")

	assert.Equal(t, []string{"one", "two"}, s.PopFlashes())
	assert.Empty(t, s.PopFlashes())
}

func TestDecode_Normalizes(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantLogin bool
	}{
		{
			name:      "complete google login",
			data:      `{"provider":"google","providerUserId":"g","accessToken":"t","userId":"u"}`,
			wantLogin: true,
		},
		{
			name: "unknown provider",
			data: `{"provider":"myspace","providerUserId":"g","accessToken":"t","userId":"u"}`,
		},
		{
			name: "missing access token",
			data: `{"provider":"facebook","providerUserId":"f","userId":"u"}`,
		},
		{
			name: "user id without provider",
			data: `{"userId":"u","state":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode("s1", []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, "s1", s.ID)
			assert.Equal(t, tt.wantLogin, s.LoggedIn())
			if !tt.wantLogin {
				assert.Empty(t, s.Provider)
				assert.Empty(t, s.AccessToken)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	s := New("s1")
	s.State = "st"
	s.SetLogin(googleLogin())
	s.AddFlash("Now logged in as Alice")

	data, err := Encode(s)
	require.NoError(t, err)

	got, err := Decode("s1", data)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = Decode("s1", []byte("{"))
	assert.Error(t, err)
}
