package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/item-catalog/internal/session"
)

func TestAuthorize(t *testing.T) {
	loggedIn := &session.Session{ID: "s1", UserID: "u1"}

	tests := []struct {
		name    string
		sess    *session.Session
		ownerID string
		want    Decision
	}{
		{"nil session", nil, "u1", NeedsLogin},
		{"anonymous", &session.Session{ID: "s0"}, "u1", NeedsLogin},
		{"anonymous creating", &session.Session{ID: "s0"}, "", NeedsLogin},
		{"owner", loggedIn, "u1", Allow},
		{"someone else's item", loggedIn, "u2", NotOwner},
		{"creating", loggedIn, "", Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.sess, tt.ownerID), tt.want.String())
		})
	}
}
