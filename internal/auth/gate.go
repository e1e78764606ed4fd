package auth

import "github.com/sakif/item-catalog/internal/session"

// Decision is the outcome of an authorization check on a mutating route.
//
// WHY NOT A BOOL?
// The two refusals lead to different responses. NeedsLogin sends the
// browser to /login, NotOwner sends it home with "You can't edit that
// item.". A bool could not tell them apart.
type Decision int

const (
	Allow Decision = iota
	// NeedsLogin: nobody is logged in. Expected, not an error.
	NeedsLogin
	// NotOwner: logged in, but the resource belongs to someone else.
	NotOwner
)

// String names the decision for log lines.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case NeedsLogin:
		return "needs_login"
	case NotOwner:
		return "not_owner"
	default:
		return "unknown"
	}
}

// Authorize decides whether the session may mutate a resource owned by
// ownerID. An empty ownerID means "any logged-in user" (item creation).
func Authorize(sess *session.Session, ownerID string) Decision {
	if !sess.LoggedIn() {
		return NeedsLogin
	}
	if ownerID != "" && sess.UserID != ownerID {
		return NotOwner
	}
	return Allow
}
