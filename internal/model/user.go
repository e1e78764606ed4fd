// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a person who has logged in through one of the OAuth providers.
//
// Email is the natural lookup key: the first successful login for an email
// creates the row, later logins reuse it without touching the stored name or
// picture.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	Email     string    `json:"email"     db:"email"`
	Picture   string    `json:"picture"   db:"picture"` // profile picture URL, may be empty
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
