package model

import "time"

// Item is a catalog entry owned by the user who created it.
//
// CategoryID and UserID are plain foreign keys. CategoryName is filled in by
// the repository's join on read and is never written.
type Item struct {
	ID           string    `json:"id"          db:"id"`
	Name         string    `json:"name"        db:"name"`
	Description  string    `json:"description" db:"description"`
	ImageURL     string    `json:"imageUrl"    db:"image_url"`
	CategoryID   string    `json:"categoryId"  db:"category_id"`
	CategoryName string    `json:"category"    db:"-"`
	UserID       string    `json:"userId"      db:"user_id"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"   db:"updated_at"`
}

// ItemJSON is the public projection of an Item. Image, category and owner
// are not exposed.
type ItemJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (i Item) JSON() ItemJSON {
	return ItemJSON{ID: i.ID, Name: i.Name, Description: i.Description}
}
