package model

// Category groups items. Categories are reference data: they are ensured at
// startup and never edited through the web surface.
type Category struct {
	ID   string `json:"id"   db:"id"`
	Name string `json:"name" db:"name"`
}

// CategoryJSON is the public projection served by /catalog/JSON.
type CategoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c Category) JSON() CategoryJSON {
	return CategoryJSON{ID: c.ID, Name: c.Name}
}
