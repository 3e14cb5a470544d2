package views

import "time"

// Page carries the site-wide values every page shows.
type Page struct {
	Name      string
	CSRFToken string
}

// SessionItem is one saved canvas in the session list.
type SessionItem struct {
	ID        string
	Name      string
	Thumbnail string // data URL
	UpdatedAt time.Time
}
