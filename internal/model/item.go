package model

import "time"

// Item is an inventory record. PhotoPath points at a file in the photo
// cache directory; it is internal bookkeeping and never serialized to
// API clients (they get a /inventory/{id}/photo link instead).
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PhotoPath   string    `json:"photo_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
