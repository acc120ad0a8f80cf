package model

import "time"

// Category groups items. Deleting a category leaves its items uncategorized.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemCount int `json:"item_count,omitempty"`
}
