package model

import (
	"slices"
	"time"
)

// Item represents a stocked item type with its on-hand and lent-out quantities.
type Item struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	CategoryID       *int64     `json:"category_id"`
	Quantity         int        `json:"quantity"`
	MinQuantity      int        `json:"min_quantity"`
	Unit             string     `json:"unit"`
	Borrowable       bool       `json:"borrowable"`
	BorrowedQuantity int        `json:"borrowed_quantity"`
	Version          int64      `json:"version"`
	HasImage         bool       `json:"has_image"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
}

// Units of measure.
const (
	UnitPieces = "pcs"
	UnitKg     = "kg"
	UnitLitre  = "litre"
	UnitMeter  = "meter"
	UnitBox    = "box"
)

// Units lists every accepted unit.
var Units = []string{UnitPieces, UnitKg, UnitLitre, UnitMeter, UnitBox}

// ValidUnit reports whether unit is one of Units.
func ValidUnit(unit string) bool {
	return slices.Contains(Units, unit)
}

// Available returns the quantity that can still be issued or lent.
func (i *Item) Available() int {
	return i.Quantity - i.BorrowedQuantity
}

// LowStock reports whether the item is at or below its reorder threshold.
func (i *Item) LowStock() bool {
	return i.Quantity <= i.MinQuantity
}

// Deleted reports whether the item has been soft-deleted.
func (i *Item) Deleted() bool {
	return i.DeletedAt != nil
}

// ItemView is the JSON shape returned to clients, with derived fields filled in.
type ItemView struct {
	*Item
	Available int  `json:"available"`
	LowStock  bool `json:"low_stock"`
}

// View wraps the item with its derived fields.
func (i *Item) View() ItemView {
	return ItemView{Item: i, Available: i.Available(), LowStock: i.LowStock()}
}
