package domain

import "time"

// InventoryItem is a household inventory row as served by the pantry API
type InventoryItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Barcode     *string   `json:"barcode,omitempty"`
	Quantity    int       `json:"quantity"`
	MinQuantity int       `json:"min_quantity"`
	Category    *string   `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	HouseholdID string    `json:"household_id,omitempty"`
}

// BarcodeValue returns the stored barcode or an empty string
func (i InventoryItem) BarcodeValue() string {
	if i.Barcode == nil {
		return ""
	}
	return *i.Barcode
}

// IsLowStock reports whether the item is at or below its minimum quantity
func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.MinQuantity
}

// InventoryItemCreate is the payload for creating an item
type InventoryItemCreate struct {
	Name        string  `json:"name"`
	Barcode     *string `json:"barcode,omitempty"`
	Quantity    int     `json:"quantity"`
	MinQuantity int     `json:"min_quantity"`
	Category    *string `json:"category,omitempty"`
}

// InventoryItemUpdate is a partial update; nil fields are left untouched
type InventoryItemUpdate struct {
	Name        *string `json:"name,omitempty"`
	Barcode     *string `json:"barcode,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
	MinQuantity *int    `json:"min_quantity,omitempty"`
	Category    *string `json:"category,omitempty"`
}
