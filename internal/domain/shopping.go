package domain

import "time"

// ShoppingListItem is one entry on the household shopping list
type ShoppingListItem struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id,omitempty"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// ShoppingListItemCreate is the payload for adding an entry
type ShoppingListItemCreate struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity"`
}

// ShoppingListItemUpdate is a partial update; nil fields are left untouched
type ShoppingListItemUpdate struct {
	Name      *string `json:"name,omitempty"`
	Quantity  *int    `json:"quantity,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// ShoppingEntry is one product parsed from a spoken shopping command
type ShoppingEntry struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// AlexaImportResult reports what a voice import added or merged
type AlexaImportResult struct {
	CreatedItems []ShoppingListItem `json:"created_items"`
	ParsedNames  []string           `json:"parsed_names"`
}
