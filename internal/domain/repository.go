package domain

import (
	"context"
	"time"
)

// NameCache maps lookup candidates to resolved product names.
// Implementations must serialize writes; storage faults read as misses.
type NameCache interface {
	Get(ctx context.Context, candidate string) (string, error)
	Set(ctx context.Context, candidates []string, name string) error
}

// ProductLookup resolves a product name for one barcode candidate.
// Returns ErrProductNotFound when the source has no usable name.
type ProductLookup interface {
	Name() string
	LookupName(ctx context.Context, barcode string) (string, error)
}

// InventoryAPI is the REST surface of the pantry backend
type InventoryAPI interface {
	ListItems(ctx context.Context) ([]InventoryItem, error)
	CreateItem(ctx context.Context, payload InventoryItemCreate) (*InventoryItem, error)
	UpdateItem(ctx context.Context, id string, payload InventoryItemUpdate) (*InventoryItem, error)
	DeleteItem(ctx context.Context, id string) error
	IncrementItem(ctx context.Context, id string) (*InventoryItem, error)
	DecrementItem(ctx context.Context, id string) (*InventoryItem, error)
}

// ShoppingListAPI is the REST surface of the pantry backend's shopping list
type ShoppingListAPI interface {
	ListShoppingItems(ctx context.Context) ([]ShoppingListItem, error)
	CreateShoppingItem(ctx context.Context, payload ShoppingListItemCreate) (*ShoppingListItem, error)
	UpdateShoppingItem(ctx context.Context, id string, payload ShoppingListItemUpdate) (*ShoppingListItem, error)
	DeleteShoppingItem(ctx context.Context, id string) error
}

// InventoryStore is the item state the resolution pipeline reads and mutates
type InventoryStore interface {
	Items() []InventoryItem
	Load(ctx context.Context) error
	Stale(maxAge time.Duration) bool
	Create(ctx context.Context, payload InventoryItemCreate) (*InventoryItem, error)
	Update(ctx context.Context, id string, payload InventoryItemUpdate) (*InventoryItem, error)
	Increment(ctx context.Context, id string) (*InventoryItem, error)
}

// CameraCapture delivers decode attempts until Stop is called
type CameraCapture interface {
	Events() <-chan RawScanEvent
	Stop() error
}
