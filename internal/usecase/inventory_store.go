package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pantrylens/backend/internal/domain"
)

// Error messages recorded on the store for the UI
const (
	msgLoadFailed     = "Could not load items."
	msgCreateFailed   = "Could not create item."
	msgUpdateFailed   = "Could not update item."
	msgDeleteFailed   = "Could not delete item."
	msgQuantityFailed = "Could not update quantity."
)

// InventoryStore keeps the in-memory item list in sync with the pantry API
// and notifies subscribers after every change
type InventoryStore struct {
	api domain.InventoryAPI

	mu          sync.RWMutex
	items       []domain.InventoryItem
	loading     int
	lastError   string
	subscribers map[int]func([]domain.InventoryItem)
	nextSubID   int

	// loadedAt is the time of the last successful Load; loadFailed is set
	// while the most recent Load attempt has failed
	loadedAt   time.Time
	loadFailed bool
}

// NewInventoryStore creates an empty store backed by api
func NewInventoryStore(api domain.InventoryAPI) *InventoryStore {
	return &InventoryStore{
		api:         api,
		subscribers: make(map[int]func([]domain.InventoryItem)),
	}
}

// Items returns a snapshot of the current items
func (s *InventoryStore) Items() []domain.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InventoryItem, len(s.items))
	copy(out, s.items)
	return out
}

// LowStock returns items whose quantity is at or below min_quantity
func (s *InventoryStore) LowStock() []domain.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.InventoryItem
	for _, item := range s.items {
		if item.IsLowStock() {
			out = append(out, item)
		}
	}
	return out
}

// GetByID returns the item with id from the in-memory list
func (s *InventoryStore) GetByID(id string) (domain.InventoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.InventoryItem{}, false
}

// Error returns the last store-level error message, empty after a success
func (s *InventoryStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Loading reports whether a list or create/update/delete call is in flight
func (s *InventoryStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Subscribe registers fn for item list changes and returns an unsubscribe func
func (s *InventoryStore) Subscribe(fn func([]domain.InventoryItem)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Load replaces the item list with the API's
func (s *InventoryStore) Load(ctx context.Context) error {
	s.begin()
	defer s.end()

	items, err := s.api.ListItems(ctx)
	if err != nil {
		s.mu.Lock()
		s.loadFailed = true
		s.mu.Unlock()
		return s.fail(msgLoadFailed, err)
	}
	s.commit(func() {
		s.items = items
		s.loadedAt = time.Now()
		s.loadFailed = false
	})
	return nil
}

// Stale reports whether the snapshot needs a Load: it was never loaded, the
// last Load failed, or it is older than maxAge. maxAge <= 0 disables the age check.
func (s *InventoryStore) Stale(maxAge time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadFailed || s.loadedAt.IsZero() {
		return true
	}
	return maxAge > 0 && time.Since(s.loadedAt) > maxAge
}

// Create adds an item and puts it at the front of the list
func (s *InventoryStore) Create(ctx context.Context, payload domain.InventoryItemCreate) (*domain.InventoryItem, error) {
	s.begin()
	defer s.end()

	item, err := s.api.CreateItem(ctx, payload)
	if err != nil {
		return nil, s.fail(msgCreateFailed, err)
	}
	s.commit(func() {
		s.items = append([]domain.InventoryItem{*item}, s.items...)
	})
	return item, nil
}

// Update applies a partial update
func (s *InventoryStore) Update(ctx context.Context, id string, payload domain.InventoryItemUpdate) (*domain.InventoryItem, error) {
	s.begin()
	defer s.end()

	item, err := s.api.UpdateItem(ctx, id, payload)
	if err != nil {
		return nil, s.fail(msgUpdateFailed, err)
	}
	s.commit(func() { s.replace(*item) })
	return item, nil
}

// Delete removes an item
func (s *InventoryStore) Delete(ctx context.Context, id string) error {
	s.begin()
	defer s.end()

	if err := s.api.DeleteItem(ctx, id); err != nil {
		return s.fail(msgDeleteFailed, err)
	}
	s.commit(func() {
		kept := s.items[:0:0]
		for _, item := range s.items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		s.items = kept
	})
	return nil
}

// Increment adds one to an item's quantity
func (s *InventoryStore) Increment(ctx context.Context, id string) (*domain.InventoryItem, error) {
	item, err := s.api.IncrementItem(ctx, id)
	if err != nil {
		return nil, s.fail(msgQuantityFailed, err)
	}
	s.commit(func() { s.replace(*item) })
	return item, nil
}

// Decrement subtracts one from an item's quantity
func (s *InventoryStore) Decrement(ctx context.Context, id string) (*domain.InventoryItem, error) {
	item, err := s.api.DecrementItem(ctx, id)
	if err != nil {
		return nil, s.fail(msgQuantityFailed, err)
	}
	s.commit(func() { s.replace(*item) })
	return item, nil
}

// replace swaps the item with the same id; caller holds mu
func (s *InventoryStore) replace(item domain.InventoryItem) {
	updated := make([]domain.InventoryItem, len(s.items))
	for i, existing := range s.items {
		if existing.ID == item.ID {
			updated[i] = item
		} else {
			updated[i] = existing
		}
	}
	s.items = updated
}

func (s *InventoryStore) begin() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *InventoryStore) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

// commit applies mutate, clears the error signal and notifies subscribers
func (s *InventoryStore) commit(mutate func()) {
	s.mu.Lock()
	mutate()
	s.lastError = ""
	snapshot := make([]domain.InventoryItem, len(s.items))
	copy(snapshot, s.items)
	subs := make([]func([]domain.InventoryItem), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// fail records msg as the store error and wraps err
func (s *InventoryStore) fail(msg string, err error) error {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	log.Printf("[PANTRY] %s %v", msg, err)
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreFailure, msg, err)
}
