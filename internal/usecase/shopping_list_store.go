package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/pantrylens/backend/internal/domain"
)

// Error messages recorded on the shopping list store for the UI
const (
	msgShoppingLoadFailed   = "Could not load shopping list."
	msgShoppingCreateFailed = "Could not add shopping item."
	msgShoppingUpdateFailed = "Could not update shopping item."
	msgShoppingDeleteFailed = "Could not delete shopping item."
	msgShoppingImportFailed = "Could not import Alexa command."
)

// ShoppingListStore keeps the shopping list in sync with the pantry API.
// Adding a name that is already open on the list raises its quantity
// instead of creating a second entry.
type ShoppingListStore struct {
	api domain.ShoppingListAPI

	// writeMu serializes merge-or-create so two adds of one name give one entry
	writeMu sync.Mutex

	mu         sync.RWMutex
	items      []domain.ShoppingListItem
	loading    int
	lastError  string
	lastImport *domain.AlexaImportResult
}

// NewShoppingListStore creates an empty store backed by api
func NewShoppingListStore(api domain.ShoppingListAPI) *ShoppingListStore {
	return &ShoppingListStore{api: api}
}

// Items returns a snapshot of all entries
func (s *ShoppingListStore) Items() []domain.ShoppingListItem {
	return s.filter(func(domain.ShoppingListItem) bool { return true })
}

// OpenItems returns entries not yet ticked off
func (s *ShoppingListStore) OpenItems() []domain.ShoppingListItem {
	return s.filter(func(item domain.ShoppingListItem) bool { return !item.Completed })
}

// CompletedItems returns ticked-off entries
func (s *ShoppingListStore) CompletedItems() []domain.ShoppingListItem {
	return s.filter(func(item domain.ShoppingListItem) bool { return item.Completed })
}

func (s *ShoppingListStore) filter(keep func(domain.ShoppingListItem) bool) []domain.ShoppingListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ShoppingListItem, 0, len(s.items))
	for _, item := range s.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Error returns the last store-level error message, empty after a success
func (s *ShoppingListStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Loading reports whether a list, add or import call is in flight
func (s *ShoppingListStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// LastImport returns the result of the most recent voice import
func (s *ShoppingListStore) LastImport() *domain.AlexaImportResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastImport
}

// Load replaces the list with the API's
func (s *ShoppingListStore) Load(ctx context.Context) error {
	s.begin()
	defer s.end()

	items, err := s.api.ListShoppingItems(ctx)
	if err != nil {
		return s.fail(msgShoppingLoadFailed, err)
	}
	s.commit(func() { s.items = items })
	return nil
}

// Add puts name on the list, merging into an open entry with the same name
func (s *ShoppingListStore) Add(ctx context.Context, payload domain.ShoppingListItemCreate) (*domain.ShoppingListItem, error) {
	s.begin()
	defer s.end()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	item, err := s.add(ctx, payload)
	if err != nil {
		return nil, s.fail(msgShoppingCreateFailed, err)
	}
	return item, nil
}

// add is Add without the loading and error bookkeeping; caller holds writeMu
func (s *ShoppingListStore) add(ctx context.Context, payload domain.ShoppingListItemCreate) (*domain.ShoppingListItem, error) {
	name := collapseSpaces(payload.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: shopping item name is required", domain.ErrInvalidRequest)
	}
	quantity := payload.Quantity
	if quantity < 1 {
		quantity = 1
	}

	if existing, ok := s.findOpen(name); ok {
		total := existing.Quantity + quantity
		item, err := s.api.UpdateShoppingItem(ctx, existing.ID, domain.ShoppingListItemUpdate{Quantity: &total})
		if err != nil {
			return nil, err
		}
		log.Printf("[SHOPPING] %q now %d", item.Name, item.Quantity)
		s.commit(func() { s.upsert(*item) })
		return item, nil
	}

	item, err := s.api.CreateShoppingItem(ctx, domain.ShoppingListItemCreate{Name: name, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	log.Printf("[SHOPPING] added %q x%d", item.Name, item.Quantity)
	s.commit(func() { s.upsert(*item) })
	return item, nil
}

// Update applies a partial update such as ticking an entry off
func (s *ShoppingListStore) Update(ctx context.Context, id string, payload domain.ShoppingListItemUpdate) (*domain.ShoppingListItem, error) {
	if payload.Name != nil {
		name := collapseSpaces(*payload.Name)
		if name == "" {
			return nil, s.fail(msgShoppingUpdateFailed, fmt.Errorf("%w: shopping item name is empty", domain.ErrInvalidRequest))
		}
		payload.Name = &name
	}

	item, err := s.api.UpdateShoppingItem(ctx, id, payload)
	if err != nil {
		return nil, s.fail(msgShoppingUpdateFailed, err)
	}
	s.commit(func() { s.upsert(*item) })
	return item, nil
}

// Delete removes an entry
func (s *ShoppingListStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteShoppingItem(ctx, id); err != nil {
		return s.fail(msgShoppingDeleteFailed, err)
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

// ImportAlexa parses a spoken shopping command and adds every entry, then
// reloads the list
func (s *ShoppingListStore) ImportAlexa(ctx context.Context, utterance string) (*domain.AlexaImportResult, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, fmt.Errorf("%w: utterance is empty", domain.ErrInvalidRequest)
	}

	s.begin()
	defer s.end()

	entries := ParseShoppingUtterance(utterance)
	result := &domain.AlexaImportResult{
		CreatedItems: []domain.ShoppingListItem{},
		ParsedNames:  make([]string, 0, len(entries)),
	}

	s.writeMu.Lock()
	for _, entry := range entries {
		item, err := s.add(ctx, domain.ShoppingListItemCreate{Name: entry.Name, Quantity: entry.Quantity})
		if err != nil {
			s.writeMu.Unlock()
			return nil, s.fail(msgShoppingImportFailed, err)
		}
		result.CreatedItems = append(result.CreatedItems, *item)
		result.ParsedNames = append(result.ParsedNames, entry.Name)
	}
	s.writeMu.Unlock()

	log.Printf("[SHOPPING] voice import parsed %d entries from %q", len(entries), utterance)
	s.mu.Lock()
	s.lastImport = result
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		log.Printf("[SHOPPING] reload after import failed: %v", err)
	}
	return result, nil
}

// Restock adds every low-stock inventory item that is not already open on
// the list, asking for enough to get back above its minimum
func (s *ShoppingListStore) Restock(ctx context.Context, lowStock []domain.InventoryItem) ([]domain.ShoppingListItem, error) {
	s.begin()
	defer s.end()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	added := []domain.ShoppingListItem{}
	for _, inv := range lowStock {
		if !inv.IsLowStock() {
			continue
		}
		name := collapseSpaces(inv.Name)
		if _, ok := s.findOpen(name); ok || name == "" {
			continue
		}
		item, err := s.add(ctx, domain.ShoppingListItemCreate{
			Name:     name,
			Quantity: inv.MinQuantity - inv.Quantity + 1,
		})
		if err != nil {
			return added, s.fail(msgShoppingCreateFailed, err)
		}
		added = append(added, *item)
	}
	return added, nil
}

// findOpen returns the open entry whose name matches case-insensitively
func (s *ShoppingListStore) findOpen(name string) (domain.ShoppingListItem, bool) {
	target := normalizeName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if !item.Completed && normalizeName(item.Name) == target {
			return item, true
		}
	}
	return domain.ShoppingListItem{}, false
}

// upsert replaces the entry with the same id or puts item first; caller holds mu
func (s *ShoppingListStore) upsert(item domain.ShoppingListItem) {
	rest := make([]domain.ShoppingListItem, 0, len(s.items)+1)
	replaced := false
	for _, existing := range s.items {
		if existing.ID == item.ID {
			rest = append(rest, item)
			replaced = true
		} else {
			rest = append(rest, existing)
		}
	}
	if !replaced {
		rest = append([]domain.ShoppingListItem{item}, rest...)
	}
	s.items = rest
}

func (s *ShoppingListStore) begin() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *ShoppingListStore) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

// commit applies mutate under the lock and clears the error signal
func (s *ShoppingListStore) commit(mutate func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate()
	s.lastError = ""
}

// fail records msg as the store error and wraps err
func (s *ShoppingListStore) fail(msg string, err error) error {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	log.Printf("[SHOPPING] %s %v", msg, err)
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreFailure, msg, err)
}
