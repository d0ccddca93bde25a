package usecase

import (
	"sync"

	"github.com/pantrylens/backend/internal/domain"
)

// WatchLowStock subscribes to store and calls notify with the items that
// dropped to or below their minimum since the previous change. Items already
// low when the watch starts are not reported. The returned func stops the watch.
func WatchLowStock(store *InventoryStore, notify func([]domain.InventoryItem)) func() {
	var mu sync.Mutex
	low := make(map[string]bool)
	for _, item := range store.LowStock() {
		low[item.ID] = true
	}

	return store.Subscribe(func(items []domain.InventoryItem) {
		mu.Lock()
		var newly []domain.InventoryItem
		current := make(map[string]bool, len(low))
		for _, item := range items {
			if !item.IsLowStock() {
				continue
			}
			current[item.ID] = true
			if !low[item.ID] {
				newly = append(newly, item)
			}
		}
		low = current
		mu.Unlock()

		if len(newly) > 0 {
			notify(newly)
		}
	})
}
