// Package app wires configuration into the scan pipeline shared by the
// HTTP server and the scanner CLI.
package app

import (
	"context"
	"log"

	"github.com/pantrylens/backend/config"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/infrastructure/cache"
	"github.com/pantrylens/backend/internal/infrastructure/openfoodfacts"
	"github.com/pantrylens/backend/internal/infrastructure/pantryapi"
	"github.com/pantrylens/backend/internal/infrastructure/upcitemdb"
	"github.com/pantrylens/backend/internal/usecase"
)

// App holds the long-lived pipeline components
type App struct {
	Store    *usecase.InventoryStore
	Shopping *usecase.ShoppingListStore
	Resolver *usecase.ResolutionService
	Cache    cache.NameCache
	Sources  []domain.ProductLookup

	stopWatch func()
}

// New builds the pipeline and loads the initial inventory snapshot and
// shopping list. A failed inventory load is logged and leaves the store
// empty; the next scan retries it before deduplicating.
func New(ctx context.Context, cfg *config.Config) *App {
	debug := cfg.Server.Environment == "development" || cfg.Scan.Debug

	names := cache.New(cfg.Cache.Type, cfg.Cache.Path)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	backend := pantryapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	backend.SetDebug(debug)
	log.Printf("Pantry backend: %s", cfg.Backend.BaseURL)

	off := openfoodfacts.NewClient(cfg.OpenFoodFacts.BaseURL, openfoodfacts.Options{
		Language:      cfg.OpenFoodFacts.Language,
		UserAgent:     cfg.OpenFoodFacts.UserAgent,
		RatePerSecond: cfg.OpenFoodFacts.RatePerSecond,
		Burst:         cfg.OpenFoodFacts.Burst,
	})
	off.SetDebug(debug)

	// Rank order: operator backend, Open Food Facts, then UPCitemdb
	sources := []domain.ProductLookup{backend, off}
	if cfg.UPCItemDB.Enabled {
		sources = append(sources, upcitemdb.NewClient(cfg.UPCItemDB.BaseURL))
	}
	for i, s := range sources {
		log.Printf("Lookup source %d: %s", i+1, s.Name())
	}

	store := usecase.NewInventoryStore(backend)
	if err := store.Load(ctx); err != nil {
		log.Printf("WARNING: initial inventory load failed: %v", err)
	} else {
		log.Printf("Loaded %d inventory items", len(store.Items()))
	}

	stopWatch := usecase.WatchLowStock(store, func(items []domain.InventoryItem) {
		for _, item := range items {
			log.Printf("[PANTRY] %q is low: %d left, minimum %d", item.Name, item.Quantity, item.MinQuantity)
		}
	})

	shopping := usecase.NewShoppingListStore(backend)
	if err := shopping.Load(ctx); err != nil {
		log.Printf("WARNING: initial shopping list load failed: %v", err)
	}

	resolver := usecase.NewResolutionService(store, names, sources, usecase.ResolutionServiceConfig{
		PlaceholderPrefix:  cfg.Scan.PlaceholderPrefix,
		RenameTimeout:      cfg.Scan.RenameTimeout,
		RenameInterval:     cfg.Scan.RenameInterval,
		ResolveTimeout:     cfg.Scan.ResolveTimeout,
		SnapshotMaxAge:     cfg.Scan.SnapshotMaxAge,
		EnableDebugLogging: debug,
	})

	return &App{
		Store:     store,
		Shopping:  shopping,
		Resolver:  resolver,
		Cache:     names,
		Sources:   sources,
		stopWatch: stopWatch,
	}
}

// Close waits for background name resolution and releases the cache
func (a *App) Close() {
	a.Resolver.Wait()
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if err := a.Cache.Close(); err != nil {
		log.Printf("[CACHE] close failed: %v", err)
	}
}
