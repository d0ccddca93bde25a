package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pantrylens/backend/internal/domain"
)

// DefaultPlaceholderPrefix names freshly scanned items until a real name is known
const DefaultPlaceholderPrefix = "Produkt"

// DefaultSnapshotMaxAge bounds how old the item list may be before a scan
// reloads it, so rows added by other clients are seen by the barcode dedup
const DefaultSnapshotMaxAge = 30 * time.Second

// ResolutionServiceConfig holds configuration for the resolution service
type ResolutionServiceConfig struct {
	PlaceholderPrefix  string
	RenameTimeout      time.Duration
	RenameInterval     time.Duration
	ResolveTimeout     time.Duration
	// SnapshotMaxAge: 0 uses the default, negative reloads only after a failed load
	SnapshotMaxAge     time.Duration
	EnableDebugLogging bool
}

// ResolutionService turns confirmed barcodes into inventory rows and resolves
// product names from the cache and the ranked lookup sources
type ResolutionService struct {
	store   domain.InventoryStore
	cache   domain.NameCache
	sources []domain.ProductLookup

	placeholderPrefix  string
	renameTimeout      time.Duration
	renameInterval     time.Duration
	resolveTimeout     time.Duration
	snapshotMaxAge     time.Duration
	enableDebugLogging bool

	// mu serializes the dedup check and create of HandleDetected
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewResolutionService creates a resolution service. sources are tried in order.
func NewResolutionService(
	store domain.InventoryStore,
	cache domain.NameCache,
	sources []domain.ProductLookup,
	config ResolutionServiceConfig,
) *ResolutionService {
	prefix := strings.TrimSpace(config.PlaceholderPrefix)
	if prefix == "" {
		prefix = DefaultPlaceholderPrefix
	}
	renameTimeout := config.RenameTimeout
	if renameTimeout <= 0 {
		renameTimeout = DefaultRenameTimeout
	}
	renameInterval := config.RenameInterval
	if renameInterval <= 0 {
		renameInterval = DefaultRenameInterval
	}
	resolveTimeout := config.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = 20 * time.Second
	}
	snapshotMaxAge := config.SnapshotMaxAge
	if snapshotMaxAge == 0 {
		snapshotMaxAge = DefaultSnapshotMaxAge
	}

	return &ResolutionService{
		store:              store,
		cache:              cache,
		sources:            sources,
		placeholderPrefix:  prefix,
		renameTimeout:      renameTimeout,
		renameInterval:     renameInterval,
		resolveTimeout:     resolveTimeout,
		snapshotMaxAge:     snapshotMaxAge,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// HandleDetected records one confirmed scan.
// Flow: refresh stale snapshot -> dedup by barcode -> cached name -> placeholder + background resolve
func (s *ResolutionService) HandleDetected(ctx context.Context, barcode string) (*domain.ScanOutcome, error) {
	raw := strings.TrimSpace(barcode)
	if raw == "" {
		return nil, domain.ErrInvalidBarcode
	}

	canonical := Canonicalize(raw)
	candidates := Candidates(canonical, raw)
	outcome := &domain.ScanOutcome{Canonical: canonical, Candidates: candidates}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshSnapshot(ctx)
	items := s.store.Items()

	if existing, ok := findByBarcode(items, canonical); ok {
		log.Printf("[SCAN] %s matches item %s by barcode", canonical, existing.ID)
		return s.increment(ctx, existing, outcome)
	}

	if name, ok := s.cachedName(ctx, candidates); ok {
		if existing, ok := findByName(items, name); ok {
			log.Printf("[SCAN] %s matches item %s by cached name %q", canonical, existing.ID, name)
			return s.increment(ctx, existing, outcome)
		}
		item, err := s.create(ctx, name, canonical)
		if err != nil {
			return nil, err
		}
		outcome.Action = domain.ActionCreatedCached
		outcome.Item = *item
		return outcome, nil
	}

	placeholder := s.placeholderName(canonical)
	if existing, ok := findByName(items, placeholder); ok {
		log.Printf("[SCAN] %s matches item %s by name %q", canonical, existing.ID, placeholder)
		return s.increment(ctx, existing, outcome)
	}

	item, err := s.create(ctx, placeholder, canonical)
	if err != nil {
		return nil, err
	}
	outcome.Action = domain.ActionCreated
	outcome.Item = *item
	outcome.Resolving = len(s.sources) > 0

	if outcome.Resolving {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.resolveTimeout)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer cancel()
			s.resolveNameInBackground(bgCtx, canonical, candidates)
		}()
	}
	return outcome, nil
}

// refreshSnapshot reloads the item list when it failed to load or has aged
// out. A failed reload leaves the previous snapshot in place.
func (s *ResolutionService) refreshSnapshot(ctx context.Context) {
	if !s.store.Stale(s.snapshotMaxAge) {
		return
	}
	if err := s.store.Load(ctx); err != nil {
		log.Printf("[SCAN] inventory reload failed, deduplicating against last snapshot: %v", err)
	}
}

// Wait blocks until all background resolutions have finished
func (s *ResolutionService) Wait() {
	s.wg.Wait()
}

// LookupName resolves a display name for a barcode without touching inventory.
// A miss returns the placeholder name with Found=false.
func (s *ResolutionService) LookupName(ctx context.Context, barcode string) (*domain.ProductName, error) {
	raw := strings.TrimSpace(barcode)
	if raw == "" {
		return nil, domain.ErrInvalidBarcode
	}

	canonical := Canonicalize(raw)
	candidates := Candidates(canonical, raw)

	if name, ok := s.cachedName(ctx, candidates); ok {
		return &domain.ProductName{Barcode: canonical, Name: name, Found: true, Source: "cache"}, nil
	}

	if name, source, ok := s.lookupSources(ctx, candidates); ok {
		s.CacheNameForCandidates(ctx, candidates, name)
		return &domain.ProductName{Barcode: canonical, Name: name, Found: true, Source: source}, nil
	}

	return &domain.ProductName{Barcode: canonical, Name: s.placeholderName(canonical), Found: false}, nil
}

// CacheNameForCandidates stores name under every candidate. Cache write
// failures are logged and otherwise ignored.
func (s *ResolutionService) CacheNameForCandidates(ctx context.Context, candidates []string, name string) {
	if s.cache == nil || strings.TrimSpace(name) == "" || len(candidates) == 0 {
		return
	}
	if err := s.cache.Set(ctx, candidates, name); err != nil {
		log.Printf("[CACHE] write %v failed: %v", candidates, err)
	}
}

// resolveNameInBackground looks up the real name and renames the placeholder item
func (s *ResolutionService) resolveNameInBackground(ctx context.Context, canonical string, candidates []string) {
	name, source, ok := s.lookupSources(ctx, candidates)
	if !ok {
		log.Printf("[RESOLVE] no name for %s, keeping placeholder", canonical)
		return
	}
	log.Printf("[RESOLVE] %s resolved to %q via %s", canonical, name, source)

	s.CacheNameForCandidates(ctx, candidates, name)

	var item domain.InventoryItem
	found := pollUntil(ctx, s.renameTimeout, s.renameInterval, func() bool {
		var ok bool
		item, ok = findByBarcode(s.store.Items(), canonical)
		return ok
	})
	if !found {
		log.Printf("[RESOLVE] item for %s not visible after %s, giving up rename", canonical, s.renameTimeout)
		return
	}

	if sameName(item.Name, name) {
		return
	}
	if _, err := s.store.Update(ctx, item.ID, domain.InventoryItemUpdate{Name: &name}); err != nil {
		log.Printf("[RESOLVE] rename of item %s failed: %v", item.ID, err)
	}
}

// lookupSources tries each candidate against each source in rank order and
// returns the first usable name
func (s *ResolutionService) lookupSources(ctx context.Context, candidates []string) (string, string, bool) {
	for _, candidate := range candidates {
		for _, source := range s.sources {
			if ctx.Err() != nil {
				return "", "", false
			}

			name, err := source.LookupName(ctx, candidate)
			if err != nil {
				if s.enableDebugLogging || !errors.Is(err, domain.ErrProductNotFound) {
					log.Printf("[RESOLVE] %s lookup %q: %v", source.Name(), candidate, err)
				}
				continue
			}

			name = strings.TrimSpace(name)
			if name == "" || isPlaceholderEcho(name, candidates) {
				if s.enableDebugLogging {
					log.Printf("[RESOLVE] %s returned placeholder %q for %q", source.Name(), name, candidate)
				}
				continue
			}
			return name, source.Name(), true
		}
	}
	return "", "", false
}

// cachedName returns the first cached name among candidates
func (s *ResolutionService) cachedName(ctx context.Context, candidates []string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	for _, candidate := range candidates {
		name, err := s.cache.Get(ctx, candidate)
		if err != nil {
			if !errors.Is(err, domain.ErrCacheMiss) {
				log.Printf("[CACHE] read %q failed: %v", candidate, err)
			}
			continue
		}
		if strings.TrimSpace(name) != "" {
			return name, true
		}
	}
	return "", false
}

func (s *ResolutionService) placeholderName(canonical string) string {
	return fmt.Sprintf("%s %s", s.placeholderPrefix, canonical)
}

func (s *ResolutionService) create(ctx context.Context, name, canonical string) (*domain.InventoryItem, error) {
	barcode := canonical
	item, err := s.store.Create(ctx, domain.InventoryItemCreate{
		Name:     name,
		Barcode:  &barcode,
		Quantity: 1,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[SCAN] created item %s %q for %s", item.ID, item.Name, canonical)
	return item, nil
}

func (s *ResolutionService) increment(ctx context.Context, existing domain.InventoryItem, outcome *domain.ScanOutcome) (*domain.ScanOutcome, error) {
	item, err := s.store.Increment(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	outcome.Action = domain.ActionIncremented
	outcome.Item = *item
	return outcome, nil
}

// findByBarcode finds the item whose stored barcode canonicalizes to canonical
func findByBarcode(items []domain.InventoryItem, canonical string) (domain.InventoryItem, bool) {
	if canonical == "" {
		return domain.InventoryItem{}, false
	}
	for _, item := range items {
		stored := item.BarcodeValue()
		if stored != "" && Canonicalize(stored) == canonical {
			return item, true
		}
	}
	return domain.InventoryItem{}, false
}

// findByName finds the item whose normalized name equals name's
func findByName(items []domain.InventoryItem, name string) (domain.InventoryItem, bool) {
	target := normalizeName(name)
	if target == "" {
		return domain.InventoryItem{}, false
	}
	for _, item := range items {
		if normalizeName(item.Name) == target {
			return item, true
		}
	}
	return domain.InventoryItem{}, false
}
