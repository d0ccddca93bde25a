package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pantrylens/backend/config"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/infrastructure/cache"
	"github.com/pantrylens/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:4200"},
		},
		Cache: config.CacheConfig{Type: "memory"},
	}
}

// MockScanResolver is a mock implementation of ScanResolver
type MockScanResolver struct {
	HandleDetectedFunc func(ctx context.Context, barcode string) (*domain.ScanOutcome, error)
	LookupNameFunc     func(ctx context.Context, barcode string) (*domain.ProductName, error)
}

func (m *MockScanResolver) HandleDetected(ctx context.Context, barcode string) (*domain.ScanOutcome, error) {
	return m.HandleDetectedFunc(ctx, barcode)
}

func (m *MockScanResolver) LookupName(ctx context.Context, barcode string) (*domain.ProductName, error) {
	return m.LookupNameFunc(ctx, barcode)
}

// fakeInventoryAPI keeps items in memory for end-to-end router tests
type fakeInventoryAPI struct {
	mu     sync.Mutex
	items  []domain.InventoryItem
	nextID int
}

func (f *fakeInventoryAPI) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.InventoryItem(nil), f.items...), nil
}

func (f *fakeInventoryAPI) CreateItem(ctx context.Context, p domain.InventoryItemCreate) (*domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := domain.InventoryItem{
		ID:          fmt.Sprintf("item-%d", f.nextID),
		Name:        p.Name,
		Barcode:     p.Barcode,
		Quantity:    p.Quantity,
		MinQuantity: p.MinQuantity,
	}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeInventoryAPI) UpdateItem(ctx context.Context, id string, p domain.InventoryItemUpdate) (*domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			if p.Name != nil {
				f.items[i].Name = *p.Name
			}
			item := f.items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (f *fakeInventoryAPI) DeleteItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (f *fakeInventoryAPI) IncrementItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Quantity++
			item := f.items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (f *fakeInventoryAPI) DecrementItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			if f.items[i].Quantity > 0 {
				f.items[i].Quantity--
			}
			item := f.items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

// fakeShoppingAPI keeps the shopping list in memory
type fakeShoppingAPI struct {
	mu     sync.Mutex
	items  []domain.ShoppingListItem
	nextID int
}

func (f *fakeShoppingAPI) ListShoppingItems(ctx context.Context) ([]domain.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ShoppingListItem(nil), f.items...), nil
}

func (f *fakeShoppingAPI) CreateShoppingItem(ctx context.Context, p domain.ShoppingListItemCreate) (*domain.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := domain.ShoppingListItem{ID: fmt.Sprintf("shop-%d", f.nextID), Name: p.Name, Quantity: p.Quantity}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeShoppingAPI) UpdateShoppingItem(ctx context.Context, id string, p domain.ShoppingListItemUpdate) (*domain.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			if p.Name != nil {
				f.items[i].Name = *p.Name
			}
			if p.Quantity != nil {
				f.items[i].Quantity = *p.Quantity
			}
			if p.Completed != nil {
				f.items[i].Completed = *p.Completed
			}
			item := f.items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (f *fakeShoppingAPI) DeleteShoppingItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrItemNotFound
}

// setupTestRouter wires a real resolution service over an in-memory backend
func setupTestRouter(t *testing.T) (*gin.Engine, *usecase.InventoryStore, *cache.MemoryNameCache) {
	t.Helper()

	store := usecase.NewInventoryStore(&fakeInventoryAPI{})
	require.NoError(t, store.Load(context.Background()))

	names := cache.NewMemoryNameCache()
	resolver := usecase.NewResolutionService(store, names, nil, usecase.ResolutionServiceConfig{})

	router := SetupRouter(testConfig(), NewHandler(resolver, store, nil))
	require.NotNil(t, router)
	return router, store, names
}

// setupShoppingRouter wires inventory and shopping list stores over in-memory backends
func setupShoppingRouter(t *testing.T) (*gin.Engine, *usecase.InventoryStore, *usecase.ShoppingListStore) {
	t.Helper()

	store := usecase.NewInventoryStore(&fakeInventoryAPI{})
	require.NoError(t, store.Load(context.Background()))
	shopping := usecase.NewShoppingListStore(&fakeShoppingAPI{})
	require.NoError(t, shopping.Load(context.Background()))

	router := SetupRouter(testConfig(), NewHandler(nil, store, shopping))
	return router, store, shopping
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealthCheckEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	t.Run("returns healthy status", func(t *testing.T) {
		w, resp := doJSON(t, router, "GET", "/health", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", resp["status"])
		assert.Equal(t, "pantrylens-backend", resp["service"])
		assert.NotEmpty(t, resp["version"])
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req := httptest.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusNotFound, w.Code, "method %s", method)
		}
	})
}

func TestNormalizeBarcodeEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	tests := []struct {
		name          string
		code          string
		wantCanonical string
		wantValid     bool
	}{
		{"EAN-13", "4006381333931", "4006381333931", true},
		{"UPC-A gets zero-padded candidate", "036000291452", "036000291452", true},
		{"GS1 element string", "0104006381333931", "4006381333931", true},
		{"bad check digit", "4006381333932", "4006381333932", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/barcodes/"+tt.code, nil))
			require.Equal(t, http.StatusOK, w.Code)

			var resp BarcodeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Raw)
			assert.Equal(t, tt.wantCanonical, resp.Canonical)
			assert.Equal(t, tt.wantValid, resp.ValidGTIN)
			assert.Equal(t, tt.code, resp.Candidates[0])
		})
	}
}

func TestRecordScanEndpoint(t *testing.T) {
	t.Run("first scan creates placeholder, second increments", func(t *testing.T) {
		router, store, _ := setupTestRouter(t)

		w, resp := doJSON(t, router, "POST", "/api/v1/scans", `{"barcode":"4006381333931"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, string(domain.ActionCreated), resp["action"])
		item := resp["item"].(map[string]any)
		assert.Equal(t, "Produkt 4006381333931", item["name"])
		assert.Equal(t, "4006381333931", item["barcode"])

		w, resp = doJSON(t, router, "POST", "/api/v1/scans", `{"barcode":"04006381333931"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(domain.ActionIncremented), resp["action"])

		items := store.Items()
		require.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Quantity)
	})

	t.Run("cached name creates a named item", func(t *testing.T) {
		router, store, names := setupTestRouter(t)
		require.NoError(t, names.Set(context.Background(), []string{"5000112637922"}, "Cola Zero"))

		w, resp := doJSON(t, router, "POST", "/api/v1/scans", `{"barcode":"5000112637922"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, string(domain.ActionCreatedCached), resp["action"])
		assert.Equal(t, "Cola Zero", store.Items()[0].Name)
	})

	t.Run("missing barcode field is rejected", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)
		w, resp := doJSON(t, router, "POST", "/api/v1/scans", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request format", resp["error"])
	})

	t.Run("blank barcode is rejected", func(t *testing.T) {
		router, store, _ := setupTestRouter(t)
		w, resp := doJSON(t, router, "POST", "/api/v1/scans", `{"barcode":"   "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Barcode is required", resp["error"])
		assert.Empty(t, store.Items())
	})

	t.Run("store failure maps to bad gateway", func(t *testing.T) {
		resolver := &MockScanResolver{
			HandleDetectedFunc: func(ctx context.Context, barcode string) (*domain.ScanOutcome, error) {
				return nil, fmt.Errorf("%w: backend down", domain.ErrStoreFailure)
			},
		}
		router := SetupRouter(testConfig(), NewHandler(resolver, nil, nil))
		w, _ := doJSON(t, router, "POST", "/api/v1/scans", `{"barcode":"4006381333931"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("unexpected error maps to internal error", func(t *testing.T) {
		resolver := &MockScanResolver{
			HandleDetectedFunc: func(ctx context.Context, barcode string) (*domain.ScanOutcome, error) {
				return nil, fmt.Errorf("boom")
			},
		}
		router := SetupRouter(testConfig(), NewHandler(resolver, nil, nil))
		w, _ := doJSON(t, router, "POST", "/api/v1/scans", `{"barcode":"4006381333931"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("no resolver configured", func(t *testing.T) {
		router := SetupRouter(testConfig(), NewHandler(nil, nil, nil))
		w, _ := doJSON(t, router, "POST", "/api/v1/scans", `{"barcode":"4006381333931"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestLookupProductEndpoint(t *testing.T) {
	t.Run("cache hit", func(t *testing.T) {
		router, _, names := setupTestRouter(t)
		require.NoError(t, names.Set(context.Background(), []string{"4006381333931"}, "Stabilo Boss"))

		w, resp := doJSON(t, router, "GET", "/api/v1/products/lookup/4006381333931", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Stabilo Boss", resp["name"])
		assert.Equal(t, true, resp["found"])
		assert.Equal(t, "cache", resp["source"])
	})

	t.Run("miss returns placeholder", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		w, resp := doJSON(t, router, "GET", "/api/v1/products/lookup/4006381333931", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Produkt 4006381333931", resp["name"])
		assert.Equal(t, false, resp["found"])
	})
}

func TestListItemsEndpoint(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	ctx := context.Background()

	_, err := store.Create(ctx, domain.InventoryItemCreate{Name: "Milch", Quantity: 1, MinQuantity: 2})
	require.NoError(t, err)
	_, err = store.Create(ctx, domain.InventoryItemCreate{Name: "Reis", Quantity: 5, MinQuantity: 1})
	require.NoError(t, err)

	t.Run("lists all items", func(t *testing.T) {
		w, resp := doJSON(t, router, "GET", "/api/v1/items", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, resp["count"])
	})

	t.Run("filters low stock", func(t *testing.T) {
		w, resp := doJSON(t, router, "GET", "/api/v1/items?low_stock=true", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, resp["count"])
		items := resp["items"].([]any)
		assert.Equal(t, "Milch", items[0].(map[string]any)["name"])
	})

	t.Run("rejects malformed filter", func(t *testing.T) {
		w, _ := doJSON(t, router, "GET", "/api/v1/items?low_stock=maybe", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCORSIntegration(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestItemEndpoints(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	item, err := store.Create(context.Background(), domain.InventoryItemCreate{Name: "Milch", Quantity: 1, MinQuantity: 1})
	require.NoError(t, err)
	path := "/api/v1/items/" + item.ID

	t.Run("gets item by id", func(t *testing.T) {
		w, resp := doJSON(t, router, "GET", path, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Milch", resp["name"])
	})

	t.Run("increments and decrements", func(t *testing.T) {
		w, resp := doJSON(t, router, "POST", path+"/increment", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, resp["quantity"])

		w, resp = doJSON(t, router, "POST", path+"/decrement", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, resp["quantity"])
	})

	t.Run("deletes item", func(t *testing.T) {
		w, _ := doJSON(t, router, "DELETE", path, "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, store.Items())

		w, _ = doJSON(t, router, "GET", path, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		w, _ := doJSON(t, router, "POST", "/api/v1/items/missing/increment", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w, _ = doJSON(t, router, "DELETE", "/api/v1/items/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing store answers unavailable", func(t *testing.T) {
		router := SetupRouter(testConfig(), NewHandler(nil, nil, nil))
		w, _ := doJSON(t, router, "GET", path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestShoppingListEndpoints(t *testing.T) {
	router, store, shopping := setupShoppingRouter(t)

	t.Run("adds and merges entries", func(t *testing.T) {
		w, resp := doJSON(t, router, "POST", "/api/v1/shopping-list", `{"name":"Milch","quantity":1}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Milch", resp["name"])

		w, resp = doJSON(t, router, "POST", "/api/v1/shopping-list", `{"name":"milch","quantity":2}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.EqualValues(t, 3, resp["quantity"])
		assert.Len(t, shopping.Items(), 1)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		w, _ := doJSON(t, router, "POST", "/api/v1/shopping-list", `{"name":"   "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = doJSON(t, router, "POST", "/api/v1/shopping-list", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ticks off and filters by status", func(t *testing.T) {
		id := shopping.Items()[0].ID
		w, resp := doJSON(t, router, "PUT", "/api/v1/shopping-list/"+id, `{"completed":true}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, resp["completed"])

		_, resp = doJSON(t, router, "GET", "/api/v1/shopping-list?status=open", "")
		assert.EqualValues(t, 0, resp["count"])
		_, resp = doJSON(t, router, "GET", "/api/v1/shopping-list?status=completed", "")
		assert.EqualValues(t, 1, resp["count"])

		w, _ = doJSON(t, router, "GET", "/api/v1/shopping-list?status=later", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("imports voice command", func(t *testing.T) {
		w, resp := doJSON(t, router, "POST", "/api/v1/shopping-list/alexa-import",
			`{"utterance":"füge 2 mal eier und butter hinzu"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []any{"eier", "butter hinzu"}, resp["parsed_names"])
		assert.Len(t, resp["created_items"], 2)

		w, _ = doJSON(t, router, "POST", "/api/v1/shopping-list/alexa-import", `{"utterance":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("restocks low items once", func(t *testing.T) {
		_, err := store.Create(context.Background(), domain.InventoryItemCreate{Name: "Reis", Quantity: 0, MinQuantity: 1})
		require.NoError(t, err)

		w, resp := doJSON(t, router, "POST", "/api/v1/shopping-list/restock", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, resp["count"])

		_, resp = doJSON(t, router, "POST", "/api/v1/shopping-list/restock", "")
		assert.EqualValues(t, 0, resp["count"])
	})

	t.Run("deletes entry", func(t *testing.T) {
		id := shopping.Items()[0].ID
		w, _ := doJSON(t, router, "DELETE", "/api/v1/shopping-list/"+id, "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		w, _ = doJSON(t, router, "DELETE", "/api/v1/shopping-list/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing store answers unavailable", func(t *testing.T) {
		router := SetupRouter(testConfig(), NewHandler(nil, nil, nil))
		w, _ := doJSON(t, router, "GET", "/api/v1/shopping-list", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
