package pantryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pantrylens/backend/internal/domain"
)

// Client talks to the pantry backend: the /items and /shopping-list REST
// resources and the operator-run product lookup
type Client struct {
	httpClient *http.Client
	baseURL    string
	debug      bool
}

// NewClient creates a pantry backend client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// SetDebug enables request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Name identifies the lookup source in logs
func (c *Client) Name() string {
	return "backend"
}

// lookupResponse is returned by GET /products/lookup/{barcode}
type lookupResponse struct {
	Name  string `json:"name"`
	Found bool   `json:"found"`
	Image string `json:"image,omitempty"`
}

// LookupName asks the backend for a product name
func (c *Client) LookupName(ctx context.Context, barcode string) (string, error) {
	var out lookupResponse
	status, err := c.do(ctx, http.MethodGet, "/products/lookup/"+url.PathEscape(barcode), nil, &out)
	if err != nil {
		if status == http.StatusNotFound {
			return "", domain.ErrProductNotFound
		}
		return "", fmt.Errorf("%w: %v", domain.ErrLookupFailure, err)
	}
	if !out.Found || strings.TrimSpace(out.Name) == "" {
		return "", domain.ErrProductNotFound
	}
	return strings.TrimSpace(out.Name), nil
}

// ListItems returns all inventory items
func (c *Client) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if _, err := c.do(ctx, http.MethodGet, "/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem creates an inventory item
func (c *Client) CreateItem(ctx context.Context, payload domain.InventoryItemCreate) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if _, err := c.do(ctx, http.MethodPost, "/items", payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem applies a partial update
func (c *Client) UpdateItem(ctx context.Context, id string, payload domain.InventoryItemUpdate) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if _, err := c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id), payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem deletes an inventory item
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil)
	return err
}

// IncrementItem adds one to the quantity
func (c *Client) IncrementItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return c.adjust(ctx, id, "increment")
}

// DecrementItem subtracts one from the quantity
func (c *Client) DecrementItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return c.adjust(ctx, id, "decrement")
}

// ListShoppingItems returns the shopping list
func (c *Client) ListShoppingItems(ctx context.Context) ([]domain.ShoppingListItem, error) {
	var items []domain.ShoppingListItem
	if _, err := c.do(ctx, http.MethodGet, "/shopping-list", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateShoppingItem adds an entry to the shopping list
func (c *Client) CreateShoppingItem(ctx context.Context, payload domain.ShoppingListItemCreate) (*domain.ShoppingListItem, error) {
	var item domain.ShoppingListItem
	if _, err := c.do(ctx, http.MethodPost, "/shopping-list", payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateShoppingItem applies a partial update to a shopping list entry
func (c *Client) UpdateShoppingItem(ctx context.Context, id string, payload domain.ShoppingListItemUpdate) (*domain.ShoppingListItem, error) {
	var item domain.ShoppingListItem
	if _, err := c.do(ctx, http.MethodPut, "/shopping-list/"+url.PathEscape(id), payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteShoppingItem removes a shopping list entry
func (c *Client) DeleteShoppingItem(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/shopping-list/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) adjust(ctx context.Context, id, op string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	path := fmt.Sprintf("/items/%s/%s", url.PathEscape(id), op)
	if _, err := c.do(ctx, http.MethodPost, path, struct{}{}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// do sends a JSON request and decodes a JSON response into out.
// It returns the HTTP status (0 on transport errors).
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.debug {
		log.Printf("[PANTRY] %s %s", method, path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && isResourcePath(path) {
		return resp.StatusCode, domain.ErrItemNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%w: %s %s: status %d: %s",
			domain.ErrStoreFailure, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: failed to decode response: %v", domain.ErrStoreFailure, err)
	}
	return resp.StatusCode, nil
}

// isResourcePath reports whether path addresses a single item or list entry
func isResourcePath(path string) bool {
	return strings.HasPrefix(path, "/items/") || strings.HasPrefix(path, "/shopping-list/")
}
