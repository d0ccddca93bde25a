package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/usecase"
)

// ScanResolver is the part of the resolution service the handlers need
type ScanResolver interface {
	HandleDetected(ctx context.Context, barcode string) (*domain.ScanOutcome, error)
	LookupName(ctx context.Context, barcode string) (*domain.ProductName, error)
}

// InventoryService exposes the cached inventory snapshot and the manual
// quantity controls
type InventoryService interface {
	Items() []domain.InventoryItem
	LowStock() []domain.InventoryItem
	GetByID(id string) (domain.InventoryItem, bool)
	Error() string
	Delete(ctx context.Context, id string) error
	Increment(ctx context.Context, id string) (*domain.InventoryItem, error)
	Decrement(ctx context.Context, id string) (*domain.InventoryItem, error)
}

// ShoppingService manages the household shopping list
type ShoppingService interface {
	Items() []domain.ShoppingListItem
	OpenItems() []domain.ShoppingListItem
	CompletedItems() []domain.ShoppingListItem
	Error() string
	Add(ctx context.Context, payload domain.ShoppingListItemCreate) (*domain.ShoppingListItem, error)
	Update(ctx context.Context, id string, payload domain.ShoppingListItemUpdate) (*domain.ShoppingListItem, error)
	Delete(ctx context.Context, id string) error
	ImportAlexa(ctx context.Context, utterance string) (*domain.AlexaImportResult, error)
	Restock(ctx context.Context, lowStock []domain.InventoryItem) ([]domain.ShoppingListItem, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver ScanResolver
	items    InventoryService
	shopping ShoppingService
}

// NewHandler creates a new HTTP handler. Any dependency may be nil; the
// routes that need it then answer 503.
func NewHandler(resolver ScanResolver, items InventoryService, shopping ShoppingService) *Handler {
	return &Handler{
		resolver: resolver,
		items:    items,
		shopping: shopping,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pantrylens-backend",
		"version": "1.0.0",
	})
}

// BarcodeResponse describes how a raw barcode is normalized
type BarcodeResponse struct {
	Raw        string   `json:"raw"`
	Canonical  string   `json:"canonical"`
	Candidates []string `json:"candidates"`
	ValidGTIN  bool     `json:"valid_gtin"`
}

// NormalizeBarcode handles GET /api/v1/barcodes/:code
func (h *Handler) NormalizeBarcode(c *gin.Context) {
	raw := c.Param("code")
	canonical := usecase.Canonicalize(raw)

	c.JSON(http.StatusOK, BarcodeResponse{
		Raw:        raw,
		Canonical:  canonical,
		Candidates: usecase.Candidates(canonical, raw),
		ValidGTIN:  usecase.IsValidGtin(canonical),
	})
}

// ScanRequest is the body of POST /api/v1/scans
type ScanRequest struct {
	Barcode string `json:"barcode" binding:"required"`
}

// RecordScan handles POST /api/v1/scans
func (h *Handler) RecordScan(c *gin.Context) {
	if h.resolver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan resolution not configured"})
		return
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	outcome, err := h.resolver.HandleDetected(c.Request.Context(), req.Barcode)
	if err != nil {
		h.respondError(c, "scan", err)
		return
	}

	status := http.StatusCreated
	if outcome.Action == domain.ActionIncremented {
		status = http.StatusOK
	}
	c.JSON(status, outcome)
}

// LookupProduct handles GET /api/v1/products/lookup/:barcode
func (h *Handler) LookupProduct(c *gin.Context) {
	if h.resolver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Product lookup not configured"})
		return
	}

	result, err := h.resolver.LookupName(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, "lookup", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListItems handles GET /api/v1/items. ?low_stock=true filters to items at or
// below their minimum quantity.
func (h *Handler) ListItems(c *gin.Context) {
	if h.items == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Inventory not configured"})
		return
	}

	lowStock := false
	if v := c.Query("low_stock"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "low_stock must be a boolean"})
			return
		}
		lowStock = parsed
	}

	items := h.items.Items()
	if lowStock {
		items = h.items.LowStock()
	}

	resp := gin.H{"items": items, "count": len(items)}
	if msg := h.items.Error(); msg != "" {
		resp["error"] = msg
	}
	c.JSON(http.StatusOK, resp)
}

// GetItem handles GET /api/v1/items/:id
func (h *Handler) GetItem(c *gin.Context) {
	if h.items == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Inventory not configured"})
		return
	}

	item, ok := h.items.GetByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/items/:id
func (h *Handler) DeleteItem(c *gin.Context) {
	if h.items == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Inventory not configured"})
		return
	}

	if err := h.items.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "delete item", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// IncrementItem handles POST /api/v1/items/:id/increment
func (h *Handler) IncrementItem(c *gin.Context) {
	h.adjustItem(c, "increment", func(ctx context.Context, id string) (*domain.InventoryItem, error) {
		return h.items.Increment(ctx, id)
	})
}

// DecrementItem handles POST /api/v1/items/:id/decrement
func (h *Handler) DecrementItem(c *gin.Context) {
	h.adjustItem(c, "decrement", func(ctx context.Context, id string) (*domain.InventoryItem, error) {
		return h.items.Decrement(ctx, id)
	})
}

func (h *Handler) adjustItem(c *gin.Context, op string, adjust func(context.Context, string) (*domain.InventoryItem, error)) {
	if h.items == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Inventory not configured"})
		return
	}

	item, err := adjust(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListShoppingItems handles GET /api/v1/shopping-list. ?status=open or
// ?status=completed narrows the list.
func (h *Handler) ListShoppingItems(c *gin.Context) {
	if h.shopping == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shopping list not configured"})
		return
	}

	var items []domain.ShoppingListItem
	switch c.Query("status") {
	case "":
		items = h.shopping.Items()
	case "open":
		items = h.shopping.OpenItems()
	case "completed":
		items = h.shopping.CompletedItems()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be open or completed"})
		return
	}

	resp := gin.H{"items": items, "count": len(items)}
	if msg := h.shopping.Error(); msg != "" {
		resp["error"] = msg
	}
	c.JSON(http.StatusOK, resp)
}

// AddShoppingItem handles POST /api/v1/shopping-list
func (h *Handler) AddShoppingItem(c *gin.Context) {
	if h.shopping == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shopping list not configured"})
		return
	}

	var req domain.ShoppingListItemCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	item, err := h.shopping.Add(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "add shopping item", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateShoppingItem handles PUT /api/v1/shopping-list/:id
func (h *Handler) UpdateShoppingItem(c *gin.Context) {
	if h.shopping == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shopping list not configured"})
		return
	}

	var req domain.ShoppingListItemUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	item, err := h.shopping.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, "update shopping item", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteShoppingItem handles DELETE /api/v1/shopping-list/:id
func (h *Handler) DeleteShoppingItem(c *gin.Context) {
	if h.shopping == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shopping list not configured"})
		return
	}

	if err := h.shopping.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "delete shopping item", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AlexaImportRequest is the body of POST /api/v1/shopping-list/alexa-import
type AlexaImportRequest struct {
	Utterance string `json:"utterance" binding:"required"`
}

// ImportAlexa handles POST /api/v1/shopping-list/alexa-import
func (h *Handler) ImportAlexa(c *gin.Context) {
	if h.shopping == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shopping list not configured"})
		return
	}

	var req AlexaImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	result, err := h.shopping.ImportAlexa(c.Request.Context(), req.Utterance)
	if err != nil {
		h.respondError(c, "alexa import", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RestockShoppingList handles POST /api/v1/shopping-list/restock: every
// low-stock inventory item not yet open on the list is added
func (h *Handler) RestockShoppingList(c *gin.Context) {
	if h.shopping == nil || h.items == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shopping list not configured"})
		return
	}

	added, err := h.shopping.Restock(c.Request.Context(), h.items.LowStock())
	if err != nil {
		h.respondError(c, "restock", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": added, "count": len(added)})
}

func (h *Handler) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidBarcode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Barcode is required"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
	case errors.Is(err, domain.ErrStoreFailure):
		log.Printf("[%s] store error: %v", requestTag(c), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Pantry backend unavailable"})
	default:
		log.Printf("[%s] %s failed: %v", requestTag(c), op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
