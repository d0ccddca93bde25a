package upcitemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client queries the UPCitemdb trial lookup endpoint
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
}

type lookupResponse struct {
	Code  string `json:"code"`
	Total int    `json:"total"`
	Items []struct {
		Title  string   `json:"title"`
		Brand  string   `json:"brand"`
		Images []string `json:"images"`
	} `json:"items"`
}

// NewClient creates a UPCitemdb client
func NewClient(baseURL string) *Client {
	// The trial plan allows 6 requests per minute
	return &Client{
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Every(10*time.Second), 6),
	}
}

// Name identifies the source in logs
func (c *Client) Name() string {
	return "upcitemdb"
}

// LookupName returns the title of the first matching item
func (c *Client) LookupName(ctx context.Context, barcode string) (string, error) {
	if !c.rateLimiter.Allow() {
		// Skip instead of blocking the resolution chain on a daily quota
		return "", fmt.Errorf("%w: upcitemdb rate limit", domain.ErrLookupFailure)
	}

	reqURL := fmt.Sprintf("%s/prod/trial/lookup?upc=%s", c.baseURL, url.QueryEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLookupFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[UPC] API error - Status: %d", resp.StatusCode)
		return "", fmt.Errorf("%w: status %d", domain.ErrLookupFailure, resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", domain.ErrLookupFailure, err)
	}
	if len(out.Items) == 0 || strings.TrimSpace(out.Items[0].Title) == "" {
		return "", domain.ErrProductNotFound
	}
	return strings.TrimSpace(out.Items[0].Title), nil
}
