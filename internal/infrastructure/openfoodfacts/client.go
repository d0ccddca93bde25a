package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"golang.org/x/time/rate"
)

const maxAttempts = 3

// Client handles communication with the Open Food Facts product API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	language    string
	userAgent   string
	rateLimiter *rate.Limiter
	debug       bool
}

// Options tunes a Client. Zero values use defaults.
type Options struct {
	Language      string
	UserAgent     string
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
}

// NewClient creates a new Open Food Facts client
func NewClient(baseURL string, opts Options) *Client {
	// Open Food Facts asks for at most 100 product reads per minute
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = 100.0 / 60.0
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "PantryLens/1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		language:    opts.Language,
		userAgent:   userAgent,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// SetDebug enables request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Name identifies the source in logs
func (c *Client) Name() string {
	return "openfoodfacts"
}

// exponentialBackoff returns the wait before retrying attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLookupFailure, err)
	}
	return resp, nil
}

// GetProduct fetches the product record for a barcode.
// Transport errors, 5xx and 429 responses are retried.
func (c *Client) GetProduct(ctx context.Context, barcode string) (*ProductResponse, error) {
	reqURL := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if c.debug {
				log.Printf("[OFF] Request error (attempt %d): %v", attempt, err)
			}
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, domain.ErrProductNotFound
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			log.Printf("[OFF] API error (attempt %d) - Status: %d", attempt, resp.StatusCode)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrLookupFailure, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", domain.ErrLookupFailure, resp.StatusCode)
		}

		var product ProductResponse
		if err := json.Unmarshal(body, &product); err != nil {
			return nil, fmt.Errorf("%w: malformed response: %v", domain.ErrLookupFailure, err)
		}
		if product.Status != 1 || product.Product == nil {
			return nil, domain.ErrProductNotFound
		}

		if c.debug {
			log.Printf("[OFF] Found product for %q", barcode)
		}
		return &product, nil
	}

	log.Printf("[OFF] All retries failed for barcode: %q", barcode)
	return nil, lastErr
}

// LookupName returns the best display name for a barcode
func (c *Client) LookupName(ctx context.Context, barcode string) (string, error) {
	product, err := c.GetProduct(ctx, barcode)
	if err != nil {
		return "", err
	}
	name := ProductName(product.Product, c.language)
	if name == "" {
		return "", domain.ErrProductNotFound
	}
	return name, nil
}
