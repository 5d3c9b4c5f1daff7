package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/dealradar/price-tracker/internal/metrics"
)

const (
	rainforestDefaultBaseURL = "https://api.rainforestapi.com"
	rainforestDefaultTimeout = 10 * time.Second

	// priceCacheSize bounds the response cache; entries expire on TTL so the
	// size only matters for very large catalogs.
	priceCacheSize = 1024
)

// RainforestClient fetches Amazon product data from the Rainforest API.
type RainforestClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
	domain  string

	// limiter keeps us inside the plan's request rate; cache short-circuits
	// repeated reads for the same ASIN (product detail pages, manual
	// refreshes landing right after a cycle).
	limiter *rate.Limiter
	cache   *expirable.LRU[string, *PriceData]
}

// rainforestResponse mirrors the fields of the API's product payload that
// the tracker consumes.
type rainforestResponse struct {
	RequestInfo struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	} `json:"request_info"`
	Product *rainforestProduct `json:"product"`
}

type rainforestProduct struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	BuyboxWinner struct {
		Price rainforestPrice `json:"price"`
	} `json:"buybox_winner"`
	Price struct {
		BeforePrice rainforestPrice `json:"before_price"`
	} `json:"price"`
	MainImage struct {
		Link string `json:"link"`
	} `json:"main_image"`
	Rating       float64 `json:"rating"`
	RatingsTotal int     `json:"ratings_total"`
	Availability struct {
		Raw string `json:"raw"`
	} `json:"availability"`
}

type rainforestPrice struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// ClientOptions configures a RainforestClient. Zero values fall back to
// defaults.
type ClientOptions struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration
}

// NewRainforestClient creates a catalog client for the Rainforest API.
func NewRainforestClient(apiKey string, opts ClientOptions) *RainforestClient {
	if opts.BaseURL == "" {
		opts.BaseURL = rainforestDefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = rainforestDefaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}

	return &RainforestClient{
		client:  &http.Client{Timeout: opts.Timeout},
		apiKey:  apiKey,
		baseURL: opts.BaseURL,
		domain:  "amazon.com",
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		cache:   expirable.NewLRU[string, *PriceData](priceCacheSize, nil, opts.CacheTTL),
	}
}

// FetchPrice returns current price/availability data for an ASIN.
// Failure kinds: ErrNotFound (unknown ASIN), ErrMalformed (unusable
// response), anything else transient.
func (c *RainforestClient) FetchPrice(ctx context.Context, asin string) (*PriceData, error) {
	if data, ok := c.cache.Get(asin); ok {
		metrics.CatalogCacheHits.Inc()
		return data, nil
	}
	metrics.CatalogCacheMisses.Inc()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("type", "product")
	params.Set("amazon_domain", c.domain)
	params.Set("asin", asin)

	reqURL := fmt.Sprintf("%s/request?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch product %s: %w", asin, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.CatalogRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("asin %s: %w", asin, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.CatalogRequestsTotal.WithLabelValues("rate_limited").Inc()
		return nil, fmt.Errorf("catalog rate limited (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		metrics.CatalogRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("catalog API error: status %d", resp.StatusCode)
	}

	var payload rainforestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("asin %s: decode: %v: %w", asin, err, ErrMalformed)
	}

	if !payload.RequestInfo.Success && payload.RequestInfo.Message != "" {
		metrics.CatalogRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("catalog API error: %s", payload.RequestInfo.Message)
	}
	if payload.Product == nil {
		metrics.CatalogRequestsTotal.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("asin %s: missing product data: %w", asin, ErrMalformed)
	}

	data := &PriceData{
		Title:         payload.Product.Title,
		CurrentPrice:  payload.Product.BuyboxWinner.Price.Value,
		OriginalPrice: payload.Product.Price.BeforePrice.Value,
		Currency:      payload.Product.BuyboxWinner.Price.Currency,
		Availability:  payload.Product.Availability.Raw,
		ImageURL:      payload.Product.MainImage.Link,
		ProductURL:    payload.Product.Link,
		Rating:        payload.Product.Rating,
		ReviewCount:   payload.Product.RatingsTotal,
	}
	if data.Currency == "" {
		data.Currency = "USD"
	}

	metrics.CatalogRequestsTotal.WithLabelValues("ok").Inc()
	c.cache.Add(asin, data)
	return data, nil
}

// InvalidateCache drops the cached observation for an ASIN so the next fetch
// hits the API. Called before operator-requested refreshes.
func (c *RainforestClient) InvalidateCache(asin string) {
	c.cache.Remove(asin)
}
