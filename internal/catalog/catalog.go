// Package catalog talks to the external product catalog that provides
// authoritative price and availability data for an ASIN.
package catalog

import (
	"context"
	"errors"
)

// Failure kinds the fetch path distinguishes. Anything not wrapped in one of
// these sentinels (timeouts, connection resets, 5xx, rate limiting) is
// transient and worth retrying on a later cycle.
var (
	// ErrNotFound means the catalog has no product for this identifier.
	ErrNotFound = errors.New("catalog: product not found")

	// ErrMalformed means the catalog answered but the response could not be
	// interpreted. Permanent for this response; logged for investigation.
	ErrMalformed = errors.New("catalog: malformed response")
)

// IsPermanent reports whether err will not resolve by retrying the same
// identifier on a later cycle.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed)
}

// PriceData is one fresh observation of a product from the catalog.
type PriceData struct {
	Title         string
	CurrentPrice  float64
	OriginalPrice float64 // 0 when the catalog reports no "before" price
	Currency      string
	Availability  string
	ImageURL      string
	ProductURL    string
	Rating        float64
	ReviewCount   int
}

// Source is the catalog capability the monitoring core consumes.
type Source interface {
	FetchPrice(ctx context.Context, asin string) (*PriceData, error)
}
