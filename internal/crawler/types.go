package crawler

import (
	"context"
	"fmt"
)

// StatusPublished is the only status the listing page exposes
const StatusPublished = "公開中"

// Listing is one for-sale property parsed from the listing page during the
// current run. It has not been compared with stored state yet.
type Listing struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Price  int64  `json:"price"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

// Crawler interface defines the contract for listing sources
type Crawler interface {
	// FetchListings fetches the listing page once and returns the parsed
	// listings in page order
	FetchListings(ctx context.Context) ([]Listing, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string
}

// SkipReason explains why a card did not produce a Listing
type SkipReason int

const (
	// SkipNoIdentifier means the card has no registration number
	SkipNoIdentifier SkipReason = iota + 1
	// SkipRentalOnly means the card has no sale price, only rent
	SkipRentalOnly
	// SkipParseError means the card structure was not what we expect
	SkipParseError
)

func (r SkipReason) String() string {
	switch r {
	case SkipNoIdentifier:
		return "no_identifier"
	case SkipRentalOnly:
		return "rental_only"
	case SkipParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// SkipError is returned by the extractor for a card that yields no Listing.
// Only SkipParseError carries an underlying Err.
type SkipError struct {
	Reason     SkipReason
	PropertyID string
	Err        error
}

func (e *SkipError) Error() string {
	msg := "card skipped: " + e.Reason.String()
	if e.PropertyID != "" {
		msg += fmt.Sprintf(" (登録番号 %s)", e.PropertyID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SkipError) Unwrap() error {
	return e.Err
}
