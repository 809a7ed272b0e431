package store

import (
	"context"
	"time"
)

// Property is the stored state of one listing, keyed by ID
type Property struct {
	ID     string
	Title  string
	Price  int64
	Status string
	URL    string
}

// PriceHistoryEntry records one observed price change.
// A zero ChangedAt is filled in by the store.
type PriceHistoryEntry struct {
	PropertyID string
	Price      int64
	ChangedAt  time.Time
}

// Store is the persistence contract of a sync run
type Store interface {
	// LastPrice returns the stored price for id; found is false when the id
	// has never been stored.
	LastPrice(ctx context.Context, id string) (price int64, found bool, err error)

	// UpsertProperty inserts or overwrites the row keyed by p.ID
	UpsertProperty(ctx context.Context, p Property) error

	// AppendPriceHistory inserts one history entry
	AppendPriceHistory(ctx context.Context, entry PriceHistoryEntry) error

	// Close releases the underlying connections
	Close()
}
