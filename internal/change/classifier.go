// Package change decides how a freshly parsed listing relates to the price
// stored for it on an earlier run.
package change

import "sjsage522/akiyawatch/internal/crawler"

// MajorMarkdownThreshold is the smallest drop, in yen, reported as a major markdown
const MajorMarkdownThreshold int64 = 100_000

// Kind is the outcome of comparing a listing with its stored price
type Kind int

const (
	// New means the listing has never been stored
	New Kind = iota + 1
	// PriceDecreased means the price dropped by at least MajorMarkdownThreshold
	PriceDecreased
	// PriceChanged covers smaller drops and any increase
	PriceChanged
	// Unchanged means the stored price equals the listing price
	Unchanged
)

func (k Kind) String() string {
	switch k {
	case New:
		return "new"
	case PriceDecreased:
		return "price_decreased"
	case PriceChanged:
		return "price_changed"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Transition is the classification of one listing.
// Diff is OldPrice - NewPrice, so it is negative for increases.
type Transition struct {
	Kind     Kind
	OldPrice int64
	NewPrice int64
	Diff     int64
}

// PriceMoved reports whether the transition records a price history entry
func (t Transition) PriceMoved() bool {
	return t.Kind == PriceDecreased || t.Kind == PriceChanged
}

// Classify compares the listing with the prior stored price. seen is false
// when nothing was stored for the listing id.
func Classify(l crawler.Listing, prior int64, seen bool) Transition {
	if !seen {
		return Transition{Kind: New, NewPrice: l.Price}
	}

	t := Transition{
		OldPrice: prior,
		NewPrice: l.Price,
		Diff:     prior - l.Price,
	}
	switch {
	case t.Diff == 0:
		t.Kind = Unchanged
	case t.Diff >= MajorMarkdownThreshold:
		t.Kind = PriceDecreased
	default:
		t.Kind = PriceChanged
	}
	return t
}
