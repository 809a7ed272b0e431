package publisher

import (
	"encoding/json"
	"time"

	"sjsage522/akiyawatch/internal/change"
	"sjsage522/akiyawatch/internal/crawler"
)

// EventKey is the stream field holding a change event
const EventKey = "property_change"

// ChangeEvent describes a new listing or a price change for downstream consumers
type ChangeEvent struct {
	PropertyID string    `json:"property_id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	OldPrice   int64     `json:"old_price,omitempty"`
	NewPrice   int64     `json:"new_price"`
	Diff       int64     `json:"diff,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewChangeEvent builds the event for a classified listing
func NewChangeEvent(l crawler.Listing, t change.Transition, detectedAt time.Time) ChangeEvent {
	return ChangeEvent{
		PropertyID: l.ID,
		Kind:       t.Kind.String(),
		Title:      l.Title,
		URL:        l.URL,
		OldPrice:   t.OldPrice,
		NewPrice:   t.NewPrice,
		Diff:       t.Diff,
		DetectedAt: detectedAt.UTC(),
	}
}

// Marshal encodes the event as JSON
func (e ChangeEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
