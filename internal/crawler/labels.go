package crawler

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrValueMissing is returned when a label exists but has no paired value
var ErrValueMissing = errors.New("label has no paired value")

// LabelMatcher decides whether a label text is the one being looked for
type LabelMatcher func(label string) bool

// Containing matches labels that contain s
func Containing(s string) LabelMatcher {
	return func(label string) bool {
		return strings.Contains(label, s)
	}
}

// Exactly matches labels equal to s once surrounding whitespace is removed.
// Markup indentation inside <dt> is not treated as part of the label.
func Exactly(s string) LabelMatcher {
	return func(label string) bool {
		return strings.TrimSpace(label) == s
	}
}

// FieldTree is a tree of labeled fields. Lookups resolve the first label
// accepted by the matcher.
type FieldTree interface {
	// Value returns the text paired with the label. found is false when no
	// label matches; ErrValueMissing means a label matched without a value.
	Value(match LabelMatcher) (value string, found bool, err error)

	// Link returns the target of the first link whose text matches.
	Link(match LabelMatcher) (href string, found bool, err error)
}

// cardTree resolves labels over a <dl><dt>label</dt><dd>value</dd></dl> card
type cardTree struct {
	sel *goquery.Selection
}

// NewCardTree wraps one listing card
func NewCardTree(sel *goquery.Selection) FieldTree {
	return &cardTree{sel: sel}
}

func (c *cardTree) Value(match LabelMatcher) (string, bool, error) {
	dt := c.sel.Find("dt").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return match(s.Text())
	}).First()
	if dt.Length() == 0 {
		return "", false, nil
	}

	dd := dt.NextAllFiltered("dd").First()
	if dd.Length() == 0 {
		return "", true, ErrValueMissing
	}
	return strings.TrimSpace(dd.Text()), true, nil
}

func (c *cardTree) Link(match LabelMatcher) (string, bool, error) {
	a := c.sel.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return match(s.Text())
	}).First()
	if a.Length() == 0 {
		return "", false, nil
	}

	href, exists := a.Attr("href")
	if !exists {
		return "", true, ErrValueMissing
	}
	return strings.TrimSpace(href), true, nil
}
