package crawler

import (
	"fmt"

	"sjsage522/akiyawatch/helpers"
	"sjsage522/akiyawatch/logger"
)

// Labels used on the listing cards
const (
	LabelRegistrationNumber = "登録番号"
	LabelSalePrice          = "販売価格"
	LabelLocation           = "所在地"
	LabelDetailLink         = "詳しく見る"
)

// ExtractorConfig contains configuration for the record extractor
type ExtractorConfig struct {
	// PageURL resolves relative detail links and is the fallback URL
	PageURL         string
	IDPrefix        string
	DefaultLocation string
}

// Extractor turns one card into a Listing
type Extractor struct {
	ExtractorConfig
	log *logger.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(cfg ExtractorConfig, log *logger.Logger) *Extractor {
	return &Extractor{ExtractorConfig: cfg, log: log}
}

// Extract parses one card. A card that yields no Listing returns a
// *SkipError; a panic while walking the card is reported as SkipParseError.
func (e *Extractor) Extract(card FieldTree) (listing Listing, err error) {
	var number string
	defer func() {
		if r := recover(); r != nil {
			listing = Listing{}
			err = &SkipError{Reason: SkipParseError, PropertyID: number, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	number, found, err := card.Value(Containing(LabelRegistrationNumber))
	if err != nil {
		return Listing{}, parseSkip(number, LabelRegistrationNumber, err)
	}
	if !found || number == "" {
		return Listing{}, &SkipError{Reason: SkipNoIdentifier}
	}

	priceText, found, err := card.Value(Exactly(LabelSalePrice))
	if err != nil {
		return Listing{}, parseSkip(number, LabelSalePrice, err)
	}
	if !found {
		return Listing{}, &SkipError{Reason: SkipRentalOnly, PropertyID: number}
	}

	price, err := ParsePrice(priceText)
	if err != nil {
		return Listing{}, parseSkip(number, LabelSalePrice, err)
	}
	if price.Unrecognized {
		e.log.Warn().
			Str("registration_number", number).
			Str("price_text", priceText).
			Int64("price", price.Yen).
			Msg("Unrecognized price unit, treating the number as yen")
	}

	location, found, err := card.Value(Containing(LabelLocation))
	if err != nil {
		return Listing{}, parseSkip(number, LabelLocation, err)
	}
	if !found {
		location = e.DefaultLocation
	}

	link, found, err := card.Link(Containing(LabelDetailLink))
	if err != nil {
		return Listing{}, parseSkip(number, LabelDetailLink, err)
	}
	detailURL := e.PageURL
	if found {
		detailURL = helpers.ResolveURL(e.PageURL, link)
	}

	return Listing{
		ID:     e.IDPrefix + number,
		Title:  fmt.Sprintf("%s%s（%s）", LabelRegistrationNumber, number, location),
		Price:  price.Yen,
		Status: StatusPublished,
		URL:    detailURL,
	}, nil
}

func parseSkip(number, label string, err error) *SkipError {
	return &SkipError{
		Reason:     SkipParseError,
		PropertyID: number,
		Err:        fmt.Errorf("%s: %w", label, err),
	}
}
