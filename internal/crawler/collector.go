package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"sjsage522/akiyawatch/helpers"
	"sjsage522/akiyawatch/logger"
	apperrors "sjsage522/akiyawatch/pkg/errors"
	"sjsage522/akiyawatch/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// CollectorConfig contains configuration for the listing collector
type CollectorConfig struct {
	URL             string
	CardSelector    string
	IDPrefix        string
	DefaultLocation string
	// CacheKey marks the site as rate limited for BlockTime
	CacheKey  string
	BlockTime time.Duration
}

// Collector fetches the listing page and extracts every card on it
type Collector struct {
	CollectorConfig
	client    *http.Client
	cacheSvc  cache.CacheService
	extractor *Extractor
	log       *logger.Logger
	fetchFunc func(ctx context.Context) (io.Reader, error)
}

// NewCollector creates a new collector. cacheSvc may be nil.
func NewCollector(cfg CollectorConfig, client *http.Client, cacheSvc cache.CacheService, log *logger.Logger) *Collector {
	c := &Collector{
		CollectorConfig: cfg,
		client:          client,
		cacheSvc:        cacheSvc,
		extractor: NewExtractor(ExtractorConfig{
			PageURL:         cfg.URL,
			IDPrefix:        cfg.IDPrefix,
			DefaultLocation: cfg.DefaultLocation,
		}, log),
		log: log,
	}
	c.fetchFunc = c.fetchWithCache
	return c
}

// GetName returns the crawler name
func (c *Collector) GetName() string {
	return "ListingCollector"
}

// FetchListings fetches the page once and extracts all cards in page order.
// Only a fetch failure is returned as an error.
func (c *Collector) FetchListings(ctx context.Context) ([]Listing, error) {
	utf8Body, err := c.fetchFunc(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, apperrors.NewParsing(c.URL, "failed to parse listing page", err)
	}

	cards := doc.Find(c.CardSelector)
	listings, skipped := c.processCards(cards)

	c.log.Info().
		Int("cards", cards.Length()).
		Int("listings", len(listings)).
		Int(SkipRentalOnly.String(), skipped[SkipRentalOnly]).
		Int(SkipNoIdentifier.String(), skipped[SkipNoIdentifier]).
		Int(SkipParseError.String(), skipped[SkipParseError]).
		Msg("Listing page parsed")

	return listings, nil
}

// processCards runs every card through the extractor, one at a time
func (c *Collector) processCards(cards *goquery.Selection) ([]Listing, map[SkipReason]int) {
	listings := make([]Listing, 0, cards.Length())
	skipped := make(map[SkipReason]int)

	cards.Each(func(i int, s *goquery.Selection) {
		listing, err := c.extractor.Extract(NewCardTree(s))
		if err == nil {
			listings = append(listings, listing)
			return
		}

		var skip *SkipError
		if !errors.As(err, &skip) {
			skip = &SkipError{Reason: SkipParseError, Err: err}
		}
		skipped[skip.Reason]++

		switch skip.Reason {
		case SkipRentalOnly:
			c.log.Info().
				Int("card", i).
				Str("registration_number", skip.PropertyID).
				Msg("Skipped rental-only listing")
		case SkipNoIdentifier:
			c.log.Info().
				Int("card", i).
				Msg("Skipped card without registration number")
		default:
			c.log.Error().
				Int("card", i).
				Str("registration_number", skip.PropertyID).
				Err(apperrors.NewParsing(c.URL, "failed to parse card "+strconv.Itoa(i), skip.Err)).
				Msg("Skipped malformed card")
		}
	})

	return listings, skipped
}

// fetchWithCache fetches the page unless the site recently rate limited us
func (c *Collector) fetchWithCache(ctx context.Context) (io.Reader, error) {
	if c.cacheSvc != nil && c.CacheKey != "" {
		if _, err := c.cacheSvc.Get(c.CacheKey); err == nil {
			return nil, apperrors.NewRateLimit(c.URL, c.BlockTime)
		}
	}

	utf8Body, err := helpers.FetchPage(ctx, c.client, c.URL)
	if err != nil {
		if errors.Is(err, helpers.ErrRateLimited) {
			c.blockFetches()
			return nil, apperrors.New(apperrors.ErrorTypeRateLimit, c.URL, "listing page rate limited", err)
		}
		return nil, apperrors.NewNetwork(c.URL, "failed to fetch listing page", err)
	}

	return utf8Body, nil
}

func (c *Collector) blockFetches() {
	if c.cacheSvc == nil || c.CacheKey == "" || c.BlockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", int(c.BlockTime/time.Second)))
	if err := c.cacheSvc.Set(c.CacheKey, value, c.BlockTime); err != nil {
		c.log.Warn().Err(err).Str("cache_key", c.CacheKey).Msg("Failed to store fetch cool-down")
	}
}
