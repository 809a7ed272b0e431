package worker

import (
	"context"
	"errors"
	"time"

	"sjsage522/akiyawatch/internal/change"
	"sjsage522/akiyawatch/internal/crawler"
	"sjsage522/akiyawatch/logger"
	apperrors "sjsage522/akiyawatch/pkg/errors"
	"sjsage522/akiyawatch/services/notifier"
	"sjsage522/akiyawatch/services/publisher"
	"sjsage522/akiyawatch/services/store"
)

// Summary counts the outcomes of one run
type Summary struct {
	Collected     int
	ZeroPrice     int
	New           int
	Decreased     int
	Changed       int
	Unchanged     int
	Failed        int
	Notified      int
	NotifyFailed  int
	HistoryFailed int
}

// Worker syncs the listing page into the store and notifies about changes
type Worker struct {
	crawler      crawler.Crawler
	store        store.Store
	notifier     notifier.Notifier
	publisher    publisher.Publisher
	log          *logger.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewWorker creates a new worker. pub may be nil to disable change events.
func NewWorker(
	c crawler.Crawler,
	st store.Store,
	n notifier.Notifier,
	pub publisher.Publisher,
	log *logger.Logger,
	storeTimeout time.Duration,
) *Worker {
	return &Worker{
		crawler:      c,
		store:        st,
		notifier:     n,
		publisher:    pub,
		log:          log,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// RunOnce fetches the listing page once and processes every listing in
// page order. Only a fetch failure is returned; per-listing failures are
// logged and counted in the summary.
func (w *Worker) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary
	start := w.now()

	listings, err := w.crawler.FetchListings(ctx)
	if err != nil {
		w.log.Error().Err(err).Str("crawler", w.crawler.GetName()).Msg("Failed to fetch listings")
		return summary, err
	}
	summary.Collected = len(listings)

	for _, l := range listings {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if l.Price <= 0 {
			summary.ZeroPrice++
			w.log.Debug().Str("property_id", l.ID).Msg("Skipped listing without a price")
			continue
		}
		w.syncListing(ctx, l, &summary)
	}

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(ctx); err != nil {
			w.log.Warn().Err(err).Msg("Failed to trim change stream")
		}
	}

	w.log.Info().
		Int("collected", summary.Collected).
		Int("new", summary.New).
		Int("decreased", summary.Decreased).
		Int("changed", summary.Changed).
		Int("unchanged", summary.Unchanged).
		Int("zero_price", summary.ZeroPrice).
		Int("failed", summary.Failed).
		Int("notified", summary.Notified).
		Int("notify_failed", summary.NotifyFailed).
		Int("history_failed", summary.HistoryFailed).
		Dur("elapsed", w.now().Sub(start)).
		Msg("Sync finished")

	return summary, nil
}

// syncListing classifies one listing and applies the persistence and
// notification effects of its transition
func (w *Worker) syncListing(ctx context.Context, l crawler.Listing, summary *Summary) {
	log := w.log.WithField("property_id", l.ID)

	prior, seen, err := w.lastPrice(ctx, l.ID)
	if err != nil {
		summary.Failed++
		log.Error().Err(err).Bool("retryable", retryable(err)).Msg("Failed to look up stored price")
		return
	}

	t := change.Classify(l, prior, seen)

	if err := w.persist(ctx, l); err != nil {
		summary.Failed++
		log.Error().Err(err).Str("kind", t.Kind.String()).Bool("retryable", retryable(err)).Msg("Failed to store listing")
		return
	}
	countTransition(summary, t.Kind)

	if t.PriceMoved() {
		if err := w.appendHistory(ctx, l); err != nil {
			summary.HistoryFailed++
			log.Error().Err(err).Msg("Failed to append price history")
		}
	}

	if t.Kind == change.Unchanged {
		log.Debug().Int64("price", l.Price).Msg("Listing unchanged")
		return
	}

	log.Info().
		Str("kind", t.Kind.String()).
		Int64("old_price", t.OldPrice).
		Int64("new_price", t.NewPrice).
		Int64("diff", t.Diff).
		Msg("Listing changed")

	w.notify(ctx, l, t, summary)
	w.publish(ctx, l, t)
}

func (w *Worker) lastPrice(ctx context.Context, id string) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, w.storeTimeout)
	defer cancel()
	return w.store.LastPrice(ctx, id)
}

// persist upserts the listing for every transition, which also refreshes
// the last-seen marker of unchanged listings
func (w *Worker) persist(ctx context.Context, l crawler.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, w.storeTimeout)
	defer cancel()
	return w.store.UpsertProperty(ctx, store.Property{
		ID:     l.ID,
		Title:  l.Title,
		Price:  l.Price,
		Status: l.Status,
		URL:    l.URL,
	})
}

func (w *Worker) appendHistory(ctx context.Context, l crawler.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, w.storeTimeout)
	defer cancel()
	return w.store.AppendPriceHistory(ctx, store.PriceHistoryEntry{
		PropertyID: l.ID,
		Price:      l.Price,
	})
}

func (w *Worker) notify(ctx context.Context, l crawler.Listing, t change.Transition, summary *Summary) {
	message, ok := notifier.FormatMessage(l, t)
	if !ok {
		return
	}
	if err := w.notifier.Notify(ctx, message); err != nil {
		summary.NotifyFailed++
		w.log.Error().Err(err).Str("property_id", l.ID).Msg("Failed to send notification")
		return
	}
	summary.Notified++
}

func (w *Worker) publish(ctx context.Context, l crawler.Listing, t change.Transition) {
	if w.publisher == nil {
		return
	}
	data, err := publisher.NewChangeEvent(l, t, w.now()).Marshal()
	if err != nil {
		w.log.Error().Err(err).Str("property_id", l.ID).Msg("Failed to encode change event")
		return
	}
	if err := w.publisher.Publish(ctx, publisher.EventKey, data); err != nil {
		w.log.Warn().Err(err).Str("property_id", l.ID).Msg("Failed to publish change event")
	}
}

func countTransition(summary *Summary, kind change.Kind) {
	switch kind {
	case change.New:
		summary.New++
	case change.PriceDecreased:
		summary.Decreased++
	case change.PriceChanged:
		summary.Changed++
	case change.Unchanged:
		summary.Unchanged++
	}
}

// retryable reports whether the next run is expected to get past err
func retryable(err error) bool {
	var appErr *apperrors.Error
	return errors.As(err, &appErr) && appErr.IsRetryable()
}
