package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sjsage522/akiyawatch/internal/crawler"
	"sjsage522/akiyawatch/logger"
	apperrors "sjsage522/akiyawatch/pkg/errors"
	"sjsage522/akiyawatch/services/notifier"
	"sjsage522/akiyawatch/services/publisher"
	"sjsage522/akiyawatch/services/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCrawler implements the crawler.Crawler interface for testing
type MockCrawler struct {
	listings []crawler.Listing
	fetchErr error
	calls    int
}

// Ensure MockCrawler implements crawler.Crawler
var _ crawler.Crawler = (*MockCrawler)(nil)

func (m *MockCrawler) FetchListings(ctx context.Context) ([]crawler.Listing, error) {
	m.calls++
	return m.listings, m.fetchErr
}

func (m *MockCrawler) GetName() string {
	return "MockCrawler"
}

// MockStore implements store.Store in memory
type MockStore struct {
	mu         sync.Mutex
	prices     map[string]int64
	upserts    []store.Property
	history    []store.PriceHistoryEntry
	failOn     map[string]error
	historyErr error
}

// Ensure MockStore implements store.Store
var _ store.Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		prices: make(map[string]int64),
		failOn: make(map[string]error),
	}
}

func (m *MockStore) LastPrice(ctx context.Context, id string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return 0, false, errors.New("store call without deadline")
	}
	if err := m.failOn[id]; err != nil {
		return 0, false, err
	}
	price, ok := m.prices[id]
	return price, ok, nil
}

func (m *MockStore) UpsertProperty(ctx context.Context, p store.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, p)
	m.prices[p.ID] = p.Price
	return nil
}

func (m *MockStore) AppendPriceHistory(ctx context.Context, entry store.PriceHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return m.historyErr
	}
	m.history = append(m.history, entry)
	return nil
}

func (m *MockStore) Close() {}

// MockNotifier implements notifier.Notifier for testing
type MockNotifier struct {
	messages []string
	err      error
}

// Ensure MockNotifier implements notifier.Notifier
var _ notifier.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, message string) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, message)
	return nil
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	messages [][]byte
	trimmed  int
}

// Ensure MockPublisher implements publisher.Publisher
var _ publisher.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, key string, message []byte) error {
	m.messages = append(m.messages, message)
	return nil
}

func (m *MockPublisher) TrimStreams(ctx context.Context) error {
	m.trimmed++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

func listing(number string, price int64) crawler.Listing {
	return crawler.Listing{
		ID:     "niimi_" + number,
		Title:  "登録番号" + number + "（上市）",
		Price:  price,
		Status: crawler.StatusPublished,
		URL:    "https://example.com/detail/" + number,
	}
}

func newTestWorker(c crawler.Crawler, st store.Store, n notifier.Notifier, pub publisher.Publisher) *Worker {
	w := NewWorker(c, st, n, pub, logger.Nop(), time.Second)
	w.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }
	return w
}

// TestRunOnceNewListing covers a first sighting
func TestRunOnceNewListing(t *testing.T) {
	mockStore := NewMockStore()
	mockNotifier := &MockNotifier{}
	w := newTestWorker(&MockCrawler{listings: []crawler.Listing{listing("NI-001", 3000000)}}, mockStore, mockNotifier, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.New)
	require.Len(t, mockStore.upserts, 1)
	assert.Equal(t, int64(3000000), mockStore.upserts[0].Price)
	assert.Equal(t, "niimi_NI-001", mockStore.upserts[0].ID)
	assert.Empty(t, mockStore.history)

	require.Len(t, mockNotifier.messages, 1)
	assert.Contains(t, mockNotifier.messages[0], "新着物件")
	assert.Contains(t, mockNotifier.messages[0], "登録番号NI-001（上市）")
	assert.Contains(t, mockNotifier.messages[0], "3,000,000円")
	assert.Contains(t, mockNotifier.messages[0], "https://example.com/detail/NI-001")
}

// TestRunOnceIdempotent runs twice over the same page
func TestRunOnceIdempotent(t *testing.T) {
	mockStore := NewMockStore()
	mockNotifier := &MockNotifier{}
	mockCrawler := &MockCrawler{listings: []crawler.Listing{listing("NI-001", 3000000), listing("NI-002", 5000000)}}
	w := newTestWorker(mockCrawler, mockStore, mockNotifier, nil)

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Unchanged)
	assert.Len(t, mockNotifier.messages, 2, "only the first run notifies")
	assert.Empty(t, mockStore.history)
	assert.Len(t, mockStore.upserts, 4, "unchanged listings are still touched")
}

// TestRunOncePriceChanges covers both price change kinds
func TestRunOncePriceChanges(t *testing.T) {
	mockStore := NewMockStore()
	mockStore.prices["niimi_A"] = 3000000
	mockStore.prices["niimi_B"] = 3000000
	mockStore.prices["niimi_C"] = 3000000
	mockNotifier := &MockNotifier{}
	mockPublisher := &MockPublisher{}

	mockCrawler := &MockCrawler{listings: []crawler.Listing{
		listing("A", 2800000),
		listing("B", 2950000),
		listing("C", 3500000),
	}}
	w := newTestWorker(mockCrawler, mockStore, mockNotifier, mockPublisher)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Decreased)
	assert.Equal(t, 2, summary.Changed)
	assert.Equal(t, []store.PriceHistoryEntry{
		{PropertyID: "niimi_A", Price: 2800000},
		{PropertyID: "niimi_B", Price: 2950000},
		{PropertyID: "niimi_C", Price: 3500000},
	}, mockStore.history)

	require.Len(t, mockNotifier.messages, 3)
	assert.Equal(t, "🔥 【大幅値下げ】\n登録番号A（上市）\n3,000,000円 → 2,800,000円 (▲200,000円)\nhttps://example.com/detail/A", mockNotifier.messages[0])
	assert.Equal(t, "✨ 【価格変更】\n登録番号B（上市）\n3,000,000円 → 2,950,000円", mockNotifier.messages[1])
	assert.Equal(t, "✨ 【価格変更】\n登録番号C（上市）\n3,000,000円 → 3,500,000円", mockNotifier.messages[2])

	require.Len(t, mockPublisher.messages, 3)
	assert.Contains(t, string(mockPublisher.messages[0]), `"kind":"price_decreased"`)
	assert.Equal(t, 1, mockPublisher.trimmed)
}

// TestRunOnceSkipsZeroPrice keeps zero priced listings out of the store
func TestRunOnceSkipsZeroPrice(t *testing.T) {
	mockStore := NewMockStore()
	mockNotifier := &MockNotifier{}
	w := newTestWorker(&MockCrawler{listings: []crawler.Listing{listing("Z", 0)}}, mockStore, mockNotifier, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ZeroPrice)
	assert.Empty(t, mockStore.upserts)
	assert.Empty(t, mockNotifier.messages)
}

// TestRunOnceIsolatesStoreFailures keeps going after one listing fails
func TestRunOnceIsolatesStoreFailures(t *testing.T) {
	mockStore := NewMockStore()
	mockStore.failOn["niimi_BAD"] = apperrors.NewPersistence("niimi_BAD", "failed to look up property", errors.New("timeout"))
	mockNotifier := &MockNotifier{}

	mockCrawler := &MockCrawler{listings: []crawler.Listing{
		listing("BAD", 1000000),
		listing("OK", 2000000),
	}}
	w := newTestWorker(mockCrawler, mockStore, mockNotifier, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.New)
	require.Len(t, mockStore.upserts, 1)
	assert.Equal(t, "niimi_OK", mockStore.upserts[0].ID)
	assert.Len(t, mockNotifier.messages, 1)
}

// TestRunOnceHistoryFailureStillNotifies reports a change even if the history insert fails
func TestRunOnceHistoryFailureStillNotifies(t *testing.T) {
	mockStore := NewMockStore()
	mockStore.prices["niimi_A"] = 3000000
	mockStore.historyErr = errors.New("relation does not exist")
	mockNotifier := &MockNotifier{}

	w := newTestWorker(&MockCrawler{listings: []crawler.Listing{listing("A", 2000000)}}, mockStore, mockNotifier, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.HistoryFailed)
	assert.Equal(t, 1, summary.Decreased)
	assert.Len(t, mockNotifier.messages, 1)
}

// TestRunOnceNotificationFailure does not undo persistence
func TestRunOnceNotificationFailure(t *testing.T) {
	mockStore := NewMockStore()
	mockNotifier := &MockNotifier{err: apperrors.NewNotification("line", "push rejected with status 500", nil)}

	w := newTestWorker(&MockCrawler{listings: []crawler.Listing{listing("A", 1000000), listing("B", 2000000)}}, mockStore, mockNotifier, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.NotifyFailed)
	assert.Equal(t, 0, summary.Notified)
	assert.Len(t, mockStore.upserts, 2)
}

// TestRunOnceFetchError surfaces the fetch failure
func TestRunOnceFetchError(t *testing.T) {
	mockStore := NewMockStore()
	fetchErr := apperrors.NewNetwork("https://example.com", "failed to fetch listing page", errors.New("no such host"))

	w := newTestWorker(&MockCrawler{fetchErr: fetchErr}, mockStore, &MockNotifier{}, nil)

	_, err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, fetchErr)
	assert.Empty(t, mockStore.upserts)
}

// TestRunOnceCanceled stops between listings
func TestRunOnceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockStore := NewMockStore()
	w := newTestWorker(&MockCrawler{listings: []crawler.Listing{listing("A", 1)}}, mockStore, &MockNotifier{}, nil)

	_, err := w.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mockStore.upserts)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(apperrors.NewPersistence("niimi_A", "failed to upsert property", errors.New("conn reset"))))
	assert.False(t, retryable(apperrors.NewParsing("niimi_A", "bad row", nil)))
	assert.False(t, retryable(errors.New("plain")))
}
