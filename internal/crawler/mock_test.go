package crawler

import (
	"time"

	"sjsage522/akiyawatch/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

// Ensure MockCacheService implements cache.CacheService
var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

// panickyTree blows up on every lookup
type panickyTree struct{}

func (panickyTree) Value(LabelMatcher) (string, bool, error) {
	var fields map[string]string
	fields["登録番号"] = "boom"
	return "", false, nil
}

func (panickyTree) Link(LabelMatcher) (string, bool, error) {
	return "", false, nil
}
