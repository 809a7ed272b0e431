package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", 200*time.Millisecond)
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	key := "akiyawatch_test_cooldown"

	// A missing key maps to ErrCacheMiss
	_ = mc.Delete(key)
	_, err := mc.Get(key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	err = mc.Set(key, []byte("600"), 2*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get(key)
	assert.NoError(t, err)
	assert.Equal(t, "600", string(value))

	assert.NoError(t, mc.Delete(key))
	assert.NoError(t, mc.Delete(key))

	_, err = mc.Get(key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
