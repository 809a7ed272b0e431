package internal

import (
	"sjsage522/akiyawatch/services/cache"
	"sjsage522/akiyawatch/services/notifier"
	"sjsage522/akiyawatch/services/publisher"
	"sjsage522/akiyawatch/services/store"
)

// Dependencies holds the process-scoped services of one run.
// Cache and Publisher are nil when not configured.
type Dependencies struct {
	Store     store.Store
	Notifier  notifier.Notifier
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup closes every service that holds a connection
func (d *Dependencies) Cleanup() {
	if d.Publisher != nil {
		d.Publisher.Close()
	}
	if d.Store != nil {
		d.Store.Close()
	}
}
