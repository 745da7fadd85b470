package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached returns a client for the card read cache.
func NewMemcached(server string) *memcache.Client {
	client := memcache.New(server)
	client.Timeout = 200 * time.Millisecond
	client.MaxIdleConns = 8
	return client
}
