package reportcache

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fleetshop/internal/events"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache keeps computed report payloads per tenant until they expire
// or a change in that tenant invalidates them.
type Cache struct {
	lru *expirable.LRU[string, interface{}]
}

// New creates a cache holding at most size entries for ttl each
func New(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, interface{}](size, nil, ttl)}
}

func tenantPrefix(tenantID uint) string {
	return strconv.FormatUint(uint64(tenantID), 10) + ":"
}

// Key builds a cache key for a tenant's report with its parameters
func Key(tenantID uint, report string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(tenantPrefix(tenantID))
	b.WriteString(report)
	for _, p := range params {
		b.WriteString("|")
		b.WriteString(fmt.Sprint(p))
	}
	return b.String()
}

// Get returns the cached value for key
func (c *Cache) Get(key string) (interface{}, bool) {
	return c.lru.Get(key)
}

// Put stores a value under key
func (c *Cache) Put(key string, value interface{}) {
	c.lru.Add(key, value)
}

// InvalidateTenant drops every entry belonging to tenantID
func (c *Cache) InvalidateTenant(tenantID uint) int {
	prefix := tenantPrefix(tenantID)
	removed := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) && c.lru.Remove(k) {
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Subscribe invalidates a tenant's reports whenever one of its entities changes
func (c *Cache) Subscribe(bus *events.Bus) {
	bus.Subscribe(func(ch events.Change) {
		c.InvalidateTenant(ch.TenantID)
	})
}

// Load returns the cached value for key or computes, stores and returns it.
// Errors are not cached.
func Load[T any](c *Cache, key string, compute func() (T, error)) (T, error) {
	if c != nil {
		if v, ok := c.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	if c != nil {
		c.Put(key, v)
	}
	return v, nil
}
