package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
)

// InMemoryAdvanceCache keeps advances in process memory. Entries expire lazily on read.
// Invalidations are not shared between instances, so it suits single-instance runs and tests.
type InMemoryAdvanceCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time

	hits   int64
	misses int64
}

type cacheEntry struct {
	record    advanceRecord
	expiresAt time.Time
}

// NewInMemoryAdvanceCache creates an empty cache; a non-positive ttl uses the default
func NewInMemoryAdvanceCache(ttl time.Duration) *InMemoryAdvanceCache {
	if ttl <= 0 {
		ttl = defaultAdvanceTTL
	}
	return &InMemoryAdvanceCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached advance, or nil on a miss or expiry
func (c *InMemoryAdvanceCache) Get(_ context.Context, customerID uuid.UUID, financialYear string) (*ledger.CustomerAdvance, error) {
	key := advanceKey(defaultAdvanceKeyPrefix, customerID, financialYear)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, nil
	}
	atomic.AddInt64(&c.hits, 1)
	return entry.record.toDomain(), nil
}

// Set stores a copy of the advance
func (c *InMemoryAdvanceCache) Set(_ context.Context, advance *ledger.CustomerAdvance) error {
	key := advanceKey(defaultAdvanceKeyPrefix, advance.CustomerID, advance.FinancialYear)
	c.mu.Lock()
	c.entries[key] = cacheEntry{record: toRecord(advance), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Delete drops the cached advance
func (c *InMemoryAdvanceCache) Delete(_ context.Context, customerID uuid.UUID, financialYear string) error {
	c.mu.Lock()
	delete(c.entries, advanceKey(defaultAdvanceKeyPrefix, customerID, financialYear))
	c.mu.Unlock()
	return nil
}

// Stats returns hit and miss counts
func (c *InMemoryAdvanceCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

var _ appledger.AdvanceCache = (*InMemoryAdvanceCache)(nil)
