package oracle

import (
	"sync"
	"time"
)

// PriceFeed is the external price-source contract. Prices are 8-decimal
// fixed point (the usual feed convention); the adapter owns staleness
// enforcement and rescaling, the feed is never trusted for either.
type PriceFeed interface {
	LatestPrice() (price int64, updatedAt time.Time, err error)
}

// MemoryFeed is a settable in-process feed, used as the deterministic
// test double and for the local/dev deployment profile.
type MemoryFeed struct {
	mu        sync.RWMutex
	price     int64
	updatedAt time.Time
	err       error
}

// NewMemoryFeed creates a feed reporting the given 8-decimal price,
// stamped now.
func NewMemoryFeed(price int64) *MemoryFeed {
	return &MemoryFeed{price: price, updatedAt: time.Now()}
}

func (f *MemoryFeed) LatestPrice() (int64, time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	return f.price, f.updatedAt, nil
}

// SetPrice updates the reported price and observation time.
func (f *MemoryFeed) SetPrice(price int64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = price
	f.updatedAt = at
	f.err = nil
}

// Fail makes every subsequent LatestPrice call return err.
func (f *MemoryFeed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
