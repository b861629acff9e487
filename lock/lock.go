// Package lock provides per-key mutual exclusion for the fulfillment engine.
// Every check-then-mutate sequence on a stock row runs inside WithLock so that
// concurrent orders against the same (warehouse, product) pair serialize and
// stock can never be over-sold.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when a lock could not be acquired within the
// coordinator's wait bound. The caller has mutated nothing and may retry.
var ErrTimeout = errors.New("lock acquisition timed out")

const defaultAcquireTimeout = 5 * time.Second

// StockKey returns the lock key for one (warehouse, product) stock row.
// Keys are fixed-width hex so lexicographic order equals numeric order.
func StockKey(warehouseID, productID uint64) string {
	return fmt.Sprintf("stock/%016x/%016x", warehouseID, productID)
}

// OrderKey returns the lock key serializing fulfillment attempts on one order.
func OrderKey(orderID uint64) string {
	return fmt.Sprintf("order/%016x", orderID)
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Coordinator hands out exclusive access to sets of keys. Keys within one
// WithLock call are always acquired in sorted order, which rules out
// circular waits between callers locking overlapping sets.
type Coordinator struct {
	mu      sync.Mutex
	entries map[string]*entry

	acquireTimeout time.Duration
	logger         *zap.Logger
}

func NewCoordinator(acquireTimeout time.Duration, logger *zap.Logger) *Coordinator {
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}
	return &Coordinator{
		entries:        make(map[string]*entry),
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
}

// WithLock acquires exclusive access to every key in keys, invokes fn, and
// releases the keys when fn returns. Duplicate keys are collapsed. If any
// acquisition times out, everything already held is released and ErrTimeout
// is returned without fn having run.
func (c *Coordinator) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	ordered := dedupeSorted(keys)

	acquireCtx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
	defer cancel()

	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		if err := c.acquire(acquireCtx, key); err != nil {
			c.releaseAll(held)
			c.logger.Warn("lock acquisition failed",
				zap.String("key", key),
				zap.Int("held", len(held)),
				zap.Error(err))
			return fmt.Errorf("%w: key %s", ErrTimeout, key)
		}
		held = append(held, key)
	}
	defer c.releaseAll(held)

	return fn(ctx)
}

func (c *Coordinator) acquire(ctx context.Context, key string) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		c.entries[key] = e
	}
	e.refs++
	c.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		c.unref(key, e)
		return err
	}
	return nil
}

func (c *Coordinator) releaseAll(keys []string) {
	// Release in reverse acquisition order.
	for i := len(keys) - 1; i >= 0; i-- {
		c.mu.Lock()
		e := c.entries[keys[i]]
		c.mu.Unlock()
		e.sem.Release(1)
		c.unref(keys[i], e)
	}
}

// unref drops one reference and evicts the entry once nobody holds or waits
// on it, so the key table does not grow with the key universe.
func (c *Coordinator) unref(key string, e *entry) {
	c.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

func dedupeSorted(keys []string) []string {
	ordered := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)
	return ordered
}
