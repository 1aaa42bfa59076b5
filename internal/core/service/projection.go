package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/port"
)

// StockProjection derives sellable stock: the last known remote quantity
// minus everything sitting in the local queue. It never writes stock.
type StockProjection struct {
	remote port.RemoteStore
	queue  port.LocalQueue
	ttl    time.Duration
	log    *logrus.Logger

	mu    sync.Mutex
	cache map[string]snapshotEntry
}

type snapshotEntry struct {
	quantity  int
	fetchedAt time.Time
}

func NewStockProjection(remote port.RemoteStore, queue port.LocalQueue, ttl time.Duration, log *logrus.Logger) *StockProjection {
	return &StockProjection{
		remote: remote,
		queue:  queue,
		ttl:    ttl,
		log:    log,
		cache:  make(map[string]snapshotEntry),
	}
}

// Projected returns remote stock minus all not-yet-confirmed local deltas
// for the product at the branch.
func (p *StockProjection) Projected(ctx context.Context, productID, branchID string) (int, error) {
	snap, err := p.snapshot(ctx, productID, branchID)
	if err != nil {
		return 0, err
	}

	records, err := p.queue.PeekAll(ctx)
	if err != nil {
		return 0, err
	}

	pending := 0
	for _, rec := range records {
		if rec.Sale.BranchID != branchID {
			continue
		}
		pending += rec.Sale.Quantity(productID)
	}

	return snap - pending, nil
}

// snapshot returns the cached remote quantity, refreshing it when older than
// the TTL. While the remote is unreachable a stale snapshot keeps serving so
// offline capture can still sanity-check quantities.
func (p *StockProjection) snapshot(ctx context.Context, productID, branchID string) (int, error) {
	key := productID + "|" + branchID

	p.mu.Lock()
	entry, ok := p.cache[key]
	p.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < p.ttl {
		return entry.quantity, nil
	}

	lvl, err := p.remote.GetStockLevel(ctx, productID, branchID)
	if err != nil {
		if ok {
			p.log.WithError(err).WithField("product_id", productID).
				Debug("stock refresh failed, serving stale snapshot")
			return entry.quantity, nil
		}
		return 0, err
	}

	quantity := 0
	if lvl != nil {
		quantity = lvl.Quantity
	}

	p.mu.Lock()
	p.cache[key] = snapshotEntry{quantity: quantity, fetchedAt: time.Now()}
	p.mu.Unlock()

	return quantity, nil
}

// Invalidate drops the cached snapshot for one product so the next read
// refetches. Called after a drain confirms decrements remotely.
func (p *StockProjection) Invalidate(productID, branchID string) {
	p.mu.Lock()
	delete(p.cache, productID+"|"+branchID)
	p.mu.Unlock()
}

// InvalidateAll drops every cached snapshot.
func (p *StockProjection) InvalidateAll() {
	p.mu.Lock()
	p.cache = make(map[string]snapshotEntry)
	p.mu.Unlock()
}
