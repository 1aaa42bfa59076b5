package port

import (
	"context"

	"github.com/rl1809/pos-sync/internal/core/domain"
)

// LocalQueue is the durable store for sales captured while offline. All
// failures surface as *domain.PersistenceError. Implementations must be safe
// for concurrent use: capture and reconciliation run on different goroutines.
type LocalQueue interface {
	// Enqueue appends a sale and returns its monotonically increasing
	// sequence number.
	Enqueue(ctx context.Context, sale domain.Sale) (uint64, error)

	// PeekAll returns every pending record in ascending sequence order
	// without removing anything.
	PeekAll(ctx context.Context) ([]domain.PendingSaleRecord, error)

	// Remove deletes a single record by sequence number. Removing a
	// sequence that is not queued is a no-op.
	Remove(ctx context.Context, seq uint64) error

	// Clear removes all records.
	Clear(ctx context.Context) error

	// Len reports the number of pending records.
	Len(ctx context.Context) (int, error)
}
