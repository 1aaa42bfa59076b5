package port

import (
	"context"

	"github.com/rl1809/pos-sync/internal/core/domain"
)

// RemoteStore is the request/response surface of the remote system of
// record. Each call maps to one row-level write or read against the sales,
// stock_levels, audit_logs or products collection. Writes are atomic per
// call but NOT across calls; the submission pipeline owns the ordering.
type RemoteStore interface {
	// InsertSaleLines inserts one sale row per cart line, tagged with
	// branch and actor.
	InsertSaleLines(ctx context.Context, sale domain.Sale) error

	// AdjustStock applies a signed delta to one stock row. It rejects the
	// write if the result would be negative.
	AdjustStock(ctx context.Context, productID, branchID string, delta int) error

	// GetStockLevel reads the authoritative stock row, or nil if the
	// product has no row at this branch.
	GetStockLevel(ctx context.Context, productID, branchID string) (*domain.StockLevel, error)

	// AppendAudit appends one audit log row.
	AppendAudit(ctx context.Context, entry domain.AuditEntry) error

	// GetProduct reads a catalog row, or nil if absent.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}
