package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/pos-sync/internal/core/domain"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// MySQLStore talks to the remote system of record. Each method is one
// row-level request; there is deliberately no transaction spanning the
// sales, stock_levels and audit_logs collections.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (m *MySQLStore) InsertSaleLines(ctx context.Context, sale domain.Sale) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, line := range sale.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sales (id, sale_id, product_id, quantity, branch_id, actor_id, actor_name, captured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), sale.ID, line.ProductID, line.Quantity,
			sale.BranchID, sale.ActorID, sale.ActorName, sale.CapturedAt,
		)
		if err != nil {
			return fmt.Errorf("insert sale line %s: %w", line.ProductID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLStore) AdjustStock(ctx context.Context, productID, branchID string, delta int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE stock_levels
		SET quantity = quantity + ?, updated_at = NOW()
		WHERE product_id = ? AND branch_id = ? AND quantity + ? >= 0`,
		delta, productID, branchID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("product %s at branch %s: %w", productID, branchID, ErrInsufficientStock)
	}
	return nil
}

func (m *MySQLStore) GetStockLevel(ctx context.Context, productID, branchID string) (*domain.StockLevel, error) {
	var lvl domain.StockLevel
	err := m.db.QueryRowContext(ctx, `
		SELECT product_id, branch_id, quantity, updated_at
		FROM stock_levels WHERE product_id = ? AND branch_id = ?`,
		productID, branchID,
	).Scan(&lvl.ProductID, &lvl.BranchID, &lvl.Quantity, &lvl.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock level: %w", err)
	}
	return &lvl, nil
}

func (m *MySQLStore) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_name, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), entry.ActorID, entry.ActorName, entry.Action, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (m *MySQLStore) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, brand, category, variant, size, barcode, price_cents, image_url, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Variant, &p.Size,
		&p.Barcode, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}
