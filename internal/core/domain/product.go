package domain

import "time"

// Product is owned by the remote system of record. The engine only reads it.
type Product struct {
	ID         string
	Name       string
	Brand      string
	Category   string
	Variant    string
	Size       string
	Barcode    string
	PriceCents int64
	ImageURL   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StockLevel is the authoritative on-hand quantity for one product at one
// branch, owned remotely. Projected stock is derived from it, never written
// back.
type StockLevel struct {
	ProductID string
	BranchID  string
	Quantity  int
	UpdatedAt time.Time
}
