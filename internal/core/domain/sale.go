package domain

import (
	"time"

	"github.com/google/uuid"
)

type Disposition string

const (
	DispositionSubmitted Disposition = "submitted"
	DispositionQueued    Disposition = "queued"
)

// CartLine is one product position in a cart. Quantity is always >= 1.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart is the mutable checkout state owned by the caller. It is only
// consumed here; the capture service never clears it.
type Cart struct {
	ActorID   string
	ActorName string
	BranchID  string
	Lines     []CartLine
}

// Sale is an immutable captured cart. Reconciliation never mutates its
// contents, only its disposition.
type Sale struct {
	ID         string     `json:"id"`
	BranchID   string     `json:"branch_id"`
	ActorID    string     `json:"actor_id"`
	ActorName  string     `json:"actor_name"`
	Lines      []CartLine `json:"lines"`
	CapturedAt time.Time  `json:"captured_at"`
}

// NewSale freezes a cart into a Sale at capture time.
func NewSale(cart Cart) Sale {
	lines := make([]CartLine, len(cart.Lines))
	copy(lines, cart.Lines)

	return Sale{
		ID:         uuid.NewString(),
		BranchID:   cart.BranchID,
		ActorID:    cart.ActorID,
		ActorName:  cart.ActorName,
		Lines:      lines,
		CapturedAt: time.Now().UTC(),
	}
}

// Quantity returns the total queued quantity of the given product in this sale.
func (s Sale) Quantity(productID string) int {
	total := 0
	for _, line := range s.Lines {
		if line.ProductID == productID {
			total += line.Quantity
		}
	}
	return total
}

// PendingSaleRecord is a Sale plus the local sequence number assigned at
// enqueue time. Replay always happens in ascending Seq order.
type PendingSaleRecord struct {
	Seq  uint64 `json:"seq"`
	Sale Sale   `json:"sale"`
}

// SubmissionReceipt reports a fully applied submission. AuditWarning is set
// when the audit append failed after the sale and stock writes committed.
type SubmissionReceipt struct {
	SaleID       string
	LinesApplied int
	AuditWarning string
}

// DrainResult is the consolidated outcome of one drain attempt. FailedSeq is
// zero when every queued record was replayed.
type DrainResult struct {
	Succeeded  int
	FailedSeq  uint64
	Err        error
	FinishedAt time.Time
}
