package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/core/domain"
	"github.com/rl1809/pos-sync/internal/port"
)

// AuditActionSale is the action recorded for every submitted sale.
const AuditActionSale = "pos_sale"

// Submitter replays one sale against the remote system of record as three
// dependent writes: sale rows, per-line stock decrements, one audit entry.
// The sequence is best-effort, not transactional: an interrupted run is
// reported, never rolled back.
type Submitter struct {
	remote  port.RemoteStore
	timeout time.Duration
	log     *logrus.Logger
}

func NewSubmitter(remote port.RemoteStore, timeout time.Duration, log *logrus.Logger) *Submitter {
	return &Submitter{remote: remote, timeout: timeout, log: log}
}

// Submit applies one sale. On a stock decrement failing partway through the
// line items the error reports which lines already applied; those decrements
// stay applied. An audit failure is a warning on the receipt, not an error,
// because the financial effect is already committed.
func (s *Submitter) Submit(ctx context.Context, sale domain.Sale) (domain.SubmissionReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.remote.InsertSaleLines(ctx, sale); err != nil {
		return domain.SubmissionReceipt{}, &domain.SubmissionError{Step: domain.StepInsertSale, Err: err}
	}

	applied := make([]domain.CartLine, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		if err := s.remote.AdjustStock(ctx, line.ProductID, sale.BranchID, -line.Quantity); err != nil {
			return domain.SubmissionReceipt{SaleID: sale.ID, LinesApplied: len(applied)},
				&domain.PartialSubmissionError{
					SaleID:  sale.ID,
					Applied: applied,
					Failed:  line,
					Err:     err,
				}
		}
		applied = append(applied, line)
	}

	receipt := domain.SubmissionReceipt{SaleID: sale.ID, LinesApplied: len(applied)}

	entry := domain.AuditEntry{
		ActorID:   sale.ActorID,
		ActorName: sale.ActorName,
		Action:    AuditActionSale,
		Details:   fmt.Sprintf("sale %s: %d lines at branch %s", sale.ID, len(sale.Lines), sale.BranchID),
		Timestamp: time.Now().UTC(),
	}
	if err := s.remote.AppendAudit(ctx, entry); err != nil {
		s.log.WithError(err).WithField("sale_id", sale.ID).
			Warn("audit append failed after sale committed")
		receipt.AuditWarning = err.Error()
	}

	return receipt, nil
}
