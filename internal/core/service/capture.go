package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/core/domain"
	"github.com/rl1809/pos-sync/internal/port"
)

var (
	ErrEmptyCart         = errors.New("empty cart")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CaptureService turns a completed cart into either an immediate remote
// submission or a queued pending sale, depending on connectivity at call
// time. The caller clears its cart only after a nil error: on a
// PersistenceError nothing was recorded anywhere.
type CaptureService struct {
	monitor    port.ConnectivityMonitor
	queue      port.LocalQueue
	submitter  *Submitter
	projection *StockProjection
	log        *logrus.Logger
}

func NewCaptureService(monitor port.ConnectivityMonitor, queue port.LocalQueue, submitter *Submitter, projection *StockProjection, log *logrus.Logger) *CaptureService {
	return &CaptureService{
		monitor:    monitor,
		queue:      queue,
		submitter:  submitter,
		projection: projection,
		log:        log,
	}
}

// CompleteSale captures the cart. Connectivity is read once, synchronously:
// online attempts a submission and falls back to the queue if that attempt
// fails for any reason, so a reachability false positive never loses a sale.
func (s *CaptureService) CompleteSale(ctx context.Context, cart domain.Cart) (domain.Disposition, error) {
	if err := s.validate(ctx, cart); err != nil {
		return "", err
	}

	sale := domain.NewSale(cart)
	log := s.log.WithFields(logrus.Fields{"sale_id": sale.ID, "lines": len(sale.Lines)})

	if s.monitor.Online() {
		receipt, err := s.submitter.Submit(ctx, sale)
		if err == nil {
			for _, line := range sale.Lines {
				s.projection.Invalidate(line.ProductID, sale.BranchID)
			}
			log.WithField("lines_applied", receipt.LinesApplied).Info("sale submitted")
			return domain.DispositionSubmitted, nil
		}
		log.WithError(err).Warn("immediate submission failed, queueing sale")
	}

	seq, err := s.queue.Enqueue(ctx, sale)
	if err != nil {
		log.WithError(err).Error("sale not saved")
		return "", err
	}

	log.WithField("seq", seq).Info("sale queued for reconciliation")
	return domain.DispositionQueued, nil
}

// validate rejects empty carts and bad quantities, and checks each line
// against projected stock. The stock check is advisory while the projection
// has no snapshot to offer (first capture on a cold offline start).
func (s *CaptureService) validate(ctx context.Context, cart domain.Cart) error {
	if len(cart.Lines) == 0 {
		return ErrEmptyCart
	}

	for _, line := range cart.Lines {
		if line.Quantity < 1 {
			return fmt.Errorf("product %s: %w", line.ProductID, ErrInvalidQuantity)
		}

		projected, err := s.projection.Projected(ctx, line.ProductID, cart.BranchID)
		if err != nil {
			s.log.WithError(err).WithField("product_id", line.ProductID).
				Warn("projected stock unavailable, skipping stock check")
			continue
		}
		if line.Quantity > projected {
			return fmt.Errorf("product %s: want %d, projected %d: %w",
				line.ProductID, line.Quantity, projected, ErrInsufficientStock)
		}
	}
	return nil
}
