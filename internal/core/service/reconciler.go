package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/core/domain"
	"github.com/rl1809/pos-sync/internal/port"
)

var ErrDrainInProgress = errors.New("drain already in progress")

type DrainState string

const (
	StateIdle            DrainState = "idle"
	StateDraining        DrainState = "draining"
	StatePartiallyFailed DrainState = "partially_failed"
)

// Reconciler replays queued sales against the remote system of record. One
// drain runs at a time; records replay strictly in ascending sequence order
// and the first failure stops the drain, leaving the failed record and
// everything behind it queued for the next stable-online edge.
type Reconciler struct {
	queue      port.LocalQueue
	submitter  *Submitter
	monitor    port.ConnectivityMonitor
	projection *StockProjection
	log        *logrus.Logger

	mu    sync.Mutex
	state DrainState
	last  *domain.DrainResult

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReconciler(queue port.LocalQueue, submitter *Submitter, monitor port.ConnectivityMonitor, projection *StockProjection, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		queue:      queue,
		submitter:  submitter,
		monitor:    monitor,
		projection: projection,
		log:        log,
		state:      StateIdle,
	}
}

// Start launches the trigger loop: one drain immediately if already online,
// then one per BecameOnline edge. Edges arriving while a drain is running
// are absorbed by the single loop goroutine; the follow-up drain they
// trigger sees whatever the queue still holds.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if r.monitor.Online() {
			r.runDrain(ctx)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case edge, ok := <-r.monitor.Events():
				if !ok {
					return
				}
				if edge == port.BecameOnline {
					r.runDrain(ctx)
				}
			}
		}
	}()
}

// Stop cancels the trigger loop and waits for any in-flight drain.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Drain runs one drain now. It is the manual trigger behind the sync
// endpoint and returns ErrDrainInProgress when one is already running.
func (r *Reconciler) Drain(ctx context.Context) (domain.DrainResult, error) {
	return r.drain(ctx)
}

func (r *Reconciler) runDrain(ctx context.Context) {
	if _, err := r.drain(ctx); err != nil && !errors.Is(err, ErrDrainInProgress) {
		r.log.WithError(err).Warn("drain did not complete")
	}
}

func (r *Reconciler) drain(ctx context.Context) (domain.DrainResult, error) {
	r.mu.Lock()
	if r.state == StateDraining {
		r.mu.Unlock()
		return domain.DrainResult{}, ErrDrainInProgress
	}
	r.state = StateDraining
	r.mu.Unlock()

	records, err := r.queue.PeekAll(ctx)
	if err != nil {
		result := domain.DrainResult{Err: err, FinishedAt: time.Now().UTC()}
		r.finish(StatePartiallyFailed, result)
		return result, err
	}

	if len(records) == 0 {
		// Nothing to replay: no remote calls, last result untouched.
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		return domain.DrainResult{FinishedAt: time.Now().UTC()}, nil
	}

	r.log.WithField("pending", len(records)).Info("drain started")

	succeeded := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			result := domain.DrainResult{
				Succeeded:  succeeded,
				FailedSeq:  rec.Seq,
				Err:        ctx.Err(),
				FinishedAt: time.Now().UTC(),
			}
			r.finish(StatePartiallyFailed, result)
			return result, ctx.Err()
		}

		receipt, err := r.submitter.Submit(ctx, rec.Sale)
		if err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"seq": rec.Seq, "sale_id": rec.Sale.ID, "succeeded": succeeded,
			}).Warn("drain stopped on failed record")
			result := domain.DrainResult{
				Succeeded:  succeeded,
				FailedSeq:  rec.Seq,
				Err:        err,
				FinishedAt: time.Now().UTC(),
			}
			r.finish(StatePartiallyFailed, result)
			return result, err
		}

		// Per-record removal bounds redo work if the process dies mid-drain.
		if err := r.queue.Remove(ctx, rec.Seq); err != nil {
			result := domain.DrainResult{
				Succeeded:  succeeded,
				FailedSeq:  rec.Seq,
				Err:        err,
				FinishedAt: time.Now().UTC(),
			}
			r.finish(StatePartiallyFailed, result)
			return result, err
		}

		for _, line := range rec.Sale.Lines {
			r.projection.Invalidate(line.ProductID, rec.Sale.BranchID)
		}
		if receipt.AuditWarning != "" {
			r.log.WithField("sale_id", rec.Sale.ID).Warn("record replayed without audit entry")
		}
		succeeded++
	}

	result := domain.DrainResult{Succeeded: succeeded, FinishedAt: time.Now().UTC()}
	r.finish(StateIdle, result)
	r.log.WithField("succeeded", succeeded).Info("drain finished")
	return result, nil
}

func (r *Reconciler) finish(state DrainState, result domain.DrainResult) {
	r.mu.Lock()
	r.state = state
	r.last = &result
	r.mu.Unlock()
}

func (r *Reconciler) State() DrainState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastDrainResult returns the outcome of the most recent non-empty drain,
// or nil if none has run.
func (r *Reconciler) LastDrainResult() *domain.DrainResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

// HasPendingSales reports whether any captured sale still awaits replay.
func (r *Reconciler) HasPendingSales(ctx context.Context) (bool, error) {
	n, err := r.queue.Len(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
