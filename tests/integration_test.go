package tests

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/adapter/storage"
	"github.com/rl1809/pos-sync/internal/core/domain"
	"github.com/rl1809/pos-sync/internal/core/service"
	"github.com/rl1809/pos-sync/internal/port"
)

// recordingRemote is an in-memory system of record that logs every call in
// arrival order.
type recordingRemote struct {
	mu    sync.Mutex
	stock map[string]int
	calls []string
	fail  bool
}

func newRecordingRemote() *recordingRemote {
	return &recordingRemote{stock: make(map[string]int)}
}

func (r *recordingRemote) setFailing(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *recordingRemote) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recordingRemote) InsertSaleLines(ctx context.Context, sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("remote unavailable")
	}
	r.calls = append(r.calls, "insert_sale:"+sale.ID)
	return nil
}

func (r *recordingRemote) AdjustStock(ctx context.Context, productID, branchID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("remote unavailable")
	}
	key := productID + "|" + branchID
	if r.stock[key]+delta < 0 {
		return errors.New("insufficient stock")
	}
	r.stock[key] += delta
	r.calls = append(r.calls, "adjust_stock")
	return nil
}

func (r *recordingRemote) GetStockLevel(ctx context.Context, productID, branchID string) (*domain.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qty, ok := r.stock[productID+"|"+branchID]
	if !ok {
		return nil, nil
	}
	return &domain.StockLevel{ProductID: productID, BranchID: branchID, Quantity: qty}, nil
}

func (r *recordingRemote) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("remote unavailable")
	}
	r.calls = append(r.calls, "append_audit")
	return nil
}

func (r *recordingRemote) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return nil, nil
}

// switchMonitor is a hand-driven connectivity monitor.
type switchMonitor struct {
	mu     sync.Mutex
	online bool
	events chan port.Edge
}

func newSwitchMonitor(online bool) *switchMonitor {
	return &switchMonitor{online: online, events: make(chan port.Edge, 4)}
}

func (m *switchMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *switchMonitor) Events() <-chan port.Edge { return m.events }

func (m *switchMonitor) goOnline() {
	m.mu.Lock()
	m.online = true
	m.mu.Unlock()
	m.events <- port.BecameOnline
}

type env struct {
	capture    *service.CaptureService
	reconciler *service.Reconciler
	projection *service.StockProjection
	queue      port.LocalQueue
	remote     *recordingRemote
	monitor    *switchMonitor
}

func newEnv(t *testing.T, queuePath string, online bool) *env {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	queue, err := storage.NewFileQueue(queuePath)
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}

	remote := newRecordingRemote()
	monitor := newSwitchMonitor(online)

	submitter := service.NewSubmitter(remote, 5*time.Second, log)
	projection := service.NewStockProjection(remote, queue, time.Minute, log)
	capture := service.NewCaptureService(monitor, queue, submitter, projection, log)
	reconciler := service.NewReconciler(queue, submitter, monitor, projection, log)

	return &env{
		capture:    capture,
		reconciler: reconciler,
		projection: projection,
		queue:      queue,
		remote:     remote,
		monitor:    monitor,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before timeout")
}

// Offline capture, reconnect, drain: the full round trip.
func TestOfflineSaleRoundTrip(t *testing.T) {
	e := newEnv(t, filepath.Join(t.TempDir(), "pending.json"), false)
	ctx := context.Background()
	e.remote.stock["A|main"] = 10

	e.reconciler.Start(ctx)
	defer e.reconciler.Stop()

	cart := domain.Cart{
		ActorID:   "user-1",
		ActorName: "Cash Desk",
		BranchID:  "main",
		Lines:     []domain.CartLine{{ProductID: "A", Quantity: 2}},
	}

	disposition, err := e.capture.CompleteSale(ctx, cart)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if disposition != domain.DispositionQueued {
		t.Fatalf("expected queued, got %s", disposition)
	}

	if n, _ := e.queue.Len(ctx); n != 1 {
		t.Fatalf("expected 1 queued record, got %d", n)
	}
	projected, err := e.projection.Projected(ctx, "A", "main")
	if err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	if projected != 8 {
		t.Errorf("expected projected stock 8, got %d", projected)
	}

	e.monitor.goOnline()

	waitFor(t, time.Second, func() bool {
		n, _ := e.queue.Len(ctx)
		return n == 0
	})

	calls := e.remote.callLog()
	if len(calls) != 3 {
		t.Fatalf("expected exactly 3 remote calls, got %v", calls)
	}
	if calls[1] != "adjust_stock" || calls[2] != "append_audit" {
		t.Errorf("unexpected call order: %v", calls)
	}
	if got := e.remote.stock["A|main"]; got != 8 {
		t.Errorf("expected remote stock 8, got %d", got)
	}

	projected, err = e.projection.Projected(ctx, "A", "main")
	if err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	if projected != 8 {
		t.Errorf("expected projected stock to settle at 8, got %d", projected)
	}
}

// Queued sales survive a process restart and drain in capture order.
func TestQueueSurvivesRestartAndDrainsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	ctx := context.Background()

	// First process: capture three sales offline, then die.
	before := newEnv(t, path, false)
	before.remote.stock["A|main"] = 10
	var saleIDs []string
	for i := 0; i < 3; i++ {
		cart := domain.Cart{
			ActorID:  "user-1",
			BranchID: "main",
			Lines:    []domain.CartLine{{ProductID: "A", Quantity: 1}},
		}
		if _, err := before.capture.CompleteSale(ctx, cart); err != nil {
			t.Fatalf("capture %d failed: %v", i, err)
		}
	}
	records, _ := before.queue.PeekAll(ctx)
	for _, rec := range records {
		saleIDs = append(saleIDs, rec.Sale.ID)
	}

	// Second process: same queue file, online from the start.
	after := newEnv(t, path, true)
	after.remote.stock["A|main"] = 10

	after.reconciler.Start(ctx)
	defer after.reconciler.Stop()

	waitFor(t, time.Second, func() bool {
		n, _ := after.queue.Len(ctx)
		return n == 0
	})

	var inserted []string
	for _, call := range after.remote.callLog() {
		if len(call) > len("insert_sale:") && call[:len("insert_sale:")] == "insert_sale:" {
			inserted = append(inserted, call[len("insert_sale:"):])
		}
	}
	if len(inserted) != 3 {
		t.Fatalf("expected 3 sale inserts, got %d", len(inserted))
	}
	for i := range saleIDs {
		if inserted[i] != saleIDs[i] {
			t.Errorf("insert %d out of order: expected %s, got %s", i, saleIDs[i], inserted[i])
		}
	}
	if got := after.remote.stock["A|main"]; got != 7 {
		t.Errorf("expected remote stock 7, got %d", got)
	}
}

// A failing remote keeps everything queued; recovery finishes the backlog.
func TestDrainRetriesAfterRemoteRecovers(t *testing.T) {
	e := newEnv(t, filepath.Join(t.TempDir(), "pending.json"), false)
	ctx := context.Background()
	e.remote.stock["A|main"] = 10

	cart := domain.Cart{
		ActorID:  "user-1",
		BranchID: "main",
		Lines:    []domain.CartLine{{ProductID: "A", Quantity: 2}},
	}
	if _, err := e.capture.CompleteSale(ctx, cart); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	e.remote.setFailing(true)

	result, err := e.reconciler.Drain(ctx)
	if err == nil {
		t.Fatal("expected drain failure")
	}
	if result.Succeeded != 0 {
		t.Errorf("expected 0 succeeded, got %d", result.Succeeded)
	}
	if n, _ := e.queue.Len(ctx); n != 1 {
		t.Fatalf("record must stay queued, got %d", n)
	}
	if state := e.reconciler.State(); state != service.StatePartiallyFailed {
		t.Errorf("expected partially_failed, got %s", state)
	}

	e.remote.setFailing(false)

	result, err = e.reconciler.Drain(ctx)
	if err != nil {
		t.Fatalf("second drain failed: %v", err)
	}
	if result.Succeeded != 1 {
		t.Errorf("expected 1 succeeded, got %d", result.Succeeded)
	}
	if n, _ := e.queue.Len(ctx); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}
