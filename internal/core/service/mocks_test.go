package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/core/domain"
	"github.com/rl1809/pos-sync/internal/port"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Mock LocalQueue
type mockQueue struct {
	mu         sync.Mutex
	records    []domain.PendingSaleRecord
	nextSeq    uint64
	enqueueErr error
}

func newMockQueue() *mockQueue {
	return &mockQueue{nextSeq: 1}
}

func (q *mockQueue) Enqueue(ctx context.Context, sale domain.Sale) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return 0, &domain.PersistenceError{Op: "enqueue", Err: q.enqueueErr}
	}
	seq := q.nextSeq
	q.nextSeq++
	q.records = append(q.records, domain.PendingSaleRecord{Seq: seq, Sale: sale})
	return seq, nil
}

func (q *mockQueue) PeekAll(ctx context.Context) ([]domain.PendingSaleRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.PendingSaleRecord, len(q.records))
	copy(out, q.records)
	return out, nil
}

func (q *mockQueue) Remove(ctx context.Context, seq uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, rec := range q.records {
		if rec.Seq == seq {
			q.records = append(q.records[:i], q.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *mockQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = nil
	return nil
}

func (q *mockQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records), nil
}

// Mock RemoteStore. Records every call so tests can assert ordering.
type remoteCall struct {
	Op        string
	SaleID    string
	ProductID string
	Delta     int
}

type mockRemote struct {
	mu    sync.Mutex
	calls []remoteCall
	stock map[string]int // productID|branchID

	insertErr   func(sale domain.Sale) error
	adjustErr   func(productID string) error
	auditErr    error
	getStockErr error
}

func newMockRemote() *mockRemote {
	return &mockRemote{stock: make(map[string]int)}
}

func (m *mockRemote) setStock(productID, branchID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID+"|"+branchID] = qty
}

func (m *mockRemote) stockOf(productID, branchID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID+"|"+branchID]
}

func (m *mockRemote) callsOf(op string) []remoteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []remoteCall
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockRemote) InsertSaleLines(ctx context.Context, sale domain.Sale) error {
	if m.insertErr != nil {
		if err := m.insertErr(sale); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, remoteCall{Op: "insert_sale", SaleID: sale.ID})
	return nil
}

func (m *mockRemote) AdjustStock(ctx context.Context, productID, branchID string, delta int) error {
	if m.adjustErr != nil {
		if err := m.adjustErr(productID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := productID + "|" + branchID
	if m.stock[key]+delta < 0 {
		return fmt.Errorf("insufficient stock for %s", productID)
	}
	m.stock[key] += delta
	m.calls = append(m.calls, remoteCall{Op: "adjust_stock", ProductID: productID, Delta: delta})
	return nil
}

func (m *mockRemote) GetStockLevel(ctx context.Context, productID, branchID string) (*domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getStockErr != nil {
		return nil, m.getStockErr
	}
	qty, ok := m.stock[productID+"|"+branchID]
	if !ok {
		return nil, nil
	}
	return &domain.StockLevel{ProductID: productID, BranchID: branchID, Quantity: qty}, nil
}

func (m *mockRemote) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, remoteCall{Op: "append_audit"})
	return nil
}

func (m *mockRemote) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return nil, nil
}

// Stub ConnectivityMonitor
type stubMonitor struct {
	mu     sync.Mutex
	online bool
	events chan port.Edge
}

func newStubMonitor(online bool) *stubMonitor {
	return &stubMonitor{online: online, events: make(chan port.Edge, 4)}
}

func (m *stubMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *stubMonitor) Events() <-chan port.Edge {
	return m.events
}

func (m *stubMonitor) setOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
	if online {
		m.events <- port.BecameOnline
	} else {
		m.events <- port.BecameOffline
	}
}
