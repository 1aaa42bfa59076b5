package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rl1809/pos-sync/internal/core/domain"
)

// FileQueue keeps the pending-sale queue in a single JSON document under a
// fixed file name. Every mutation rewrites the document through a temp file
// plus rename, so a crash mid-write leaves either the old or the new queue
// on disk, never a torn one.
type FileQueue struct {
	mu   sync.Mutex
	path string
	doc  queueDocument
}

type queueDocument struct {
	NextSeq uint64                     `json:"next_seq"`
	Records []domain.PendingSaleRecord `json:"records"`
}

// NewFileQueue opens (or creates) the queue file at path.
func NewFileQueue(path string) (*FileQueue, error) {
	q := &FileQueue{path: path}
	if err := q.load(); err != nil {
		return nil, &domain.PersistenceError{Op: "open", Err: err}
	}
	return q, nil
}

func (q *FileQueue) load() error {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) {
		q.doc = queueDocument{NextSeq: 1}
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &q.doc); err != nil {
		return fmt.Errorf("decode %s: %w", q.path, err)
	}
	if q.doc.NextSeq == 0 {
		q.doc.NextSeq = 1
	}
	return nil
}

// persist writes the document atomically. Caller holds q.mu.
func (q *FileQueue) persist() error {
	data, err := json.Marshal(q.doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(q.path)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), q.path)
}

func (q *FileQueue) Enqueue(ctx context.Context, sale domain.Sale) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	seq := q.doc.NextSeq
	q.doc.Records = append(q.doc.Records, domain.PendingSaleRecord{Seq: seq, Sale: sale})
	q.doc.NextSeq++

	if err := q.persist(); err != nil {
		// Roll back the in-memory append so the queue matches disk.
		q.doc.Records = q.doc.Records[:len(q.doc.Records)-1]
		q.doc.NextSeq = seq
		return 0, &domain.PersistenceError{Op: "enqueue", Err: err}
	}
	return seq, nil
}

func (q *FileQueue) PeekAll(ctx context.Context) ([]domain.PendingSaleRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.PendingSaleRecord, len(q.doc.Records))
	copy(out, q.doc.Records)
	return out, nil
}

func (q *FileQueue) Remove(ctx context.Context, seq uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i, rec := range q.doc.Records {
		if rec.Seq == seq {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	old := q.doc.Records
	kept := make([]domain.PendingSaleRecord, 0, len(old)-1)
	kept = append(kept, old[:idx]...)
	kept = append(kept, old[idx+1:]...)
	q.doc.Records = kept

	if err := q.persist(); err != nil {
		q.doc.Records = old
		return &domain.PersistenceError{Op: "remove", Err: err}
	}
	return nil
}

func (q *FileQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	old := q.doc.Records
	q.doc.Records = nil
	if err := q.persist(); err != nil {
		q.doc.Records = old
		return &domain.PersistenceError{Op: "clear", Err: err}
	}
	return nil
}

func (q *FileQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.doc.Records), nil
}
