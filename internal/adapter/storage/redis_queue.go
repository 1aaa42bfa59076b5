package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pos-sync/internal/core/domain"
)

const (
	pendingQueueKey = "pos:pending_sales"
	queueSeqKey     = "pos:pending_sales:seq"
)

// RedisQueue stores pending sales in a sorted set scored by sequence number,
// with the counter kept in a separate key. The set survives client process
// restarts, which is all the durability the queue contract asks for.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, sale domain.Sale) (uint64, error) {
	seq, err := q.client.Incr(ctx, queueSeqKey).Result()
	if err != nil {
		return 0, &domain.PersistenceError{Op: "enqueue", Err: err}
	}

	rec := domain.PendingSaleRecord{Seq: uint64(seq), Sale: sale}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "enqueue", Err: err}
	}

	err = q.client.ZAdd(ctx, pendingQueueKey, redis.Z{
		Score:  float64(seq),
		Member: string(data),
	}).Err()
	if err != nil {
		return 0, &domain.PersistenceError{Op: "enqueue", Err: err}
	}
	return uint64(seq), nil
}

func (q *RedisQueue) PeekAll(ctx context.Context) ([]domain.PendingSaleRecord, error) {
	members, err := q.client.ZRangeByScore(ctx, pendingQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, &domain.PersistenceError{Op: "peek", Err: err}
	}

	records := make([]domain.PendingSaleRecord, 0, len(members))
	for _, m := range members {
		var rec domain.PendingSaleRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			return nil, &domain.PersistenceError{Op: "peek", Err: fmt.Errorf("decode record: %w", err)}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (q *RedisQueue) Remove(ctx context.Context, seq uint64) error {
	score := fmt.Sprintf("%d", seq)
	if err := q.client.ZRemRangeByScore(ctx, pendingQueueKey, score, score).Err(); err != nil {
		return &domain.PersistenceError{Op: "remove", Err: err}
	}
	return nil
}

func (q *RedisQueue) Clear(ctx context.Context) error {
	if err := q.client.Del(ctx, pendingQueueKey).Err(); err != nil {
		return &domain.PersistenceError{Op: "clear", Err: err}
	}
	return nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, pendingQueueKey).Result()
	if err != nil {
		return 0, &domain.PersistenceError{Op: "len", Err: err}
	}
	return int(n), nil
}
