package invoicing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore caches invoice snapshots between backend round trips. The
// backend stays the source of truth; entries are short-lived and replaced
// after every confirmed mutation.
type SnapshotStore interface {
	Get(ctx context.Context, kind InvoiceKind, id int64) (*Invoice, bool)
	Set(ctx context.Context, inv *Invoice)
	Delete(ctx context.Context, kind InvoiceKind, id int64)
}

// RedisSnapshots stores invoice snapshots in Redis with a TTL.
type RedisSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshots builds a snapshot store on top of an existing client.
func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSnapshots{client: client, ttl: ttl}
}

func snapshotKey(kind InvoiceKind, id int64) string {
	return fmt.Sprintf("freightdesk:invoice:%s:%d", kind, id)
}

// Get returns a cached snapshot. Any decode or transport error counts as a
// cache miss.
func (s *RedisSnapshots) Get(ctx context.Context, kind InvoiceKind, id int64) (*Invoice, bool) {
	raw, err := s.client.Get(ctx, snapshotKey(kind, id)).Bytes()
	if err != nil {
		return nil, false
	}
	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, false
	}
	return &inv, true
}

// Set stores a snapshot, silently dropping it when marshalling or the write
// fails.
func (s *RedisSnapshots) Set(ctx context.Context, inv *Invoice) {
	if inv == nil {
		return
	}
	raw, err := json.Marshal(inv)
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, snapshotKey(inv.Kind, inv.ID), raw, s.ttl).Err()
}

// Delete evicts a snapshot.
func (s *RedisSnapshots) Delete(ctx context.Context, kind InvoiceKind, id int64) {
	_ = s.client.Del(ctx, snapshotKey(kind, id)).Err()
}
