package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testRedisSnapshots(t *testing.T, ttl time.Duration) (*RedisSnapshots, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSnapshots(client, ttl), mr
}

func TestRedisSnapshotsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := testRedisSnapshots(t, time.Minute)

	inv := salesInvoice(12, 7, "1000.00", "")
	inv.DueDate = "2026-04-01"
	inv.Payments = []Payment{{ID: 1, Amount: dec("400.00"), Method: MethodTransfer}}
	store.Set(ctx, &inv)

	got, ok := store.Get(ctx, KindSales, 12)
	require.True(t, ok)
	require.Equal(t, inv.ID, got.ID)
	require.Equal(t, inv.DueDate, got.DueDate)
	require.Len(t, got.Payments, 1)
	require.True(t, got.Payments[0].Amount.Equal(dec("400.00")))
}

func TestRedisSnapshotsMissOnUnknownKey(t *testing.T) {
	ctx := context.Background()
	store, _ := testRedisSnapshots(t, time.Minute)

	_, ok := store.Get(ctx, KindPurchase, 99)
	require.False(t, ok)
}

func TestRedisSnapshotsExpire(t *testing.T) {
	ctx := context.Background()
	store, mr := testRedisSnapshots(t, time.Minute)

	inv := salesInvoice(12, 7, "1000", "")
	store.Set(ctx, &inv)
	mr.FastForward(2 * time.Minute)

	_, ok := store.Get(ctx, KindSales, 12)
	require.False(t, ok)
}

func TestRedisSnapshotsDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := testRedisSnapshots(t, time.Minute)

	inv := salesInvoice(12, 7, "1000", "")
	store.Set(ctx, &inv)
	store.Delete(ctx, KindSales, 12)

	_, ok := store.Get(ctx, KindSales, 12)
	require.False(t, ok)
}
