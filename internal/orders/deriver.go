package orders

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Source fetches orders from the back-office backend.
type Source interface {
	FetchOrder(ctx context.Context, id int64) (*Order, error)
}

// Deriver fetches linked orders and aggregates their derived amounts.
// Concurrent derivations for the same selection collapse into one backend
// round trip.
type Deriver struct {
	source Source
	group  singleflight.Group
}

// NewDeriver builds a Deriver instance.
func NewDeriver(source Source) *Deriver {
	return &Deriver{source: source}
}

// Derive fetches every order in the selection and returns the aggregated
// derived amount for the given partner.
func (d *Deriver) Derive(ctx context.Context, orderIDs []int64, partnerID int64) (decimal.Decimal, error) {
	if len(orderIDs) == 0 {
		return decimal.Zero, nil
	}
	key := deriveKey(orderIDs, partnerID)
	resultChan := d.group.DoChan(key, func() (any, error) {
		return d.derive(ctx, orderIDs, partnerID)
	})
	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	}
}

func (d *Deriver) derive(ctx context.Context, orderIDs []int64, partnerID int64) (decimal.Decimal, error) {
	seen := make(map[int64]struct{}, len(orderIDs))
	var linked []Order
	for _, id := range orderIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order, err := d.source.FetchOrder(ctx, id)
		if err != nil {
			return decimal.Zero, fmt.Errorf("fetch order %d: %w", id, err)
		}
		if order == nil {
			continue
		}
		linked = append(linked, *order)
	}
	return AggregateAmount(linked, nil, partnerID), nil
}

func deriveKey(orderIDs []int64, partnerID int64) string {
	ids := make([]int64, len(orderIDs))
	copy(ids, orderIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	parts = append(parts, "p"+strconv.FormatInt(partnerID, 10))
	return strings.Join(parts, ",")
}
