package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	orders  map[int64]Order
	fetches int
	err     error
}

func (s *fakeSource) FetchOrder(ctx context.Context, id int64) (*Order, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func TestDeriverAggregatesSelection(t *testing.T) {
	src := &fakeSource{orders: map[int64]Order{
		1: freightOrder(),
		2: {ID: 2, CarrierAssignments: []CarrierAssignment{{PartnerID: 7, PriceNet: dec("100")}}},
	}}
	d := NewDeriver(src)

	got, err := d.Derive(context.Background(), []int64{1, 2}, 7)
	require.NoError(t, err)
	require.Equal(t, "470.5", got.String())
}

func TestDeriverDeduplicatesIDs(t *testing.T) {
	src := &fakeSource{orders: map[int64]Order{1: freightOrder()}}
	d := NewDeriver(src)

	got, err := d.Derive(context.Background(), []int64{1, 1, 1}, 7)
	require.NoError(t, err)
	require.Equal(t, "370.5", got.String())
	require.Equal(t, 1, src.fetches)
}

func TestDeriverEmptySelection(t *testing.T) {
	d := NewDeriver(&fakeSource{})
	got, err := d.Derive(context.Background(), nil, 7)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestDeriverPropagatesFetchError(t *testing.T) {
	src := &fakeSource{err: errors.New("backend down")}
	d := NewDeriver(src)

	_, err := d.Derive(context.Background(), []int64{1}, 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch order 1")
}

func TestDeriverSkipsMissingOrders(t *testing.T) {
	src := &fakeSource{orders: map[int64]Order{1: freightOrder()}}
	d := NewDeriver(src)

	got, err := d.Derive(context.Background(), []int64{1, 5}, 7)
	require.NoError(t, err)
	require.Equal(t, "370.5", got.String())
}
