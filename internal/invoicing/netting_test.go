package invoicing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func salesInvoice(id, partnerID int64, total string, paid string) Invoice {
	inv := Invoice{ID: id, Kind: KindSales, PartnerID: partnerID, AmountTotal: dec(total)}
	if paid != "" {
		inv.Payments = []Payment{{Amount: dec(paid)}}
	}
	return inv
}

func purchaseInvoice(id, partnerID int64, total string, paid string) Invoice {
	inv := salesInvoice(id, partnerID, total, paid)
	inv.Kind = KindPurchase
	return inv
}

func TestOffsetCandidatesSamePartnerOnly(t *testing.T) {
	inv := salesInvoice(1, 7, "1000", "")
	counter := []Invoice{
		purchaseInvoice(30, 7, "400", ""),
		purchaseInvoice(31, 9, "400", ""),
		purchaseInvoice(32, 7, "200", "200"), // settled, nothing left to offset
		salesInvoice(33, 7, "100", ""),       // same direction
	}

	got := OffsetCandidates(inv, counter)
	require.Len(t, got, 1)
	require.Equal(t, int64(30), got[0].ID)
}

func TestOffsetCandidatesEmptyWhenNoMatch(t *testing.T) {
	inv := purchaseInvoice(2, 5, "100", "")
	require.Empty(t, OffsetCandidates(inv, []Invoice{salesInvoice(40, 6, "100", "")}))
}

func TestValidateOffsetAccepts(t *testing.T) {
	inv := salesInvoice(1, 7, "1000", "")
	counter := []Invoice{purchaseInvoice(30, 7, "400", "")}
	require.NoError(t, ValidateOffset(inv, counter, []int64{30}))
}

func TestValidateOffsetRejectsCrossPartner(t *testing.T) {
	inv := salesInvoice(1, 7, "1000", "")
	counter := []Invoice{
		purchaseInvoice(30, 7, "400", ""),
		purchaseInvoice(31, 9, "400", ""),
	}
	err := ValidateOffset(inv, counter, []int64{31})
	require.ErrorIs(t, err, ErrCrossPartnerOffset)
}

func TestValidateOffsetRejectsUnknownInvoice(t *testing.T) {
	inv := salesInvoice(1, 7, "1000", "")
	err := ValidateOffset(inv, []Invoice{purchaseInvoice(30, 7, "400", "")}, []int64{99})
	require.ErrorIs(t, err, ErrOffsetUnknownInvoice)
}

func TestValidateOffsetRequiresIDs(t *testing.T) {
	inv := salesInvoice(1, 7, "1000", "")
	require.ErrorIs(t, ValidateOffset(inv, nil, nil), ErrOffsetRequired)
}
