package orders

import "github.com/shopspring/decimal"

// DeriveAmount computes the invoice candidate amount for an order: the
// carrier price matching partnerID when one exists with a positive price,
// otherwise the first strictly positive carrier price, plus all other-cost
// amounts. partnerID zero means no partner filter. With no carrier price
// and no other costs the result is zero.
func DeriveAmount(o Order, partnerID int64) decimal.Decimal {
	price := carrierPrice(o, partnerID)
	total := price
	for _, c := range o.OtherCosts {
		total = total.Add(c.Amount)
	}
	return total
}

func carrierPrice(o Order, partnerID int64) decimal.Decimal {
	if partnerID != 0 {
		for _, c := range o.CarrierAssignments {
			if c.PartnerID == partnerID && c.PriceNet.IsPositive() {
				return c.PriceNet
			}
		}
	}
	for _, c := range o.CarrierAssignments {
		if c.PriceNet.IsPositive() {
			return c.PriceNet
		}
	}
	return decimal.Zero
}

// AggregateAmount sums derived amounts across the orders linked to an
// invoice. An explicitly saved per-order override wins over the derived
// value, and orders are deduplicated by ID so an order referenced as both
// primary and additional is counted once.
func AggregateAmount(linked []Order, overrides map[int64]decimal.Decimal, partnerID int64) decimal.Decimal {
	total := decimal.Zero
	seen := make(map[int64]struct{}, len(linked))
	for _, o := range linked {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		if override, ok := overrides[o.ID]; ok {
			total = total.Add(override)
			continue
		}
		total = total.Add(DeriveAmount(o, partnerID))
	}
	return total
}
