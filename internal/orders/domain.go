// Package orders derives invoice amounts from linked freight orders.
package orders

import "github.com/shopspring/decimal"

// CarrierAssignment is one carrier booked on an order.
type CarrierAssignment struct {
	PartnerID int64           `json:"partner_id"`
	PriceNet  decimal.Decimal `json:"price_net"`
}

// OtherCost is an ad-hoc cost line on an order.
type OtherCost struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Order is a read-only aggregate fetched from the back-office backend.
type Order struct {
	ID                 int64               `json:"id"`
	Number             string              `json:"number"`
	CarrierAssignments []CarrierAssignment `json:"carrier_assignments"`
	OtherCosts         []OtherCost         `json:"other_costs"`
}
