package domain

import (
	"github.com/shopspring/decimal"
)

type TierStatus string

const (
	TierOnSale    TierStatus = "on_sale"
	TierSoldOut   TierStatus = "sold_out"
	TierSuspended TierStatus = "suspended"
)

// TicketTier is a read-only snapshot of one purchasable ticket category.
// The catalog owner mutates tiers; the checkout core never writes them.
type TicketTier struct {
	ID            string          `json:"id"`
	EventID       string          `json:"event_id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Currency      string          `json:"currency"`
	TotalQuantity int             `json:"total_quantity"`
	SoldQuantity  int             `json:"sold_quantity"`
	Status        TierStatus      `json:"status"`
}

// Available reports how many units can still be sold. Tiers that are not on
// sale report zero.
func (t TicketTier) Available() int {
	if t.Status != TierOnSale {
		return 0
	}

	left := t.TotalQuantity - t.SoldQuantity
	if left < 0 {
		return 0
	}

	return left
}

func (t TicketTier) IsPurchasable() bool {
	return t.Available() > 0
}

// TierIndex maps tier id to tier for quick lookups inside one snapshot.
type TierIndex map[string]TicketTier

func IndexTiers(tiers []TicketTier) TierIndex {
	idx := make(TierIndex, len(tiers))
	for _, t := range tiers {
		idx[t.ID] = t
	}

	return idx
}
