package app

import (
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/shopspring/decimal"
)

// demoTiers mirrors the seed migration so the memory driver serves the same
// event as a freshly migrated database.
func demoTiers() []domain.TicketTier {
	return []domain.TicketTier{
		{ID: "ga-spring-show", EventID: "spring-show", Name: "General Admission", Type: "general", UnitPrice: decimal.RequireFromString("50.00"), Currency: "USD", TotalQuantity: 200, Status: domain.TierOnSale},
		{ID: "vip-spring-show", EventID: "spring-show", Name: "VIP Front Row", Type: "vip", UnitPrice: decimal.RequireFromString("150.00"), Currency: "USD", TotalQuantity: 20, Status: domain.TierOnSale},
		{ID: "press-spring-show", EventID: "spring-show", Name: "Press", Type: "press", UnitPrice: decimal.Zero, Currency: "USD", TotalQuantity: 10, Status: domain.TierOnSale},
	}
}
