package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// FeeSchedule is the processor fee policy: subtotal*Rate + Fixed.
type FeeSchedule struct {
	Rate  decimal.Decimal
	Fixed decimal.Decimal
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Rate:  decimal.RequireFromString("0.029"),
		Fixed: decimal.RequireFromString("0.30"),
	}
}

type PricedLine struct {
	TierID    string          `json:"tier_id"`
	TierName  string          `json:"tier_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type PricingBreakdown struct {
	Currency      string          `json:"currency"`
	Lines         []PricedLine    `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	Total         decimal.Decimal `json:"total"`
}

func (p PricingBreakdown) Line(tierID string) (PricedLine, bool) {
	for _, l := range p.Lines {
		if l.TierID == tierID {
			return l, true
		}
	}

	return PricedLine{}, false
}

// Price derives the order summary for a selection. Lines come out in tier id
// order so the result is independent of map iteration. Decimal arithmetic is
// exact, so only the fee needs rounding.
func (f FeeSchedule) Price(sel Selection, tiers TierIndex) (PricingBreakdown, error) {
	out := PricingBreakdown{
		Lines:         []PricedLine{},
		Subtotal:      decimal.Zero,
		ProcessingFee: decimal.Zero,
		Total:         decimal.Zero,
	}

	for _, id := range sel.TierIDs() {
		tier, ok := tiers[id]
		if !ok {
			continue
		}

		q := sel[id]
		if q <= 0 {
			continue
		}

		if out.Currency == "" {
			out.Currency = tier.Currency
		} else if tier.Currency != out.Currency {
			return PricingBreakdown{}, fmt.Errorf("%w: %s and %s", ErrMixedCurrency, out.Currency, tier.Currency)
		}

		lineTotal := tier.UnitPrice.Mul(decimal.NewFromInt(int64(q)))
		out.Lines = append(out.Lines, PricedLine{
			TierID:    id,
			TierName:  tier.Name,
			Quantity:  q,
			UnitPrice: tier.UnitPrice,
			LineTotal: lineTotal,
		})
		out.Subtotal = out.Subtotal.Add(lineTotal)
	}

	if len(out.Lines) == 0 {
		return out, nil
	}

	out.ProcessingFee = out.Subtotal.Mul(f.Rate).Add(f.Fixed).Round(moneyPlaces)
	out.Total = out.Subtotal.Add(out.ProcessingFee)

	return out, nil
}

// FormatMoney renders an amount with exactly two decimals for display.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}
