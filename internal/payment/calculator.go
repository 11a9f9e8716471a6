package payment

import (
	"math"

	"paydesk/internal/domain"
)

// QuoteSource supplies the authoritative price and Paid/Unpaid status per
// item. Backed by the reservation store in production.
type QuoteSource interface {
	Quote(ref domain.ItemRef) (domain.ItemQuote, error)
}

// Breakdown is the derived payment state of one item.
type Breakdown struct {
	Total     float64 `json:"total"`
	Paid      float64 `json:"paid"`
	Remaining float64 `json:"remaining"`
}

// Calculator derives paid/remaining on every read; nothing is cached.
type Calculator struct {
	Quotes QuoteSource
	Ledger *Ledger
}

// Remaining computes the breakdown for ref. An externally Paid item is fully
// paid regardless of ledger contents. A failed quote reads as price 0.
func (c Calculator) Remaining(ref domain.ItemRef) Breakdown {
	quote, err := c.Quotes.Quote(ref)
	if err != nil {
		return Breakdown{}
	}
	if quote.Status == domain.StatusPaid {
		return Breakdown{Total: quote.Price, Paid: quote.Price, Remaining: 0}
	}
	paid := c.Ledger.TotalAllocated(ref)
	return Breakdown{
		Total:     quote.Price,
		Paid:      paid,
		Remaining: math.Max(0, quote.Price-paid),
	}
}

func (c Calculator) IsFullyPaid(ref domain.ItemRef) bool {
	return c.Remaining(ref).Remaining == 0
}

// RemainingExcluding is the capacity left for one slot: price minus what the
// OTHER instruments on the item already cover.
func (c Calculator) RemainingExcluding(ref domain.ItemRef, slotAmount float64) float64 {
	quote, err := c.Quotes.Quote(ref)
	if err != nil {
		return 0
	}
	otherPaid := c.Ledger.TotalAllocated(ref) - slotAmount
	return math.Max(0, quote.Price-otherPaid)
}
