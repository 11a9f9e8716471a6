package payment

import (
	"testing"

	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
)

func TestRemainingDerivesFromLedger(t *testing.T) {
	ref := ticketRef(1)
	quotes := stubQuotes{ref: {Price: 500, Status: domain.StatusUnpaid}}
	ledger := NewLedger()
	calc := Calculator{Quotes: quotes, Ledger: ledger}

	got := calc.Remaining(ref)
	if got.Total != 500 || got.Paid != 0 || got.Remaining != 500 {
		t.Fatalf("unexpected breakdown: %+v", got)
	}

	entry := ledger.Ensure(ref)
	entry.Slots = append(entry.Slots, &models.InstrumentSlot{ID: "a", Kind: models.KindCredit, Amount: 120, Committed: true})
	entry.Slots = append(entry.Slots, &models.InstrumentSlot{ID: "b", Kind: models.KindVoucher, Amount: 80, Committed: true})

	got = calc.Remaining(ref)
	if got.Paid != 200 || got.Remaining != 300 {
		t.Fatalf("unexpected breakdown after allocations: %+v", got)
	}
	if calc.IsFullyPaid(ref) {
		t.Fatalf("item with remaining 300 is not fully paid")
	}
}

// Once the store marks an item Paid, the ledger no longer matters.
func TestRemainingShortCircuitsOnPaidStatus(t *testing.T) {
	ref := ticketRef(1)
	quotes := stubQuotes{ref: {Price: 500, Status: domain.StatusPaid}}
	ledger := NewLedger()
	entry := ledger.Ensure(ref)
	entry.Slots = append(entry.Slots, &models.InstrumentSlot{ID: "a", Kind: models.KindCredit, Amount: 50, Committed: true})

	calc := Calculator{Quotes: quotes, Ledger: ledger}
	got := calc.Remaining(ref)
	if got.Total != 500 || got.Paid != 500 || got.Remaining != 0 {
		t.Fatalf("paid status must short-circuit, got %+v", got)
	}
	if !calc.IsFullyPaid(ref) {
		t.Fatalf("externally paid item must report fully paid")
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	ref := ticketRef(2)
	quotes := stubQuotes{ref: {Price: 100, Status: domain.StatusUnpaid}}
	ledger := NewLedger()
	entry := ledger.Ensure(ref)
	entry.Slots = append(entry.Slots, &models.InstrumentSlot{ID: "a", Kind: models.KindCredit, Amount: 150, Committed: true})

	calc := Calculator{Quotes: quotes, Ledger: ledger}
	if got := calc.Remaining(ref).Remaining; got != 0 {
		t.Fatalf("remaining must clamp at zero, got %v", got)
	}
}

func TestRemainingUnknownItemReadsZero(t *testing.T) {
	calc := Calculator{Quotes: stubQuotes{}, Ledger: NewLedger()}
	got := calc.Remaining(ticketRef(9))
	if got.Total != 0 || got.Paid != 0 || got.Remaining != 0 {
		t.Fatalf("unknown item should read as zero, got %+v", got)
	}
}
