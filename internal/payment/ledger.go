package payment

import (
	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
	"paydesk/internal/utils"
)

// Ledger is the per-item record of attached instruments and their amounts.
// Entries are created lazily on the first add and dropped when the item is
// deselected.
type Ledger struct {
	entries map[domain.ItemRef]*models.ItemAllocation
}

func NewLedger() *Ledger {
	return &Ledger{entries: map[domain.ItemRef]*models.ItemAllocation{}}
}

// Allocation returns the entry for ref, or nil when nothing is attached.
func (l *Ledger) Allocation(ref domain.ItemRef) *models.ItemAllocation {
	return l.entries[ref]
}

func (l *Ledger) Ensure(ref domain.ItemRef) *models.ItemAllocation {
	if a, ok := l.entries[ref]; ok {
		return a
	}
	a := &models.ItemAllocation{}
	l.entries[ref] = a
	return a
}

// Drop removes the whole entry, e.g. when the item is deselected.
func (l *Ledger) Drop(ref domain.ItemRef) {
	delete(l.entries, ref)
}

// TotalAllocated sums every slot amount attached to ref.
func (l *Ledger) TotalAllocated(ref domain.ItemRef) float64 {
	return l.entries[ref].Total()
}

// VoucherUsage is the live aggregate of every voucher amount across every
// item referencing the given number. This is the authoritative usage read;
// the pool's cached scalar is display-only.
func (l *Ledger) VoucherUsage(number string) float64 {
	key := utils.DigitsOnly(number)
	if key == "" {
		return 0
	}
	var sum float64
	for _, a := range l.entries {
		for _, s := range a.Slots {
			if s.Kind == models.KindVoucher && s.Voucher != nil && utils.DigitsOnly(s.Voucher.Number) == key {
				sum += s.Amount
			}
		}
	}
	return sum
}

// Items lists every ref that currently has an entry.
func (l *Ledger) Items() []domain.ItemRef {
	out := make([]domain.ItemRef, 0, len(l.entries))
	for ref := range l.entries {
		out = append(out, ref)
	}
	return out
}

// VoucherNumbers collects the distinct normalized voucher numbers on ref.
func (l *Ledger) VoucherNumbers(ref domain.ItemRef) []string {
	a := l.entries[ref]
	if a == nil {
		return nil
	}
	seen := map[string]bool{}
	out := []string{}
	for _, s := range a.Slots {
		if s.Kind != models.KindVoucher || s.Voucher == nil {
			continue
		}
		key := utils.DigitsOnly(s.Voucher.Number)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
