package payment

import (
	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
)

// SelectionSource exposes which items are currently selected for payment.
// Owned by the checkout session; read-only here.
type SelectionSource interface {
	SelectedItems() []domain.ItemRef
}

// Propagator replicates a configured instrument from one item onto other
// eligible items. Adds go through the Editor so per-item limits still hold.
type Propagator struct {
	Editor    *Editor
	Selection SelectionSource
}

// Copy fans the source item's instrument of the given kind out to targets.
// A nil target list means every selected item. Eligible targets are
// selected, not fully paid and not the literal source item; targets already
// at their limits are silently skipped. Each target receives the source's
// non-monetary fields with the amount set to the target's own remaining.
// Returns how many targets received at least one instrument.
func (p Propagator) Copy(source domain.ItemRef, kind models.InstrumentKind, targets []domain.ItemRef) int {
	srcAlloc := p.Editor.Ledger.Allocation(source)
	if srcAlloc == nil {
		return 0
	}
	srcSlots := srcAlloc.SlotsOfKind(kind)
	if len(srcSlots) == 0 {
		return 0
	}

	selected := map[domain.ItemRef]bool{}
	for _, ref := range p.Selection.SelectedItems() {
		selected[ref] = true
	}
	if targets == nil {
		targets = p.Selection.SelectedItems()
	}

	calc := p.Editor.calc()
	copied := 0
	for _, target := range targets {
		if target == source || !selected[target] {
			continue
		}
		if calc.IsFullyPaid(target) {
			continue
		}
		if p.copyOnto(target, kind, srcSlots) {
			copied++
		}
	}
	return copied
}

func (p Propagator) copyOnto(target domain.ItemRef, kind models.InstrumentKind, srcSlots []*models.InstrumentSlot) bool {
	placed := false
	for i, src := range srcSlots {
		slot, ok := p.Editor.Add(target, kind)
		if !ok {
			break
		}
		cloneDetails(slot, src)

		if i == 0 {
			// first slot takes the target's own remaining, which Add
			// already seeded into the draft
			if _, err := p.Editor.Commit(target, slot.ID); err != nil {
				return placed
			}
		} else {
			// extra voucher slots propagate as zero-amount placeholders.
			// TODO: product has not decided whether extras should split the
			// remaining instead; keep placeholders until that call is made.
			p.Editor.placehold(target, slot)
		}
		placed = true
	}
	return placed
}

func cloneDetails(dst, src *models.InstrumentSlot) {
	switch {
	case src.Credit != nil:
		c := *src.Credit
		dst.Credit = &c
	case src.Voucher != nil:
		v := *src.Voucher
		dst.Voucher = &v
	case src.Points != nil:
		pt := *src.Points
		pt.PointsToUse = 0
		pt.MemberBalance = nil
		dst.Points = &pt
	}
}

// EligibleTargets lists the items a copy from source could land on. Useful
// for the UI layer to preview the fan-out.
func (p Propagator) EligibleTargets(source domain.ItemRef) []domain.ItemRef {
	calc := p.Editor.calc()
	out := []domain.ItemRef{}
	for _, ref := range p.Selection.SelectedItems() {
		if ref == source || calc.IsFullyPaid(ref) {
			continue
		}
		out = append(out, ref)
	}
	return out
}
