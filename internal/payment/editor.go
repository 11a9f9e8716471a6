package payment

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
	"paydesk/internal/utils"
)

// Editor drives the instrument lifecycle on each item:
// absent -> draft (expanded) -> committed (collapsed).
// At most one slot per item is in draft; adding or expanding a slot saves
// and collapses the others (accordion discipline).
type Editor struct {
	Ledger *Ledger
	Pool   *VoucherPool
	Quotes QuoteSource

	// expanded tracks the single draft slot id per item
	expanded map[domain.ItemRef]string
}

func NewEditor(ledger *Ledger, pool *VoucherPool, quotes QuoteSource) *Editor {
	return &Editor{
		Ledger:   ledger,
		Pool:     pool,
		Quotes:   quotes,
		expanded: map[domain.ItemRef]string{},
	}
}

func (e *Editor) calc() Calculator {
	return Calculator{Quotes: e.Quotes, Ledger: e.Ledger}
}

// ExpandedSlot returns the id of the item's draft slot, if any.
func (e *Editor) ExpandedSlot(ref domain.ItemRef) (string, bool) {
	id, ok := e.expanded[ref]
	return id, ok
}

// Add attaches a new instrument of kind to ref, seeded with the item's
// current remaining amount, and opens it as the draft slot. A limit
// violation is a no-op: the second return is false and nothing changes.
func (e *Editor) Add(ref domain.ItemRef, kind models.InstrumentKind) (*models.InstrumentSlot, bool) {
	alloc := e.Ledger.Allocation(ref)
	if !alloc.CanAdd(kind) {
		return nil, false
	}

	// commit the open draft first so the seed sees the current remaining
	e.collapseAll(ref)
	remaining := e.calc().Remaining(ref).Remaining
	slot := &models.InstrumentSlot{
		ID:     uuid.NewString(),
		Kind:   kind,
		Amount: utils.RoundCents(remaining),
		Draft:  utils.FormatAmount(remaining),
	}
	switch kind {
	case models.KindCredit:
		slot.Credit = &models.CreditDetails{Installments: 1}
	case models.KindVoucher:
		slot.Voucher = &models.VoucherDetails{}
	case models.KindPoints:
		slot.Points = &models.PointsDetails{}
	}

	entry := e.Ledger.Ensure(ref)
	entry.Slots = append(entry.Slots, slot)
	e.expanded[ref] = slot.ID
	return slot, true
}

// Expand reopens a committed slot for editing, collapsing any other draft.
func (e *Editor) Expand(ref domain.ItemRef, slotID string) bool {
	slot := e.slot(ref, slotID)
	if slot == nil {
		return false
	}
	if e.expanded[ref] == slotID {
		return true
	}
	e.collapseAll(ref)
	slot.Committed = false
	slot.Draft = utils.FormatAmount(slot.Amount)
	e.expanded[ref] = slotID
	return true
}

// EditField updates a non-amount field verbatim on the draft slot.
func (e *Editor) EditField(ref domain.ItemRef, slotID, field, value string) error {
	slot := e.slot(ref, slotID)
	if slot == nil {
		return domain.NotFoundError{Resource: "instrument"}
	}
	if !e.Expand(ref, slotID) {
		return domain.NotFoundError{Resource: "instrument"}
	}

	switch slot.Kind {
	case models.KindCredit:
		return editCreditField(slot.Credit, field, value)
	case models.KindVoucher:
		return editVoucherField(slot.Voucher, field, value)
	case models.KindPoints:
		return editPointsField(slot.Points, field, value)
	}
	return domain.ValidationError{Field: "kind", Msg: "unknown instrument kind"}
}

// EditAmount stores the raw draft text without validating against limits;
// the clamp happens at commit. Voucher drafts are the exception: once the
// pool knows the voucher's balance they clamp immediately to the shared
// headroom, so the pool never shows an impossible draft.
func (e *Editor) EditAmount(ref domain.ItemRef, slotID, raw string) error {
	slot := e.slot(ref, slotID)
	if slot == nil {
		return domain.NotFoundError{Resource: "instrument"}
	}
	e.Expand(ref, slotID)

	if slot.Kind != models.KindVoucher || slot.Voucher == nil {
		slot.Draft = raw
		return nil
	}

	v, err := utils.ParseAmount(raw)
	if err != nil {
		slot.Draft = raw
		return nil
	}
	liveOther := e.Ledger.VoucherUsage(slot.Voucher.Number) - slot.Amount
	if headroom, ok := e.Pool.AvailableFor(slot.Voucher.Number, liveOther); ok && v > headroom {
		slot.Draft = utils.FormatAmount(headroom)
	} else {
		slot.Draft = raw
	}
	return nil
}

// Commit clamps the draft amount, stores it and collapses the slot.
// Returns the final amount.
func (e *Editor) Commit(ref domain.ItemRef, slotID string) (float64, error) {
	slot := e.slot(ref, slotID)
	if slot == nil {
		return 0, domain.NotFoundError{Resource: "instrument"}
	}
	if slot.Committed {
		return slot.Amount, nil
	}
	e.commitSlot(ref, slot)
	if e.expanded[ref] == slotID {
		delete(e.expanded, ref)
	}
	return slot.Amount, nil
}

// Remove deletes the slot (compacting voucher order) and clears the draft
// pointer. Freed capacity is not redistributed.
func (e *Editor) Remove(ref domain.ItemRef, slotID string) bool {
	slot := e.slot(ref, slotID)
	if slot == nil {
		return false
	}
	var voucherNumber string
	if slot.Kind == models.KindVoucher && slot.Voucher != nil {
		voucherNumber = slot.Voucher.Number
	}

	alloc := e.Ledger.Allocation(ref)
	if alloc == nil || !alloc.RemoveSlot(slotID) {
		return false
	}
	if e.expanded[ref] == slotID {
		delete(e.expanded, ref)
	}
	if voucherNumber != "" {
		e.Pool.RegisterUsage(voucherNumber, e.Ledger.VoucherUsage(voucherNumber))
	}
	return true
}

// Deselect drops the whole entry for an item and resyncs pool usage for any
// vouchers it carried.
func (e *Editor) Deselect(ref domain.ItemRef) {
	numbers := e.Ledger.VoucherNumbers(ref)
	e.Ledger.Drop(ref)
	delete(e.expanded, ref)
	for _, n := range numbers {
		e.Pool.RegisterUsage(n, e.Ledger.VoucherUsage(n))
	}
}

// placehold stores a slot as a committed zero-amount placeholder, used by
// copy propagation for extra voucher slots.
func (e *Editor) placehold(ref domain.ItemRef, slot *models.InstrumentSlot) {
	slot.Amount = 0
	slot.Draft = ""
	slot.Committed = true
	if e.expanded[ref] == slot.ID {
		delete(e.expanded, ref)
	}
	if slot.Kind == models.KindVoucher && slot.Voucher != nil {
		e.Pool.RegisterUsage(slot.Voucher.Number, e.Ledger.VoucherUsage(slot.Voucher.Number))
	}
}

func (e *Editor) slot(ref domain.ItemRef, slotID string) *models.InstrumentSlot {
	alloc := e.Ledger.Allocation(ref)
	if alloc == nil {
		return nil
	}
	return alloc.FindSlot(slotID)
}

// collapseAll saves and collapses the current draft slot, if any.
func (e *Editor) collapseAll(ref domain.ItemRef) {
	id, ok := e.expanded[ref]
	if !ok {
		return
	}
	if slot := e.slot(ref, id); slot != nil && !slot.Committed {
		e.commitSlot(ref, slot)
	}
	delete(e.expanded, ref)
}

// commitSlot runs the capping algorithm. Identical for all kinds except the
// pool-headroom check injected for vouchers.
func (e *Editor) commitSlot(ref domain.ItemRef, slot *models.InstrumentSlot) {
	quote, err := e.Quotes.Quote(ref)
	if err != nil {
		quote = domain.ItemQuote{}
	}

	raw := strings.TrimSpace(slot.Draft)
	candidate := 1.0
	if v, perr := utils.ParseAmount(raw); perr == nil {
		if v <= 0 {
			candidate = 1
		} else {
			candidate = math.Max(0.01, v)
		}
	}

	currentRemaining := e.calc().RemainingExcluding(ref, slot.Amount)
	limit := currentRemaining
	if currentRemaining <= 0 {
		// degenerate fallback when the item is already fully covered
		if quote.Price > 0 {
			limit = quote.Price
		} else {
			limit = 1
		}
	}
	final := math.Min(candidate, limit)

	if slot.Kind == models.KindVoucher && slot.Voucher != nil {
		liveOther := e.Ledger.VoucherUsage(slot.Voucher.Number) - slot.Amount
		if headroom, ok := e.Pool.AvailableFor(slot.Voucher.Number, liveOther); ok {
			final = math.Min(final, headroom)
		}
	}

	slot.Amount = utils.RoundCents(final)
	slot.Draft = ""
	slot.Committed = true

	if slot.Kind == models.KindPoints && slot.Points != nil {
		slot.Points.PointsToUse = int64(math.Round(slot.Amount * models.PointsPerUnit))
	}

	if slot.Kind == models.KindVoucher && slot.Voucher != nil {
		e.Pool.RegisterUsage(slot.Voucher.Number, e.Ledger.VoucherUsage(slot.Voucher.Number))
	}
}

func editCreditField(c *models.CreditDetails, field, value string) error {
	if c == nil {
		return domain.ValidationError{Field: "credit", Msg: "missing credit record"}
	}
	switch field {
	case "cardNumber":
		c.CardNumber = value
	case "holderName":
		c.HolderName = value
	case "expiry":
		c.Expiry = value
	case "cvv":
		c.CVV = value
	case "idNumber":
		c.IDNumber = value
	case "installments":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			n = 1
		}
		c.Installments = n
	default:
		return domain.ValidationError{Field: field, Msg: "unknown credit field"}
	}
	return nil
}

func editVoucherField(v *models.VoucherDetails, field, value string) error {
	if v == nil {
		return domain.ValidationError{Field: "voucher", Msg: "missing voucher record"}
	}
	switch field {
	case "number":
		v.Number = value
	case "expiry":
		v.Expiry = value
	default:
		return domain.ValidationError{Field: field, Msg: "unknown voucher field"}
	}
	return nil
}

func editPointsField(p *models.PointsDetails, field, value string) error {
	if p == nil {
		return domain.ValidationError{Field: "points", Msg: "missing points record"}
	}
	switch field {
	case "memberNumber":
		p.MemberNumber = value
	case "awardReference":
		p.AwardReference = value
	default:
		return domain.ValidationError{Field: field, Msg: "unknown points field"}
	}
	return nil
}
