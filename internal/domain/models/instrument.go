package models

// InstrumentKind tags the payment method attached to an item.
type InstrumentKind string

const (
	KindCredit  InstrumentKind = "credit"
	KindVoucher InstrumentKind = "voucher"
	KindPoints  InstrumentKind = "points"
)

// Per-item limits. Never more than 3 instruments total.
const (
	MaxCreditPerItem  = 1
	MaxVoucherPerItem = 2
	MaxPointsPerItem  = 1
	MaxSlotsPerItem   = 3
)

// PointsPerUnit converts a currency amount into loyalty points to burn.
const PointsPerUnit = 50

// CreditDetails holds the card fields of a credit slot.
type CreditDetails struct {
	CardNumber   string `json:"cardNumber"`
	HolderName   string `json:"holderName"`
	Expiry       string `json:"expiry"`
	CVV          string `json:"cvv"`
	IDNumber     string `json:"idNumber"`
	Installments int    `json:"installments"`
}

// VoucherDetails holds the voucher fields of a voucher slot.
type VoucherDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
}

// PointsDetails holds the loyalty fields of a points slot.
// MemberBalance stays nil until a balance check has run.
type PointsDetails struct {
	MemberNumber   string `json:"memberNumber"`
	AwardReference string `json:"awardReference"`
	PointsToUse    int64  `json:"pointsToUse"`
	MemberBalance  *int64 `json:"memberBalance,omitempty"`
}

// InstrumentSlot is one configured payment method on one item.
// ID is assigned once at add time and addresses the slot from then on;
// voucher slots keep their slice order for display.
type InstrumentSlot struct {
	ID        string         `json:"id"`
	Kind      InstrumentKind `json:"kind"`
	Amount    float64        `json:"amount"`
	Committed bool           `json:"committed"`
	// Draft is the raw amount text while the slot is open for editing.
	Draft string `json:"-"`

	Credit  *CreditDetails  `json:"credit,omitempty"`
	Voucher *VoucherDetails `json:"voucher,omitempty"`
	Points  *PointsDetails  `json:"points,omitempty"`
}

// ItemAllocation is the ledger entry of one item: every attached slot in
// the order it was added.
type ItemAllocation struct {
	Slots []*InstrumentSlot `json:"slots"`
}

func (a *ItemAllocation) CountKind(kind InstrumentKind) int {
	n := 0
	for _, s := range a.Slots {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func (a *ItemAllocation) FindSlot(id string) *InstrumentSlot {
	for _, s := range a.Slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// RemoveSlot deletes a slot by id, compacting the slice. Freed capacity is
// never redistributed to the remaining slots.
func (a *ItemAllocation) RemoveSlot(id string) bool {
	for i, s := range a.Slots {
		if s.ID == id {
			a.Slots = append(a.Slots[:i], a.Slots[i+1:]...)
			return true
		}
	}
	return false
}

func (a *ItemAllocation) SlotsOfKind(kind InstrumentKind) []*InstrumentSlot {
	out := []*InstrumentSlot{}
	for _, s := range a.Slots {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Total sums every slot amount; nil-safe so callers can pass absent entries.
func (a *ItemAllocation) Total() float64 {
	if a == nil {
		return 0
	}
	var sum float64
	for _, s := range a.Slots {
		sum += s.Amount
	}
	return sum
}

// CanAdd reports whether one more slot of kind fits the per-item limits.
func (a *ItemAllocation) CanAdd(kind InstrumentKind) bool {
	if a == nil {
		return true
	}
	if len(a.Slots) >= MaxSlotsPerItem {
		return false
	}
	switch kind {
	case KindCredit:
		return a.CountKind(KindCredit) < MaxCreditPerItem
	case KindVoucher:
		return a.CountKind(KindVoucher) < MaxVoucherPerItem
	case KindPoints:
		return a.CountKind(KindPoints) < MaxPointsPerItem
	default:
		return false
	}
}
