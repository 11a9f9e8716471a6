package domain

import "strconv"

// ItemType identifies one purchasable line item on a reservation.
type ItemType string

const (
	ItemTicket      ItemType = "ticket"
	ItemSeat        ItemType = "seat"
	ItemBag         ItemType = "bag"
	ItemSecondBag   ItemType = "secondBag"
	ItemThirdBag    ItemType = "thirdBag"
	ItemUATPVoucher ItemType = "uatpVoucherProduct"
)

// KnownItemTypes lists every item type in display order.
var KnownItemTypes = []ItemType{
	ItemTicket, ItemSeat, ItemBag, ItemSecondBag, ItemThirdBag, ItemUATPVoucher,
}

func (t ItemType) Valid() bool {
	for _, k := range KnownItemTypes {
		if t == k {
			return true
		}
	}
	return false
}

// ItemRef is the composite key of a line item: one passenger, one item type.
type ItemRef struct {
	PassengerID int64    `json:"passengerId"`
	Type        ItemType `json:"itemType"`
}

func (r ItemRef) String() string {
	return string(r.Type) + "#" + strconv.FormatInt(r.PassengerID, 10)
}

// PayStatus is the authoritative payment status held by the reservation store.
type PayStatus string

const (
	StatusPaid   PayStatus = "Paid"
	StatusUnpaid PayStatus = "Unpaid"
)

// ItemQuote is the read-only view the reservation store supplies per item.
// Price is never mutated here; Status short-circuits remaining().
type ItemQuote struct {
	Price  float64   `json:"price"`
	Status PayStatus `json:"status"`
}
