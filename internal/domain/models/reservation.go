package models

import "paydesk/internal/domain"

// Passenger is one traveller on a reservation.
type Passenger struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

// ReservationItem is one priced line item as the store returns it.
type ReservationItem struct {
	ID          int64            `json:"id"`
	PassengerID int64            `json:"passenger_id"`
	Type        domain.ItemType  `json:"item_type"`
	Price       float64          `json:"price"`
	Status      domain.PayStatus `json:"status"`
	Serial      string           `json:"serial,omitempty"`
}

// Reservation is the whole record: passengers plus their line items.
type Reservation struct {
	ID         int64             `json:"id"`
	Code       string            `json:"code"`
	Passengers []Passenger       `json:"passengers"`
	Items      []ReservationItem `json:"items"`
}

func (r Reservation) Item(ref domain.ItemRef) (ReservationItem, bool) {
	for _, it := range r.Items {
		if it.PassengerID == ref.PassengerID && it.Type == ref.Type {
			return it, true
		}
	}
	return ReservationItem{}, false
}
