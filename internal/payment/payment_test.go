package payment

import (
	"context"
	"errors"

	"paydesk/internal/domain"
)

// stubQuotes is an in-memory QuoteSource for tests.
type stubQuotes map[domain.ItemRef]domain.ItemQuote

func (s stubQuotes) Quote(ref domain.ItemRef) (domain.ItemQuote, error) {
	q, ok := s[ref]
	if !ok {
		return domain.ItemQuote{}, domain.NotFoundError{Resource: "reservation item"}
	}
	return q, nil
}

// stubBalances maps normalized voucher numbers to balances.
type stubBalances map[string]float64

func (s stubBalances) FetchBalance(_ context.Context, number string) (float64, error) {
	b, ok := s[NormalizeVoucherNumber(number)]
	if !ok {
		return 0, errors.New("balance service down")
	}
	return b, nil
}

// stubSelection is a fixed selection set.
type stubSelection []domain.ItemRef

func (s stubSelection) SelectedItems() []domain.ItemRef { return s }

func ticketRef(passengerID int64) domain.ItemRef {
	return domain.ItemRef{PassengerID: passengerID, Type: domain.ItemTicket}
}

func bagRef(passengerID int64) domain.ItemRef {
	return domain.ItemRef{PassengerID: passengerID, Type: domain.ItemBag}
}
