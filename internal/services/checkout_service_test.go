package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
)

// fakeStore is an in-memory ReservationStore.
type fakeStore struct {
	mu          sync.Mutex
	reservation models.Reservation
	balances    map[string]float64
	paid        map[domain.ItemRef]string
	snapshots   [][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservation: models.Reservation{
			ID:   7,
			Code: "AB12CD",
			Passengers: []models.Passenger{
				{ID: 1, FullName: "First Traveller"},
				{ID: 2, FullName: "Second Traveller"},
			},
			Items: []models.ReservationItem{
				{ID: 10, PassengerID: 1, Type: domain.ItemTicket, Price: 500, Status: domain.StatusUnpaid},
				{ID: 11, PassengerID: 1, Type: domain.ItemBag, Price: 60, Status: domain.StatusUnpaid},
				{ID: 12, PassengerID: 2, Type: domain.ItemTicket, Price: 500, Status: domain.StatusUnpaid},
			},
		},
		balances: map[string]float64{},
		paid:     map[domain.ItemRef]string{},
	}
}

func (f *fakeStore) GetByCode(code string) (models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code != f.reservation.Code {
		return models.Reservation{}, domain.NotFoundError{Resource: "reservation"}
	}
	return f.reservation, nil
}

func (f *fakeStore) Quote(ref domain.ItemRef) (domain.ItemQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.reservation.Item(ref)
	if !ok {
		return domain.ItemQuote{}, domain.NotFoundError{Resource: "reservation item"}
	}
	return domain.ItemQuote{Price: it.Price, Status: it.Status}, nil
}

func (f *fakeStore) MarkItemPaid(ref domain.ItemRef, serial string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.reservation.Items {
		if it.PassengerID == ref.PassengerID && it.Type == ref.Type {
			f.reservation.Items[i].Status = domain.StatusPaid
			f.reservation.Items[i].Serial = serial
			f.paid[ref] = serial
			return nil
		}
	}
	return domain.NotFoundError{Resource: "reservation item"}
}

func (f *fakeStore) SaveSnapshot(code string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, payload)
	return nil
}

func (f *fakeStore) FetchBalance(_ context.Context, number string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[number]
	if !ok {
		return 0, errors.New("balance lookup failed")
	}
	return b, nil
}

func (f *fakeStore) snapshotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

func (f *fakeStore) lastSnapshot() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return nil
	}
	return f.snapshots[len(f.snapshots)-1]
}

func newTestManager(store *fakeStore, delay time.Duration) *CheckoutManager {
	return NewCheckoutManager(store, store, delay)
}

func TestSessionLoadsOnceAndReuses(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, time.Hour)

	s1, err := m.Session("AB12CD")
	if err != nil {
		t.Fatalf("Session error: %v", err)
	}
	s2, err := m.Session("AB12CD")
	if err != nil {
		t.Fatalf("Session error: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the same session instance")
	}

	if _, err := m.Session("NOPE"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown code, got %v", err)
	}
}

func TestSelectRequiresKnownItem(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, time.Hour)
	s, _ := m.Session("AB12CD")

	ref := domain.ItemRef{PassengerID: 1, Type: domain.ItemTicket}
	if err := s.SelectItem(ref); err != nil {
		t.Fatalf("SelectItem error: %v", err)
	}
	ghost := domain.ItemRef{PassengerID: 9, Type: domain.ItemTicket}
	if err := s.SelectItem(ghost); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown item, got %v", err)
	}

	if _, ok := s.AddInstrument(ghost, models.KindCredit); ok {
		t.Fatalf("unselected item must not accept instruments")
	}
}

func TestDeselectReleasesAllocation(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, time.Hour)
	s, _ := m.Session("AB12CD")

	ref := domain.ItemRef{PassengerID: 1, Type: domain.ItemTicket}
	if err := s.SelectItem(ref); err != nil {
		t.Fatalf("SelectItem error: %v", err)
	}
	slot, ok := s.AddInstrument(ref, models.KindCredit)
	if !ok {
		t.Fatalf("AddInstrument failed")
	}
	if _, err := s.CommitInstrument(ref, slot.ID); err != nil {
		t.Fatalf("CommitInstrument error: %v", err)
	}
	if got := s.Remaining(ref).Remaining; got != 0 {
		t.Fatalf("expected item covered, remaining %v", got)
	}

	s.DeselectItem(ref)
	if got := s.Remaining(ref).Remaining; got != 500 {
		t.Fatalf("deselect must drop the allocation, remaining %v", got)
	}
}

func TestFinalizeBlocksUntilFullyPaid(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, time.Hour)
	s, _ := m.Session("AB12CD")

	ticket := domain.ItemRef{PassengerID: 1, Type: domain.ItemTicket}
	bag := domain.ItemRef{PassengerID: 1, Type: domain.ItemBag}
	if err := s.SelectItem(ticket); err != nil {
		t.Fatalf("SelectItem error: %v", err)
	}
	if err := s.SelectItem(bag); err != nil {
		t.Fatalf("SelectItem error: %v", err)
	}

	slot, _ := s.AddInstrument(ticket, models.KindCredit)
	if _, err := s.CommitInstrument(ticket, slot.ID); err != nil {
		t.Fatalf("CommitInstrument error: %v", err)
	}

	// bag still uncovered
	if _, err := s.Finalize("req-1"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.paid) != 0 {
		t.Fatalf("nothing should be marked paid on a blocked finalize")
	}

	slot, _ = s.AddInstrument(bag, models.KindCredit)
	if _, err := s.CommitInstrument(bag, slot.ID); err != nil {
		t.Fatalf("CommitInstrument error: %v", err)
	}

	issued, err := s.Finalize("req-1")
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(issued) != 2 {
		t.Fatalf("expected 2 issued items, got %d", len(issued))
	}
	for _, is := range issued {
		if is.Serial == "" {
			t.Fatalf("issued item without serial: %+v", is)
		}
		if _, ok := store.paid[is.Ref]; !ok {
			t.Fatalf("item %v not marked paid in store", is.Ref)
		}
	}
	if issued[0].Ref == issued[1].Ref {
		t.Fatalf("duplicate issued refs")
	}

	// statuses refreshed: the items now short-circuit as paid
	if got := s.Remaining(ticket); got.Paid != 500 || got.Remaining != 0 {
		t.Fatalf("expected paid short-circuit after finalize, got %+v", got)
	}
}

func TestFinalizeWithEmptySelection(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, time.Hour)
	s, _ := m.Session("AB12CD")

	if _, err := s.Finalize("req-1"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDebouncedSaveCoalesces(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, 30*time.Millisecond)
	s, _ := m.Session("AB12CD")

	ticket := domain.ItemRef{PassengerID: 1, Type: domain.ItemTicket}
	if err := s.SelectItem(ticket); err != nil {
		t.Fatalf("SelectItem error: %v", err)
	}
	slot, _ := s.AddInstrument(ticket, models.KindCredit)
	if err := s.EditAmount(ticket, slot.ID, "300"); err != nil {
		t.Fatalf("EditAmount error: %v", err)
	}
	if _, err := s.CommitInstrument(ticket, slot.ID); err != nil {
		t.Fatalf("CommitInstrument error: %v", err)
	}

	if n := store.snapshotCount(); n != 0 {
		t.Fatalf("save fired before the quiescence window, count %d", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.snapshotCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := store.snapshotCount(); n != 1 {
		t.Fatalf("expected exactly one coalesced save, got %d", n)
	}

	var snap sessionSnapshot
	if err := json.Unmarshal(store.lastSnapshot(), &snap); err != nil {
		t.Fatalf("snapshot not valid json: %v", err)
	}
	if snap.Code != "AB12CD" || len(snap.Selection) != 1 || len(snap.Entries) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestVoucherPoolSharedAcrossSessions(t *testing.T) {
	store := newFakeStore()
	store.balances["11141234567890123"] = 80
	m := newTestManager(store, time.Hour)
	s, _ := m.Session("AB12CD")

	if err := s.CheckVoucherBalance(context.Background(), "11141234567890123"); err != nil {
		t.Fatalf("CheckVoucherBalance error: %v", err)
	}
	available, known := m.Pool().AvailableNow("11141234567890123")
	if !known || available != 80 {
		t.Fatalf("pool not seeded: %v %v", available, known)
	}

	refA := domain.ItemRef{PassengerID: 1, Type: domain.ItemTicket}
	refB := domain.ItemRef{PassengerID: 2, Type: domain.ItemTicket}
	for _, ref := range []domain.ItemRef{refA, refB} {
		if err := s.SelectItem(ref); err != nil {
			t.Fatalf("SelectItem error: %v", err)
		}
	}

	slotA, _ := s.AddInstrument(refA, models.KindVoucher)
	if err := s.EditField(refA, slotA.ID, "number", "11141234567890123"); err != nil {
		t.Fatalf("EditField error: %v", err)
	}
	if err := s.EditAmount(refA, slotA.ID, "50"); err != nil {
		t.Fatalf("EditAmount error: %v", err)
	}
	if amount, err := s.CommitInstrument(refA, slotA.ID); err != nil || amount != 50 {
		t.Fatalf("commit A: %v %v", amount, err)
	}

	slotB, _ := s.AddInstrument(refB, models.KindVoucher)
	if err := s.EditField(refB, slotB.ID, "number", "11141234567890123"); err != nil {
		t.Fatalf("EditField error: %v", err)
	}
	if err := s.EditAmount(refB, slotB.ID, "50"); err != nil {
		t.Fatalf("EditAmount error: %v", err)
	}
	amount, err := s.CommitInstrument(refB, slotB.ID)
	if err != nil {
		t.Fatalf("commit B: %v", err)
	}
	if amount != 30 {
		t.Fatalf("expected pool headroom cap 30, got %v", amount)
	}
}

func TestSummaryListsEveryItem(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, time.Hour)
	s, _ := m.Session("AB12CD")

	ticket := domain.ItemRef{PassengerID: 1, Type: domain.ItemTicket}
	if err := s.SelectItem(ticket); err != nil {
		t.Fatalf("SelectItem error: %v", err)
	}
	if _, ok := s.AddInstrument(ticket, models.KindCredit); !ok {
		t.Fatalf("AddInstrument failed")
	}

	views := s.Summary()
	if len(views) != 3 {
		t.Fatalf("expected 3 items, got %d", len(views))
	}
	var found bool
	for _, v := range views {
		if v.Ref == ticket {
			found = true
			if !v.Selected || len(v.Slots) != 1 || v.Breakdown.Total != 500 {
				t.Fatalf("unexpected view: %+v", v)
			}
			if len(v.Incomplete) != 1 {
				t.Fatalf("blank credit slot should be flagged incomplete: %+v", v)
			}
		} else if v.Selected {
			t.Fatalf("item %v should not be selected", v.Ref)
		}
	}
	if !found {
		t.Fatalf("ticket view missing")
	}
}
