package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
	"paydesk/internal/payment"
	"paydesk/internal/utils"
)

// ReservationStore is the slice of the reservation record store the
// checkout flow needs.
type ReservationStore interface {
	GetByCode(code string) (models.Reservation, error)
	Quote(ref domain.ItemRef) (domain.ItemQuote, error)
	MarkItemPaid(ref domain.ItemRef, serial string) error
	SaveSnapshot(code string, payload []byte) error
}

// CheckoutManager owns one session per reservation code and the
// process-wide voucher balance pool shared across all of them.
type CheckoutManager struct {
	Store     ReservationStore
	Balances  payment.BalanceFetcher
	SaveDelay time.Duration

	mu       sync.Mutex
	pool     *payment.VoucherPool
	sessions map[string]*CheckoutSession
}

func NewCheckoutManager(store ReservationStore, balances payment.BalanceFetcher, saveDelay time.Duration) *CheckoutManager {
	if saveDelay <= 0 {
		saveDelay = 1500 * time.Millisecond
	}
	return &CheckoutManager{
		Store:     store,
		Balances:  balances,
		SaveDelay: saveDelay,
		pool:      payment.NewVoucherPool(balances),
		sessions:  map[string]*CheckoutSession{},
	}
}

// Pool exposes the shared voucher pool (display reads).
func (m *CheckoutManager) Pool() *payment.VoucherPool {
	return m.pool
}

// Session returns the checkout session for a reservation, loading the
// reservation record on first use.
func (m *CheckoutManager) Session(code string) (*CheckoutSession, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ValidationError{Field: "code", Msg: "reservation code is empty"}
	}

	m.mu.Lock()
	if s, ok := m.sessions[code]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	res, err := m.Store.GetByCode(code)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[code]; ok {
		return s, nil
	}
	ledger := payment.NewLedger()
	s := &CheckoutSession{
		Code:        code,
		manager:     m,
		reservation: res,
		ledger:      ledger,
		editor:      payment.NewEditor(ledger, m.pool, m.Store),
		selection:   map[domain.ItemRef]bool{},
	}
	m.sessions[code] = s
	return s, nil
}

// CheckoutSession holds the mutable allocation state of one reservation:
// selection set, allocation ledger and the editor driving both.
type CheckoutSession struct {
	Code string

	mu          sync.Mutex
	manager     *CheckoutManager
	reservation models.Reservation
	ledger      *payment.Ledger
	editor      *payment.Editor
	selection   map[domain.ItemRef]bool
	saveTimer   *time.Timer
}

// IssuedItem is one finalized line item with its generated serial.
type IssuedItem struct {
	Ref    domain.ItemRef `json:"ref"`
	Serial string         `json:"serial"`
}

// ItemView is the read model handed to the presentation layer.
// Incomplete lists the ids of slots still missing required fields.
type ItemView struct {
	Ref        domain.ItemRef           `json:"ref"`
	Selected   bool                     `json:"selected"`
	Breakdown  payment.Breakdown        `json:"breakdown"`
	Slots      []*models.InstrumentSlot `json:"slots"`
	Incomplete []string                 `json:"incomplete,omitempty"`
}

func (s *CheckoutSession) calc() payment.Calculator {
	return payment.Calculator{Quotes: s.manager.Store, Ledger: s.ledger}
}

// SelectedItems implements payment.SelectionSource. Sorted for stable
// copy fan-out order.
func (s *CheckoutSession) SelectedItems() []domain.ItemRef {
	out := make([]domain.ItemRef, 0, len(s.selection))
	for ref := range s.selection {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PassengerID != out[j].PassengerID {
			return out[i].PassengerID < out[j].PassengerID
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// SelectItem marks an item as selected for payment.
func (s *CheckoutSession) SelectItem(ref domain.ItemRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservation.Item(ref); !ok {
		return domain.NotFoundError{Resource: "reservation item"}
	}
	s.selection[ref] = true
	s.scheduleSave()
	return nil
}

// DeselectItem clears the selection and drops the item's ledger entry,
// releasing any voucher usage it held.
func (s *CheckoutSession) DeselectItem(ref domain.ItemRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.selection, ref)
	s.editor.Deselect(ref)
	s.scheduleSave()
}

// AddInstrument attaches a new instrument through the editor. Limit
// violations are silent no-ops and return ok=false.
func (s *CheckoutSession) AddInstrument(ref domain.ItemRef, kind models.InstrumentKind) (*models.InstrumentSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selection[ref] {
		return nil, false
	}
	slot, ok := s.editor.Add(ref, kind)
	if ok {
		s.scheduleSave()
	}
	return slot, ok
}

func (s *CheckoutSession) EditField(ref domain.ItemRef, slotID, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.EditField(ref, slotID, field, value); err != nil {
		return err
	}
	s.scheduleSave()
	return nil
}

func (s *CheckoutSession) EditAmount(ref domain.ItemRef, slotID, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.EditAmount(ref, slotID, raw); err != nil {
		return err
	}
	s.scheduleSave()
	return nil
}

func (s *CheckoutSession) CommitInstrument(ref domain.ItemRef, slotID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.editor.Commit(ref, slotID)
	if err != nil {
		return 0, err
	}
	s.scheduleSave()
	return amount, nil
}

func (s *CheckoutSession) RemoveInstrument(ref domain.ItemRef, slotID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.editor.Remove(ref, slotID)
	if ok {
		s.scheduleSave()
	}
	return ok
}

// Copy fans an instrument configuration out to other eligible items.
func (s *CheckoutSession) Copy(source domain.ItemRef, kind models.InstrumentKind, targets []domain.ItemRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prop := payment.Propagator{Editor: s.editor, Selection: s}
	n := prop.Copy(source, kind, targets)
	if n > 0 {
		s.scheduleSave()
	}
	return n
}

// CheckVoucherBalance seeds the shared pool from the external authority.
func (s *CheckoutSession) CheckVoucherBalance(ctx context.Context, number string) error {
	return s.manager.pool.CheckBalance(ctx, number)
}

// Remaining derives the breakdown for one item.
func (s *CheckoutSession) Remaining(ref domain.ItemRef) payment.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calc().Remaining(ref)
}

// Summary lists every item of the reservation with selection state,
// breakdown and attached instruments.
func (s *CheckoutSession) Summary() []ItemView {
	s.mu.Lock()
	defer s.mu.Unlock()

	calc := s.calc()
	out := make([]ItemView, 0, len(s.reservation.Items))
	for _, it := range s.reservation.Items {
		ref := domain.ItemRef{PassengerID: it.PassengerID, Type: it.Type}
		view := ItemView{
			Ref:       ref,
			Selected:  s.selection[ref],
			Breakdown: calc.Remaining(ref),
		}
		if alloc := s.ledger.Allocation(ref); alloc != nil {
			view.Slots = alloc.Slots
			for _, slot := range alloc.Slots {
				if !payment.IsComplete(slot) {
					view.Incomplete = append(view.Incomplete, slot.ID)
				}
			}
		}
		out = append(out, view)
	}
	return out
}

// Finalize verifies every selected item is fully paid, then marks them paid
// in the store and issues serials. Blocks with a ValidationError otherwise.
func (s *CheckoutSession) Finalize(requestID string) ([]IssuedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	calc := s.calc()
	selected := s.SelectedItems()
	if len(selected) == 0 {
		return nil, domain.ValidationError{Field: "selection", Msg: "no items selected"}
	}
	for _, ref := range selected {
		if !calc.IsFullyPaid(ref) {
			return nil, domain.ValidationError{
				Field: "payment",
				Msg:   ref.String() + " is not fully paid",
			}
		}
	}

	issued := make([]IssuedItem, 0, len(selected))
	for _, ref := range selected {
		serial := utils.GenerateSerial(serialPrefix(ref.Type), 13)
		if err := s.manager.Store.MarkItemPaid(ref, serial); err != nil {
			return issued, err
		}
		issued = append(issued, IssuedItem{Ref: ref, Serial: serial})
		utils.LogEvent(requestID, "checkout", "finalize", "issued "+ref.String())
	}

	// refresh the local record so Paid statuses short-circuit from now on
	if res, err := s.manager.Store.GetByCode(s.Code); err == nil {
		s.reservation = res
	}
	s.scheduleSave()
	return issued, nil
}

func serialPrefix(t domain.ItemType) string {
	switch t {
	case domain.ItemTicket:
		return "TKT"
	case domain.ItemUATPVoucher:
		return "UTP"
	default:
		return "ANC"
	}
}

// sessionSnapshot is the persisted shape of a session. Last write wins on
// the store side; a crash loses only the unsent delta.
type sessionSnapshot struct {
	Code      string           `json:"code"`
	Selection []domain.ItemRef `json:"selection"`
	Entries   []snapshotEntry  `json:"entries"`
	SavedAt   time.Time        `json:"saved_at"`
}

type snapshotEntry struct {
	Ref   domain.ItemRef           `json:"ref"`
	Slots []*models.InstrumentSlot `json:"slots"`
}

// scheduleSave coalesces persistence behind a quiescence window. Callers
// hold s.mu.
func (s *CheckoutSession) scheduleSave() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.manager.SaveDelay, s.persist)
}

// persist writes the snapshot fire-and-forget; failures are logged, never
// surfaced, and the next edit reschedules another write.
func (s *CheckoutSession) persist() {
	s.mu.Lock()
	snap := sessionSnapshot{
		Code:      s.Code,
		Selection: s.SelectedItems(),
		SavedAt:   time.Now().UTC(),
	}
	for _, ref := range s.ledger.Items() {
		if alloc := s.ledger.Allocation(ref); alloc != nil {
			snap.Entries = append(snap.Entries, snapshotEntry{Ref: ref, Slots: alloc.Slots})
		}
	}
	payload, err := json.Marshal(snap)
	s.mu.Unlock()
	if err != nil {
		utils.LogEvent("", "checkout", "persist", "marshal failed: "+err.Error())
		return
	}

	if err := s.manager.Store.SaveSnapshot(s.Code, payload); err != nil {
		utils.LogEvent("", "checkout", "persist", "save failed: "+err.Error())
	}
}
