package payment

import (
	"context"
	"math"
	"sync"

	"paydesk/internal/domain"
	"paydesk/internal/utils"
)

// BalanceFetcher is the external authority for a voucher's initial balance.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, number string) (float64, error)
}

type poolEntry struct {
	initial float64
	// used is a cached aggregate for cheap display reads. The commit-time
	// cap must go through AvailableFor with the live ledger sum instead.
	used float64
}

// VoucherPool is the process-wide balance ledger for voucher numbers reused
// across items and passengers. Keyed by normalized (digits-only) number.
type VoucherPool struct {
	mu      sync.Mutex
	fetcher BalanceFetcher
	entries map[string]*poolEntry
}

func NewVoucherPool(fetcher BalanceFetcher) *VoucherPool {
	return &VoucherPool{
		fetcher: fetcher,
		entries: map[string]*poolEntry{},
	}
}

// NormalizeVoucherNumber reduces a voucher number to its digits.
func NormalizeVoucherNumber(number string) string {
	return utils.DigitsOnly(number)
}

// CheckBalance seeds the pool entry with a one-time external fetch.
// Idempotent for an already-seeded number. On fetch failure the entry stays
// unseeded and availability reads as unknown.
func (p *VoucherPool) CheckBalance(ctx context.Context, number string) error {
	key := NormalizeVoucherNumber(number)
	if key == "" {
		return domain.ValidationError{Field: "voucher_number", Msg: "number is empty"}
	}

	p.mu.Lock()
	if _, ok := p.entries[key]; ok {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if p.fetcher == nil {
		return domain.UnavailableError{Service: "voucher balance"}
	}
	balance, err := p.fetcher.FetchBalance(ctx, key)
	if err != nil {
		return domain.UnavailableError{Service: "voucher balance", Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// a superseding fetch for the same number overwrites the prior result
	p.entries[key] = &poolEntry{initial: math.Max(0, balance)}
	return nil
}

// Seeded reports whether the number has a known initial balance.
func (p *VoucherPool) Seeded(number string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[NormalizeVoucherNumber(number)]
	return ok
}

// AvailableNow is the cheap cached read: initial minus the cached usage
// scalar. ok is false while the balance is unknown. Display only; commits
// must use AvailableFor.
func (p *VoucherPool) AvailableNow(number string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[NormalizeVoucherNumber(number)]
	if !ok {
		return 0, false
	}
	return math.Max(0, e.initial-e.used), true
}

// AvailableFor is the authoritative headroom: initial balance minus the live
// usage the caller recomputed from the full allocation ledger.
func (p *VoucherPool) AvailableFor(number string, liveUsage float64) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[NormalizeVoucherNumber(number)]
	if !ok {
		return 0, false
	}
	return math.Max(0, e.initial-liveUsage), true
}

// RegisterUsage rewrites the cached usage scalar after a commit or removal.
// Callers pass the live aggregate so the cached value cannot drift from the
// ledger between sequential edits.
func (p *VoucherPool) RegisterUsage(number string, liveUsage float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[NormalizeVoucherNumber(number)]
	if !ok {
		return
	}
	e.used = math.Max(0, liveUsage)
}
