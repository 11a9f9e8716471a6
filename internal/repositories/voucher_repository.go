package repositories

import (
	"context"
	"database/sql"
	"errors"

	intconfig "paydesk/internal/config"
	"paydesk/internal/domain"
	"paydesk/internal/utils"
)

// VoucherBalanceRepository is the external authority for voucher initial
// balances. Implements payment.BalanceFetcher.
type VoucherBalanceRepository struct {
	DB *sql.DB
}

func (r VoucherBalanceRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r VoucherBalanceRepository) FetchBalance(ctx context.Context, number string) (float64, error) {
	key := utils.DigitsOnly(number)
	if key == "" {
		return 0, domain.ValidationError{Field: "voucher_number", Msg: "number is empty"}
	}
	db := r.db()
	if db == nil {
		return 0, domain.UnavailableError{Service: "voucher balance"}
	}

	var balance float64
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(balance,0)
		FROM voucher_balances
		WHERE voucher_number=? LIMIT 1`, key).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NotFoundError{Resource: "voucher"}
		}
		return 0, domain.UnavailableError{Service: "voucher balance", Err: err}
	}
	return balance, nil
}
