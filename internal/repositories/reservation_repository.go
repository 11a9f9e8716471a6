package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "paydesk/internal/config"
	intdb "paydesk/internal/db"
	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
)

// ReservationRepository reads and writes reservation records. Prices are
// read-only for the payment engine; only statuses and serials are written
// back, whole-reservation, last write wins.
type ReservationRepository struct {
	DB *sql.DB
}

func (r ReservationRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// GetByCode loads a reservation with its passengers and line items.
func (r ReservationRepository) GetByCode(code string) (models.Reservation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Reservation{}, domain.ValidationError{Field: "code", Msg: "reservation code is empty"}
	}
	db := r.db()
	if db == nil {
		return models.Reservation{}, domain.InternalError{Msg: "db not initialized"}
	}

	var res models.Reservation
	err := db.QueryRow(`
		SELECT id, COALESCE(code,'')
		FROM reservations
		WHERE code=? LIMIT 1`, code).Scan(&res.ID, &res.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reservation{}, domain.NotFoundError{Resource: "reservation"}
		}
		return models.Reservation{}, domain.InternalError{Err: err}
	}

	rows, err := db.Query(`
		SELECT id, COALESCE(full_name,'')
		FROM passengers
		WHERE reservation_id=?
		ORDER BY id`, res.ID)
	if err != nil {
		return models.Reservation{}, domain.InternalError{Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Passenger
		if err := rows.Scan(&p.ID, &p.FullName); err != nil {
			return models.Reservation{}, domain.InternalError{Err: err}
		}
		res.Passengers = append(res.Passengers, p)
	}
	if err := rows.Err(); err != nil {
		return models.Reservation{}, domain.InternalError{Err: err}
	}

	items, err := db.Query(`
		SELECT i.id, i.passenger_id,
		       COALESCE(i.item_type,''),
		       COALESCE(i.price,0),
		       COALESCE(i.status,'Unpaid'),
		       COALESCE(i.serial,'')
		FROM reservation_items i
		JOIN passengers p ON p.id = i.passenger_id
		WHERE p.reservation_id=?
		ORDER BY i.passenger_id, i.id`, res.ID)
	if err != nil {
		return models.Reservation{}, domain.InternalError{Err: err}
	}
	defer items.Close()
	for items.Next() {
		var it models.ReservationItem
		var typ, status string
		if err := items.Scan(&it.ID, &it.PassengerID, &typ, &it.Price, &status, &it.Serial); err != nil {
			return models.Reservation{}, domain.InternalError{Err: err}
		}
		it.Type = domain.ItemType(typ)
		it.Status = domain.PayStatus(status)
		res.Items = append(res.Items, it)
	}
	if err := items.Err(); err != nil {
		return models.Reservation{}, domain.InternalError{Err: err}
	}

	return res, nil
}

// Quote returns the authoritative price and status of one item.
func (r ReservationRepository) Quote(ref domain.ItemRef) (domain.ItemQuote, error) {
	if ref.PassengerID <= 0 || !ref.Type.Valid() {
		return domain.ItemQuote{}, domain.ValidationError{Field: "item", Msg: "invalid item reference"}
	}
	db := r.db()
	if db == nil {
		return domain.ItemQuote{}, domain.InternalError{Msg: "db not initialized"}
	}

	var quote domain.ItemQuote
	var status string
	err := db.QueryRow(`
		SELECT COALESCE(price,0), COALESCE(status,'Unpaid')
		FROM reservation_items
		WHERE passenger_id=? AND item_type=? LIMIT 1`,
		ref.PassengerID, string(ref.Type)).Scan(&quote.Price, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ItemQuote{}, domain.NotFoundError{Resource: "reservation item"}
		}
		return domain.ItemQuote{}, domain.InternalError{Err: err}
	}
	quote.Status = domain.PayStatus(status)
	return quote, nil
}

// MarkItemPaid flips the item status to Paid and stores its issued serial.
func (r ReservationRepository) MarkItemPaid(ref domain.ItemRef, serial string) error {
	if ref.PassengerID <= 0 || !ref.Type.Valid() {
		return domain.ValidationError{Field: "item", Msg: "invalid item reference"}
	}
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "db not initialized"}
	}

	var (
		result sql.Result
		err    error
	)
	// older schemas predate the serial column
	if intdb.HasColumn(db, "reservation_items", "serial") {
		result, err = db.Exec(`
			UPDATE reservation_items
			SET status='Paid', serial=?
			WHERE passenger_id=? AND item_type=?`,
			intdb.NullIfEmpty(serial), ref.PassengerID, string(ref.Type))
	} else {
		result, err = db.Exec(`
			UPDATE reservation_items
			SET status='Paid'
			WHERE passenger_id=? AND item_type=?`,
			ref.PassengerID, string(ref.Type))
	}
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "reservation item"}
	}
	return nil
}

// SaveSnapshot upserts the session snapshot for a reservation. Fire-and-
// forget from the caller's point of view; last write wins.
func (r ReservationRepository) SaveSnapshot(code string, payload []byte) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ValidationError{Field: "code", Msg: "reservation code is empty"}
	}
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "db not initialized"}
	}
	if !intdb.HasTable(db, "checkout_snapshots") {
		return domain.InternalError{Msg: "table checkout_snapshots missing"}
	}

	_, err := db.Exec(`
		INSERT INTO checkout_snapshots (reservation_code, payload, updated_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE payload=VALUES(payload), updated_at=NOW()`,
		code, payload)
	if err != nil {
		return domain.InternalError{Err: fmt.Errorf("save snapshot: %w", err)}
	}
	return nil
}
