package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

const reservationColumns = "id, user_id, store_id, partner_id, reservation_time, status, confirmation_code, reviewed, created_at, updated_at"

// ReservationRepo persists reservations.  Mutations of an existing
// reservation happen inside a transaction that first locks the row with one
// of the *ForUpdateTx readers, so two concurrent transitions on the same
// reservation serialize on the row lock and the second one sees the first
// one's status.
type ReservationRepo struct {
	db *sql.DB
	x  *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{db: db, x: sqlx.NewDb(db, "mysql")}
}

// DB exposes the handle used to begin transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// reservationRow mirrors the reservations table.  A missing confirmation
// code is NULL in storage and "" in the model.
type reservationRow struct {
	ID               uint64         `db:"id"`
	UserID           uint64         `db:"user_id"`
	StoreID          uint64         `db:"store_id"`
	PartnerID        uint64         `db:"partner_id"`
	ReservationTime  time.Time      `db:"reservation_time"`
	Status           string         `db:"status"`
	ConfirmationCode sql.NullString `db:"confirmation_code"`
	Reviewed         bool           `db:"reviewed"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row reservationRow) model() model.Reservation {
	return model.Reservation{
		ID:               row.ID,
		UserID:           row.UserID,
		StoreID:          row.StoreID,
		PartnerID:        row.PartnerID,
		ReservationTime:  row.ReservationTime,
		Status:           model.ReservationStatus(row.Status),
		ConfirmationCode: row.ConfirmationCode.String,
		Reviewed:         row.Reviewed,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var rr reservationRow
	err := row.Scan(&rr.ID, &rr.UserID, &rr.StoreID, &rr.PartnerID, &rr.ReservationTime,
		&rr.Status, &rr.ConfirmationCode, &rr.Reviewed, &rr.CreatedAt, &rr.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	return rr.model(), nil
}

func nullableCode(code string) sql.NullString {
	return sql.NullString{String: code, Valid: code != ""}
}

// Create inserts a new reservation and populates its generated ID.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(user_id, store_id, partner_id, reservation_time, status, confirmation_code, reviewed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		res.UserID, res.StoreID, res.PartnerID, res.ReservationTime, string(res.Status),
		nullableCode(res.ConfirmationCode), res.Reviewed, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns sql.ErrNoRows when the reservation does not exist.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
}

// GetForUpdateTx reads a reservation and locks its row for the rest of tx.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ? FOR UPDATE", id))
}

// GetByCodeForUpdateTx finds the reservation carrying code among the
// partner's stores and locks it.
func (r *ReservationRepo) GetByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, partnerID uint64, code string) (model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE partner_id = ? AND confirmation_code = ? FOR UPDATE",
		partnerID, code))
}

// CodeExistsTx reports whether code is already issued within the partner's
// reservations.
func (r *ReservationRepo) CodeExistsTx(ctx context.Context, tx *sql.Tx, partnerID uint64, code string) (bool, error) {
	var ok bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reservations WHERE partner_id = ? AND confirmation_code = ?)",
		partnerID, code).Scan(&ok)
	return ok, err
}

// UpdateTx writes the mutable fields of a locked reservation.  A confirmation
// code already used by the same partner yields ErrDuplicate; MySQL rolls
// back only the failed statement, so the caller may retry inside tx.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
	const q = `UPDATE reservations
		SET reservation_time = ?, status = ?, confirmation_code = ?, reviewed = ?, updated_at = ?
		WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		res.ReservationTime, string(res.Status), nullableCode(res.ConfirmationCode),
		res.Reviewed, res.UpdatedAt, res.ID)
	return classify(err)
}

// MarkOverdue moves every PENDING or APPROVED reservation whose time is
// before threshold to OVERDUE in one statement and returns the row count.
func (r *ReservationRepo) MarkOverdue(ctx context.Context, threshold, now time.Time) (int64, error) {
	const q = `UPDATE reservations
		SET status = 'OVERDUE', updated_at = ?
		WHERE status IN ('PENDING', 'APPROVED') AND reservation_time < ?`
	res, err := r.db.ExecContext(ctx, q, now, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
