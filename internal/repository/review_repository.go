package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

const reviewColumns = "id, user_id, store_id, reservation_id, rating, comment, created_at, updated_at"

// ReviewRepo persists reviews.  Writes take a transaction because every
// review mutation also touches the reservation and the store aggregate.
type ReviewRepo struct {
	db *sql.DB
	x  *sqlx.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db, x: sqlx.NewDb(db, "mysql")}
}

// DB exposes the handle used to begin transactions.
func (r *ReviewRepo) DB() *sql.DB { return r.db }

type reviewRow struct {
	ID            uint64    `db:"id"`
	UserID        uint64    `db:"user_id"`
	StoreID       uint64    `db:"store_id"`
	ReservationID uint64    `db:"reservation_id"`
	Rating        int       `db:"rating"`
	Comment       string    `db:"comment"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func scanReview(row interface{ Scan(...any) error }) (model.Review, error) {
	var v model.Review
	err := row.Scan(&v.ID, &v.UserID, &v.StoreID, &v.ReservationID, &v.Rating,
		&v.Comment, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// CreateTx inserts the review and fills in its ID.  A second review for the
// same reservation yields ErrDuplicate.
func (r *ReviewRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *model.Review) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO reviews (user_id, store_id, reservation_id, rating, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.UserID, v.StoreID, v.ReservationID, v.Rating, v.Comment, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// GetByID returns sql.ErrNoRows when the review does not exist.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id))
}

// GetForUpdateTx reads a review and locks it for the rest of tx.
func (r *ReviewRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Review, error) {
	return scanReview(tx.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE id = ? FOR UPDATE", id))
}

// UpdateTx rewrites rating and comment.
func (r *ReviewRepo) UpdateTx(ctx context.Context, tx *sql.Tx, v model.Review) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?",
		v.Rating, v.Comment, v.UpdatedAt, v.ID)
	return err
}

// DeleteTx removes the review.
func (r *ReviewRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ReviewFilter selects reviews for a store or an author.  A zero MinRating
// or MaxRating leaves that side open.
type ReviewFilter struct {
	StoreID   uint64
	UserID    uint64
	MinRating int
	MaxRating int
	Page
}

// List returns one page of matching reviews, newest first, plus the total.
func (r *ReviewRepo) List(ctx context.Context, f ReviewFilter) ([]model.Review, int64, error) {
	cond := "1=1"
	args := []any{}
	if f.StoreID != 0 {
		cond += " AND store_id = ?"
		args = append(args, f.StoreID)
	}
	if f.UserID != 0 {
		cond += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	if f.MinRating > 0 {
		cond += " AND rating >= ?"
		args = append(args, f.MinRating)
	}
	if f.MaxRating > 0 {
		cond += " AND rating <= ?"
		args = append(args, f.MaxRating)
	}

	var total int64
	if err := r.x.GetContext(ctx, &total, "SELECT COUNT(*) FROM reviews WHERE "+cond, args...); err != nil {
		return nil, 0, err
	}

	p := f.Page.Normalize()
	var rows []reviewRow
	err := r.x.SelectContext(ctx, &rows,
		"SELECT "+reviewColumns+" FROM reviews WHERE "+cond+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, p.PageSize, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Review(row))
	}
	return out, total, nil
}
