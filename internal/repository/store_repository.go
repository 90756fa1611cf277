package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

const storeColumns = "id, partner_id, name, location, description, rating, reviews, created_at, updated_at"

// StoreRepo persists stores and their rating aggregate.
type StoreRepo struct {
	db *sql.DB
	x  *sqlx.DB
}

func NewStoreRepo(db *sql.DB) *StoreRepo {
	return &StoreRepo{db: db, x: sqlx.NewDb(db, "mysql")}
}

// DB exposes the handle used to begin transactions.
func (r *StoreRepo) DB() *sql.DB { return r.db }

type storeRow struct {
	ID          uint64    `db:"id"`
	PartnerID   uint64    `db:"partner_id"`
	Name        string    `db:"name"`
	Location    string    `db:"location"`
	Description string    `db:"description"`
	Rating      float64   `db:"rating"`
	Reviews     int       `db:"reviews"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (s storeRow) model() model.Store { return model.Store(s) }

func scanStore(row interface{ Scan(...any) error }) (model.Store, error) {
	var s model.Store
	err := row.Scan(&s.ID, &s.PartnerID, &s.Name, &s.Location, &s.Description,
		&s.Rating, &s.Reviews, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a store with an empty rating aggregate and fills in its ID.
func (r *StoreRepo) Create(ctx context.Context, s *model.Store) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO stores (partner_id, name, location, description, rating, reviews, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		s.PartnerID, s.Name, s.Location, s.Description, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Rating, s.Reviews = 0, 0
	return nil
}

// GetByID returns sql.ErrNoRows when the store does not exist.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (model.Store, error) {
	return scanStore(r.db.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores WHERE id = ?", id))
}

// GetForUpdateTx reads the store and holds its row lock until the
// transaction ends.  Rating aggregate writers go through this.
func (r *StoreRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Store, error) {
	return scanStore(tx.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores WHERE id = ? FOR UPDATE", id))
}

// ExistsByName reports whether a store already uses the name.
func (r *StoreRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM stores WHERE name = ?)", name).Scan(&ok)
	return ok, err
}

// UpdateDetails writes the partner-editable fields.
func (r *StoreRepo) UpdateDetails(ctx context.Context, s model.Store) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE stores SET name = ?, location = ?, description = ?, updated_at = ? WHERE id = ?",
		s.Name, s.Location, s.Description, s.UpdatedAt, s.ID)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

// UpdateRatingTx stores a new aggregate.  The caller must hold the row lock
// from GetForUpdateTx.
func (r *StoreRepo) UpdateRatingTx(ctx context.Context, tx *sql.Tx, id uint64, rating float64, reviews int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE stores SET rating = ?, reviews = ? WHERE id = ?", rating, reviews, id)
	return err
}

// Delete removes a store.  Reservations referencing it yield ErrConflict.
func (r *StoreRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM stores WHERE id = ?", id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

// StoreListQuery filters the public store listing.
type StoreListQuery struct {
	MinRating float64
	SortBy    string // "rating" (default) or "reviews"
	Page
}

// List returns stores with rating >= MinRating, best first.
func (r *StoreRepo) List(ctx context.Context, q StoreListQuery) ([]model.Store, int64, error) {
	p := q.Page.Normalize()
	order := "rating DESC, reviews DESC"
	if q.SortBy == "reviews" {
		order = "reviews DESC, rating DESC"
	}

	var total int64
	if err := r.x.GetContext(ctx, &total, "SELECT COUNT(*) FROM stores WHERE rating >= ?", q.MinRating); err != nil {
		return nil, 0, err
	}

	var rows []storeRow
	err := r.x.SelectContext(ctx, &rows,
		"SELECT "+storeColumns+" FROM stores WHERE rating >= ? ORDER BY "+order+", id ASC LIMIT ? OFFSET ?",
		q.MinRating, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Store, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, total, nil
}
