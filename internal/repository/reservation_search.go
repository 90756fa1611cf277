package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ReservationFilter selects reservations for the list views.  Zero values
// mean "no constraint"; From/To bound reservation_time as [From, To).
type ReservationFilter struct {
	StoreID  uint64
	UserID   uint64
	From     time.Time
	To       time.Time
	Statuses []model.ReservationStatus
	Page
}

// Search returns one page of matching reservations ordered by time, and the
// total number of matches.
func (r *ReservationRepo) Search(ctx context.Context, f ReservationFilter) ([]model.Reservation, int64, error) {
	where := []string{}
	args := []any{}

	if f.StoreID != 0 {
		where = append(where, "store_id = ?")
		args = append(args, f.StoreID)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if !f.From.IsZero() {
		where = append(where, "reservation_time >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "reservation_time < ?")
		args = append(args, f.To)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.x.GetContext(ctx, &total, "SELECT COUNT(*) FROM reservations WHERE "+cond, args...); err != nil {
		return nil, 0, err
	}

	p := f.Page.Normalize()
	dataSQL := "SELECT " + reservationColumns + " FROM reservations WHERE " + cond +
		" ORDER BY reservation_time ASC, id ASC LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), p.PageSize, p.Offset())

	var rows []reservationRow
	if err := r.x.SelectContext(ctx, &rows, dataSQL, argsData...); err != nil {
		return nil, 0, err
	}
	out := make([]model.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, total, nil
}
