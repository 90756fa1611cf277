package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// DateLayout is the calendar-day format accepted by the list views.
const DateLayout = "2006-01-02"

// ReservationQuery is the raw filter a list view receives.  Date selects
// one UTC day, [00:00, next day 00:00).  Empty strings mean no constraint.
type ReservationQuery struct {
	Date   string
	Status string
	Page   repository.Page
}

// ReservationPage is one page of a list view.
type ReservationPage struct {
	Items    []model.Reservation
	Total    int64
	Page     int
	PageSize int
}

func (q ReservationQuery) filter() (repository.ReservationFilter, error) {
	f := repository.ReservationFilter{Page: q.Page.Normalize()}
	if d := strings.TrimSpace(q.Date); d != "" {
		day, err := time.ParseInLocation(DateLayout, d, time.UTC)
		if err != nil {
			return f, kind(ErrInvalidArgument, "date must be YYYY-MM-DD, got %q", q.Date)
		}
		f.From, f.To = day, day.AddDate(0, 0, 1)
	}
	if strings.TrimSpace(q.Status) != "" {
		st, err := model.ParseReservationStatus(q.Status)
		if err != nil {
			return f, kind(ErrInvalidStatus, "unknown status %q", q.Status)
		}
		f.Statuses = []model.ReservationStatus{st}
	}
	return f, nil
}

func (s *ReservationService) search(ctx context.Context, f repository.ReservationFilter) (ReservationPage, error) {
	items, total, err := s.reservations.Search(ctx, f)
	if err != nil {
		return ReservationPage{}, err
	}
	return ReservationPage{Items: items, Total: total, Page: f.Page.Page, PageSize: f.Page.PageSize}, nil
}

// ListForPartner lists a store's reservations for the store's partner.
func (s *ReservationService) ListForPartner(ctx context.Context, caller, storeID uint64, q ReservationQuery) (ReservationPage, error) {
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return ReservationPage{}, fromRepo(err, "store")
	}
	if store.PartnerID != caller {
		return ReservationPage{}, kind(ErrAccessDenied, "store %d belongs to another partner", storeID)
	}
	f, err := q.filter()
	if err != nil {
		return ReservationPage{}, err
	}
	f.StoreID = storeID
	return s.search(ctx, f)
}

// ListForStore is the public view of a store's bookings.  Only PENDING and
// APPROVED reservations are shown whatever status was asked for.
func (s *ReservationService) ListForStore(ctx context.Context, storeID uint64, q ReservationQuery) (ReservationPage, error) {
	if _, err := s.stores.GetByID(ctx, storeID); err != nil {
		return ReservationPage{}, fromRepo(err, "store")
	}
	f, err := q.filter()
	if err != nil {
		return ReservationPage{}, err
	}
	f.StoreID = storeID
	f.Statuses = []model.ReservationStatus{model.StatusPending, model.StatusApproved}
	return s.search(ctx, f)
}

// ListMine lists the caller's own reservations.
func (s *ReservationService) ListMine(ctx context.Context, caller uint64, q ReservationQuery) (ReservationPage, error) {
	f, err := q.filter()
	if err != nil {
		return ReservationPage{}, err
	}
	f.UserID = caller
	return s.search(ctx, f)
}
