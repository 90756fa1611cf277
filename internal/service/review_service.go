package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/iliyamo/table-reservation/internal/clock"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

type ReviewRepository interface {
	DB() *sql.DB
	CreateTx(ctx context.Context, tx *sql.Tx, v *model.Review) error
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Review, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, v model.Review) error
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
	List(ctx context.Context, f repository.ReviewFilter) ([]model.Review, int64, error)
}

// ReservationLocker is the slice of reservation storage reviews need.
type ReservationLocker interface {
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, r model.Reservation) error
}

// StoreAggregate reads and writes a store's rating under its row lock.
type StoreAggregate interface {
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Store, error)
	UpdateRatingTx(ctx context.Context, tx *sql.Tx, id uint64, rating float64, reviews int) error
}

// RatingMirror is told after each committed change that its copy of the
// store aggregate is stale.  Dropping the entry rather than writing the new
// value keeps two racing commits from leaving the older aggregate behind.
type RatingMirror interface {
	Invalidate(ctx context.Context, storeID uint64) error
}

// ReviewService manages reviews and keeps the store rating aggregate in
// step within the same transaction.  Locks are always taken in the order
// review, reservation, store.
type ReviewService struct {
	reviews      ReviewRepository
	reservations ReservationLocker
	stores       StoreAggregate
	mirror       RatingMirror
	clock        clock.Clock
	events       *Events
}

func NewReviewService(reviews ReviewRepository, reservations ReservationLocker, stores StoreAggregate, mirror RatingMirror, clk clock.Clock, events *Events) *ReviewService {
	return &ReviewService{reviews: reviews, reservations: reservations, stores: stores, mirror: mirror, clock: clk, events: events}
}

// ReviewPage is one page of reviews.
type ReviewPage struct {
	Items    []model.Review
	Total    int64
	Page     int
	PageSize int
}

func checkRating(r int) error {
	if r < model.MinRating || r > model.MaxRating {
		return kind(ErrInvalidArgument, "rating must be between %d and %d", model.MinRating, model.MaxRating)
	}
	return nil
}

// Create reviews caller's completed reservation.
func (s *ReviewService) Create(ctx context.Context, caller, reservationID uint64, rating int, comment string) (model.Review, error) {
	if err := checkRating(rating); err != nil {
		return model.Review{}, err
	}
	var (
		v     model.Review
		store model.Store
	)
	err := inTx(ctx, s.reviews.DB(), func(tx *sql.Tx) error {
		res, err := s.reservations.GetForUpdateTx(ctx, tx, reservationID)
		if err != nil {
			return fromRepo(err, "reservation")
		}
		if res.UserID != caller {
			return kind(ErrAccessDenied, "reservation %d belongs to another user", reservationID)
		}
		if res.Status != model.StatusCompleted {
			return kind(ErrInvalidStatus, "reservation not completed")
		}
		if res.Reviewed {
			return kind(ErrAlreadyExists, "reservation %d already reviewed", reservationID)
		}
		store, err = s.stores.GetForUpdateTx(ctx, tx, res.StoreID)
		if err != nil {
			return fromRepo(err, "store")
		}

		now := s.clock.Now()
		v = model.Review{
			UserID:        caller,
			StoreID:       res.StoreID,
			ReservationID: res.ID,
			Rating:        rating,
			Comment:       strings.TrimSpace(comment),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.reviews.CreateTx(ctx, tx, &v); err != nil {
			return fromRepo(err, "review")
		}
		res.Reviewed = true
		res.UpdatedAt = now
		if err := s.reservations.UpdateTx(ctx, tx, res); err != nil {
			return err
		}
		RatingOnCreate(&store, rating)
		return s.stores.UpdateRatingTx(ctx, tx, store.ID, store.Rating, store.Reviews)
	})
	if err != nil {
		return model.Review{}, err
	}
	s.committed(ctx, queue.EventReviewCreated, v, store)
	return v, nil
}

// Update changes rating and comment of caller's review.
func (s *ReviewService) Update(ctx context.Context, caller, reviewID uint64, rating int, comment string) (model.Review, error) {
	if err := checkRating(rating); err != nil {
		return model.Review{}, err
	}
	var (
		v     model.Review
		store model.Store
	)
	err := inTx(ctx, s.reviews.DB(), func(tx *sql.Tx) error {
		cur, err := s.reviews.GetForUpdateTx(ctx, tx, reviewID)
		if err != nil {
			return fromRepo(err, "review")
		}
		if cur.UserID != caller {
			return kind(ErrAccessDenied, "review %d belongs to another user", reviewID)
		}
		store, err = s.stores.GetForUpdateTx(ctx, tx, cur.StoreID)
		if err != nil {
			return fromRepo(err, "store")
		}
		old := cur.Rating
		cur.Rating = rating
		cur.Comment = strings.TrimSpace(comment)
		cur.UpdatedAt = s.clock.Now()
		if err := s.reviews.UpdateTx(ctx, tx, cur); err != nil {
			return err
		}
		RatingOnUpdate(&store, old, rating)
		if err := s.stores.UpdateRatingTx(ctx, tx, store.ID, store.Rating, store.Reviews); err != nil {
			return err
		}
		v = cur
		return nil
	})
	if err != nil {
		return model.Review{}, err
	}
	s.committed(ctx, queue.EventReviewUpdated, v, store)
	return v, nil
}

// Delete removes a review on behalf of its author or the store's partner.
// The reservation becomes reviewable again.
func (s *ReviewService) Delete(ctx context.Context, caller, reviewID uint64) error {
	var (
		v     model.Review
		store model.Store
	)
	err := inTx(ctx, s.reviews.DB(), func(tx *sql.Tx) error {
		var err error
		v, err = s.reviews.GetForUpdateTx(ctx, tx, reviewID)
		if err != nil {
			return fromRepo(err, "review")
		}
		res, err := s.reservations.GetForUpdateTx(ctx, tx, v.ReservationID)
		if err != nil {
			return fromRepo(err, "reservation")
		}
		store, err = s.stores.GetForUpdateTx(ctx, tx, v.StoreID)
		if err != nil {
			return fromRepo(err, "store")
		}
		if v.UserID != caller && store.PartnerID != caller {
			return kind(ErrAccessDenied, "review %d cannot be deleted by caller", reviewID)
		}
		if err := s.reviews.DeleteTx(ctx, tx, v.ID); err != nil {
			return fromRepo(err, "review")
		}
		res.Reviewed = false
		res.UpdatedAt = s.clock.Now()
		if err := s.reservations.UpdateTx(ctx, tx, res); err != nil {
			return err
		}
		RatingOnDelete(&store, v.Rating)
		return s.stores.UpdateRatingTx(ctx, tx, store.ID, store.Rating, store.Reviews)
	})
	if err != nil {
		return err
	}
	s.committed(ctx, queue.EventReviewDeleted, v, store)
	return nil
}

// ListByStore pages through a store's reviews, optionally bounded by rating.
func (s *ReviewService) ListByStore(ctx context.Context, storeID uint64, minRating, maxRating int, page repository.Page) (ReviewPage, error) {
	if minRating != 0 {
		if err := checkRating(minRating); err != nil {
			return ReviewPage{}, err
		}
	}
	if maxRating != 0 {
		if err := checkRating(maxRating); err != nil {
			return ReviewPage{}, err
		}
	}
	if minRating != 0 && maxRating != 0 && minRating > maxRating {
		return ReviewPage{}, kind(ErrInvalidArgument, "min_rating exceeds max_rating")
	}
	return s.list(ctx, repository.ReviewFilter{StoreID: storeID, MinRating: minRating, MaxRating: maxRating, Page: page})
}

// ListByUser pages through the reviews a user wrote.
func (s *ReviewService) ListByUser(ctx context.Context, userID uint64, page repository.Page) (ReviewPage, error) {
	return s.list(ctx, repository.ReviewFilter{UserID: userID, Page: page})
}

func (s *ReviewService) list(ctx context.Context, f repository.ReviewFilter) (ReviewPage, error) {
	f.Page = f.Page.Normalize()
	items, total, err := s.reviews.List(ctx, f)
	if err != nil {
		return ReviewPage{}, err
	}
	return ReviewPage{Items: items, Total: total, Page: f.Page.Page, PageSize: f.Page.PageSize}, nil
}

func (s *ReviewService) committed(ctx context.Context, typ string, v model.Review, store model.Store) {
	if s.mirror != nil {
		if err := s.mirror.Invalidate(ctx, store.ID); err != nil {
			slog.Warn("rating mirror invalidate failed", "store_id", store.ID, "err", err)
		}
	}
	s.events.review(ctx, queue.NewReviewEvent(typ, v, store, s.clock.Now()))
}
