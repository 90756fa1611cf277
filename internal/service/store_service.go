package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/iliyamo/table-reservation/internal/clock"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

type StoreRepository interface {
	Create(ctx context.Context, s *model.Store) error
	GetByID(ctx context.Context, id uint64) (model.Store, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	UpdateDetails(ctx context.Context, s model.Store) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, q repository.StoreListQuery) ([]model.Store, int64, error)
}

// RatingCache is the Redis mirror of store aggregates.
type RatingCache interface {
	RatingMirror
	Get(ctx context.Context, storeID uint64) (rating float64, reviews int, ok bool, err error)
	Put(ctx context.Context, storeID uint64, rating float64, reviews int) error
}

type StoreService struct {
	stores StoreRepository
	cache  RatingCache
	clock  clock.Clock
}

func NewStoreService(stores StoreRepository, cache RatingCache, clk clock.Clock) *StoreService {
	return &StoreService{stores: stores, cache: cache, clock: clk}
}

// StoreInput carries the partner-editable fields.
type StoreInput struct {
	Name        string
	Location    string
	Description string
}

func (in StoreInput) normalized() (StoreInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || in.Location == "" {
		return in, kind(ErrInvalidArgument, "name and location are required")
	}
	return in, nil
}

// StorePage is one page of the store listing.
type StorePage struct {
	Items    []model.Store
	Total    int64
	Page     int
	PageSize int
}

// Register creates a store owned by caller, who must be a partner.
func (s *StoreService) Register(ctx context.Context, caller Caller, in StoreInput) (model.Store, error) {
	if caller.Role != model.RolePartner {
		return model.Store{}, kind(ErrAccessDenied, "only partners can register stores")
	}
	in, err := in.normalized()
	if err != nil {
		return model.Store{}, err
	}
	taken, err := s.stores.ExistsByName(ctx, in.Name)
	if err != nil {
		return model.Store{}, err
	}
	if taken {
		return model.Store{}, kind(ErrAlreadyExists, "store name %q is taken", in.Name)
	}
	now := s.clock.Now()
	st := model.Store{
		PartnerID:   caller.ID,
		Name:        in.Name,
		Location:    in.Location,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stores.Create(ctx, &st); err != nil {
		return model.Store{}, fromRepo(err, "store")
	}
	return st, nil
}

// Update edits a store owned by caller.
func (s *StoreService) Update(ctx context.Context, caller, id uint64, in StoreInput) (model.Store, error) {
	in, err := in.normalized()
	if err != nil {
		return model.Store{}, err
	}
	st, err := s.owned(ctx, caller, id)
	if err != nil {
		return model.Store{}, err
	}
	if in.Name != st.Name {
		taken, err := s.stores.ExistsByName(ctx, in.Name)
		if err != nil {
			return model.Store{}, err
		}
		if taken {
			return model.Store{}, kind(ErrAlreadyExists, "store name %q is taken", in.Name)
		}
	}
	st.Name, st.Location, st.Description = in.Name, in.Location, in.Description
	st.UpdatedAt = s.clock.Now()
	if err := s.stores.UpdateDetails(ctx, st); err != nil {
		return model.Store{}, fromRepo(err, "store")
	}
	return st, nil
}

// Withdraw deletes a store owned by caller.  Stores with reservations
// cannot be withdrawn.
func (s *StoreService) Withdraw(ctx context.Context, caller, id uint64) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.stores.Delete(ctx, id); err != nil {
		return fromRepo(err, "store")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			slog.Warn("rating cache invalidate failed", "store_id", id, "err", err)
		}
	}
	return nil
}

// Detail returns a store with its rating aggregate as stored in MySQL.
func (s *StoreService) Detail(ctx context.Context, id uint64) (model.Store, error) {
	st, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return model.Store{}, fromRepo(err, "store")
	}
	return st, nil
}

// DetailForPartner is Detail restricted to the store's partner.
func (s *StoreService) DetailForPartner(ctx context.Context, caller, id uint64) (model.Store, error) {
	return s.owned(ctx, caller, id)
}

// StoreRating is a store's rating aggregate on its own.
type StoreRating struct {
	StoreID uint64  `json:"store_id"`
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}

// Rating returns a store's aggregate, answering from the Redis mirror when
// it holds one and reading MySQL only on a miss.  Review commits drop the
// entry; a fill that races such a drop is bounded by the entry's TTL.
func (s *StoreService) Rating(ctx context.Context, id uint64) (StoreRating, error) {
	if s.cache != nil {
		rating, reviews, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			slog.Warn("rating cache read failed", "store_id", id, "err", err)
		} else if ok {
			return StoreRating{StoreID: id, Rating: rating, Reviews: reviews}, nil
		}
	}
	st, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return StoreRating{}, fromRepo(err, "store")
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, st.ID, st.Rating, st.Reviews); err != nil {
			slog.Warn("rating cache fill failed", "store_id", st.ID, "err", err)
		}
	}
	return StoreRating{StoreID: st.ID, Rating: st.Rating, Reviews: st.Reviews}, nil
}

// List returns stores rated at least minRating, best first by sortBy.
func (s *StoreService) List(ctx context.Context, minRating float64, sortBy string, page repository.Page) (StorePage, error) {
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	switch sortBy {
	case "":
		sortBy = "rating"
	case "rating", "reviews":
	default:
		return StorePage{}, kind(ErrInvalidArgument, "sort must be rating or reviews")
	}
	if minRating < 0 || minRating > model.MaxRating {
		return StorePage{}, kind(ErrInvalidArgument, "min_rating out of range")
	}
	page = page.Normalize()
	items, total, err := s.stores.List(ctx, repository.StoreListQuery{MinRating: minRating, SortBy: sortBy, Page: page})
	if err != nil {
		return StorePage{}, err
	}
	return StorePage{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (s *StoreService) owned(ctx context.Context, caller, id uint64) (model.Store, error) {
	st, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return model.Store{}, fromRepo(err, "store")
	}
	if st.PartnerID != caller {
		return model.Store{}, kind(ErrAccessDenied, "store %d belongs to another partner", id)
	}
	return st, nil
}
