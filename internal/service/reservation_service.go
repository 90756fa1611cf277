package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/table-reservation/internal/clock"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// ReservationRepository is the storage the reservation engine needs.  Row
// mutations happen under the lock taken by the *ForUpdateTx readers.
type ReservationRepository interface {
	DB() *sql.DB
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error)
	GetByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, partnerID uint64, code string) (model.Reservation, error)
	CodeExistsTx(ctx context.Context, tx *sql.Tx, partnerID uint64, code string) (bool, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, r model.Reservation) error
	Search(ctx context.Context, f repository.ReservationFilter) ([]model.Reservation, int64, error)
}

// StoreLookup resolves stores by ID.
type StoreLookup interface {
	GetByID(ctx context.Context, id uint64) (model.Store, error)
}

// codeWriteAttempts bounds how often an approval regenerates its code after
// the unique key rejected the write.
const codeWriteAttempts = 5

// QRSize is the edge length in pixels of confirmation QR images.
const QRSize = 256

// ReservationService runs the reservation state machine against storage.
type ReservationService struct {
	reservations ReservationRepository
	stores       StoreLookup
	clock        clock.Clock
	codes        CodeGenerator
	events       *Events
}

func NewReservationService(res ReservationRepository, stores StoreLookup, clk clock.Clock, events *Events) *ReservationService {
	return &ReservationService{reservations: res, stores: stores, clock: clk, events: events}
}

// WithCodeGenerator replaces the confirmation code source.
func (s *ReservationService) WithCodeGenerator(g CodeGenerator) *ReservationService {
	s.codes = g
	return s
}

// Create books store storeID for caller at the given time.
func (s *ReservationService) Create(ctx context.Context, caller, storeID uint64, at time.Time) (model.Reservation, error) {
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return model.Reservation{}, fromRepo(err, "store")
	}
	r, err := NewReservation(caller, store, at, s.clock.Now())
	if err != nil {
		return model.Reservation{}, err
	}
	if err := s.reservations.Create(ctx, &r); err != nil {
		return model.Reservation{}, err
	}
	s.committed(ctx, queue.EventReservationCreated, r)
	return r, nil
}

// Reschedule moves caller's reservation to a new time.
func (s *ReservationService) Reschedule(ctx context.Context, caller, id uint64, at time.Time) (model.Reservation, error) {
	r, err := s.mutate(ctx, id, func(r *model.Reservation) error {
		return Reschedule(r, caller, at, s.clock.Now())
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.committed(ctx, queue.EventReservationRescheduled, r)
	return r, nil
}

// Cancel cancels caller's reservation.
func (s *ReservationService) Cancel(ctx context.Context, caller, id uint64) (model.Reservation, error) {
	r, err := s.mutate(ctx, id, func(r *model.Reservation) error {
		return Cancel(r, caller, s.clock.Now())
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.committed(ctx, queue.EventReservationCancelled, r)
	return r, nil
}

// Decide approves or rejects a pending reservation on behalf of its store's
// partner.  decision must be APPROVED or REJECTED exactly.
func (s *ReservationService) Decide(ctx context.Context, caller, id uint64, decision string) (model.Reservation, error) {
	status, err := model.ParseReservationStatus(decision)
	if err != nil {
		return model.Reservation{}, kind(ErrInvalidStatus, "unknown decision %q", decision)
	}

	var r model.Reservation
	err = inTx(ctx, s.reservations.DB(), func(tx *sql.Tx) error {
		cur, err := s.reservations.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return fromRepo(err, "reservation")
		}
		issue := func() (string, error) {
			return s.codes.Generate(ctx, func(ctx context.Context, code string) (bool, error) {
				return s.reservations.CodeExistsTx(ctx, tx, cur.PartnerID, code)
			})
		}
		if err := Decide(&cur, caller, status, s.clock.Now(), issue); err != nil {
			return err
		}
		for attempt := 1; ; attempt++ {
			err := s.reservations.UpdateTx(ctx, tx, cur)
			if err == nil {
				break
			}
			// Only the failed statement is rolled back; the row lock holds.
			if !errors.Is(err, repository.ErrDuplicate) || status != model.StatusApproved || attempt >= codeWriteAttempts {
				return fromRepo(err, "confirmation code")
			}
			if cur.ConfirmationCode, err = issue(); err != nil {
				return err
			}
		}
		r = cur
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	if r.Status == model.StatusApproved {
		s.committed(ctx, queue.EventReservationApproved, r)
	} else {
		s.committed(ctx, queue.EventReservationRejected, r)
	}
	return r, nil
}

// ConfirmByCode completes the partner's reservation carrying code.
func (s *ReservationService) ConfirmByCode(ctx context.Context, partner uint64, code string) (model.Reservation, error) {
	var r model.Reservation
	err := inTx(ctx, s.reservations.DB(), func(tx *sql.Tx) error {
		cur, err := s.reservations.GetByCodeForUpdateTx(ctx, tx, partner, code)
		if err != nil {
			return fromRepo(err, "confirmation code")
		}
		Complete(&cur, s.clock.Now())
		if err := s.reservations.UpdateTx(ctx, tx, cur); err != nil {
			return err
		}
		r = cur
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.committed(ctx, queue.EventReservationCompleted, r)
	return r, nil
}

// Detail returns a reservation to its owner or its store's partner.
func (s *ReservationService) Detail(ctx context.Context, caller, id uint64) (model.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, fromRepo(err, "reservation")
	}
	if r.UserID != caller && r.PartnerID != caller {
		return model.Reservation{}, kind(ErrAccessDenied, "reservation %d is not visible to caller", id)
	}
	return r, nil
}

// ConfirmationQR renders the owner's confirmation code as a PNG.
func (s *ReservationService) ConfirmationQR(ctx context.Context, caller, id uint64) ([]byte, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "reservation")
	}
	if r.UserID != caller {
		return nil, kind(ErrAccessDenied, "reservation %d belongs to another user", id)
	}
	if r.ConfirmationCode == "" {
		return nil, kind(ErrInvalidStatus, "reservation %d has no confirmation code", id)
	}
	return qrcode.Encode(r.ConfirmationCode, qrcode.Medium, QRSize)
}

// mutate loads id under a row lock, applies fn and writes the result.
func (s *ReservationService) mutate(ctx context.Context, id uint64, fn func(r *model.Reservation) error) (model.Reservation, error) {
	var out model.Reservation
	err := inTx(ctx, s.reservations.DB(), func(tx *sql.Tx) error {
		r, err := s.reservations.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return fromRepo(err, "reservation")
		}
		if err := fn(&r); err != nil {
			return err
		}
		if err := s.reservations.UpdateTx(ctx, tx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func (s *ReservationService) committed(ctx context.Context, typ string, r model.Reservation) {
	reservationTransitions.WithLabelValues(string(r.Status)).Inc()
	s.events.reservation(ctx, queue.NewReservationEvent(typ, r, s.clock.Now()))
}
