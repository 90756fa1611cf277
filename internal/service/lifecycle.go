package service

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Time windows.
const (
	MinLeadTime        = 30 * time.Minute    // earliest new reservation, from now
	MaxAdvance         = 14 * 24 * time.Hour // latest reservation or reschedule, from now
	RescheduleLeadTime = 10 * time.Minute    // earliest rescheduled time, from now
	OverdueGrace       = 10 * time.Minute    // sweep threshold offset
)

// NewReservation builds a PENDING reservation for userID at store.  The time
// must lie in [now+30m, now+14d].
func NewReservation(userID uint64, store model.Store, at, now time.Time) (model.Reservation, error) {
	if at.Before(now.Add(MinLeadTime)) {
		return model.Reservation{}, kind(ErrInvalidTime, "reservation must be at least 30 minutes ahead")
	}
	if at.After(now.Add(MaxAdvance)) {
		return model.Reservation{}, kind(ErrInvalidTime, "reservation must be within 14 days")
	}
	return model.Reservation{
		UserID:          userID,
		StoreID:         store.ID,
		PartnerID:       store.PartnerID,
		ReservationTime: at.UTC(),
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Reschedule moves an active reservation owned by caller to at and sends it
// back to PENDING.  An issued confirmation code is kept.
func Reschedule(r *model.Reservation, caller uint64, at, now time.Time) error {
	if r.UserID != caller {
		return kind(ErrAccessDenied, "reservation %d belongs to another user", r.ID)
	}
	if !r.Status.IsActive() {
		return kind(ErrInvalidStatus, "cannot reschedule a %s reservation", r.Status)
	}
	switch {
	case at.Before(now):
		return kind(ErrInvalidTime, "new time is in the past")
	case at.After(now.Add(MaxAdvance)):
		return kind(ErrInvalidTime, "new time must be within 14 days")
	case at.Before(now.Add(RescheduleLeadTime)):
		return kind(ErrInvalidTime, "new time must be at least 10 minutes ahead")
	}
	r.ReservationTime = at.UTC()
	r.Status = model.StatusPending
	r.UpdatedAt = now
	return nil
}

// Cancel cancels an active reservation owned by caller.
func Cancel(r *model.Reservation, caller uint64, now time.Time) error {
	if r.UserID != caller {
		return kind(ErrAccessDenied, "reservation %d belongs to another user", r.ID)
	}
	if !r.Status.IsActive() {
		return kind(ErrInvalidStatus, "cannot cancel a %s reservation", r.Status)
	}
	r.Status = model.StatusCancelled
	r.UpdatedAt = now
	return nil
}

// Decide applies a partner's APPROVED or REJECTED decision to a PENDING
// reservation.  issue is called for approvals only and must return a code
// unique among the partner's reservations.
func Decide(r *model.Reservation, caller uint64, decision model.ReservationStatus, now time.Time, issue func() (string, error)) error {
	if r.PartnerID != caller {
		return kind(ErrAccessDenied, "reservation %d belongs to another partner", r.ID)
	}
	if r.Status != model.StatusPending {
		return kind(ErrInvalidStatus, "cannot decide a %s reservation", r.Status)
	}
	switch decision {
	case model.StatusApproved:
		code, err := issue()
		if err != nil {
			return err
		}
		r.ConfirmationCode = code
	case model.StatusRejected:
	default:
		return kind(ErrInvalidStatus, "decision must be APPROVED or REJECTED, got %q", decision)
	}
	r.Status = decision
	r.UpdatedAt = now
	return nil
}

// Complete marks a reservation redeemed by its confirmation code.  The
// prior status is not checked.
func Complete(r *model.Reservation, now time.Time) {
	r.Status = model.StatusCompleted
	r.UpdatedAt = now
}
