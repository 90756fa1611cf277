package model

import (
    "errors"
    "fmt"
    "time"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "PENDING"
    StatusApproved  ReservationStatus = "APPROVED"
    StatusRejected  ReservationStatus = "REJECTED"
    StatusCancelled ReservationStatus = "CANCELLED"
    StatusCompleted ReservationStatus = "COMPLETED"
    StatusOverdue   ReservationStatus = "OVERDUE"
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []ReservationStatus{
    StatusPending, StatusApproved, StatusRejected,
    StatusCancelled, StatusCompleted, StatusOverdue,
}

// ErrUnknownStatus is returned by ParseReservationStatus for strings outside
// the enum.
var ErrUnknownStatus = errors.New("unknown reservation status")

// ParseReservationStatus converts a client supplied string into a status.
// Only the exact upper-case names are accepted.
func ParseReservationStatus(s string) (ReservationStatus, error) {
    v := ReservationStatus(s)
    for _, st := range AllStatuses {
        if st == v {
            return st, nil
        }
    }
    return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// IsTerminal reports whether no further transition may leave the status.
func (s ReservationStatus) IsTerminal() bool {
    switch s {
    case StatusRejected, StatusCancelled, StatusCompleted, StatusOverdue:
        return true
    }
    return false
}

// IsActive reports whether the reservation still occupies its slot
// (PENDING or APPROVED).
func (s ReservationStatus) IsActive() bool {
    return s == StatusPending || s == StatusApproved
}

// Reservation is a user's request for a time slot at a store.
//
// Fields:
//  PartnerID        – copied from the store on creation; scopes the
//                     confirmation code uniqueness.
//  ConfirmationCode – empty until the reservation is approved.
//  Reviewed         – true while a review references the reservation.
type Reservation struct {
    ID               uint64            `json:"id"`                // reservations.id
    UserID           uint64            `json:"user_id"`           // reservations.user_id
    StoreID          uint64            `json:"store_id"`          // reservations.store_id
    PartnerID        uint64            `json:"partner_id"`        // reservations.partner_id
    ReservationTime  time.Time         `json:"reservation_time"`  // reservations.reservation_time
    Status           ReservationStatus `json:"status"`            // reservations.status
    ConfirmationCode string            `json:"confirmation_code"` // reservations.confirmation_code (NULL when empty)
    Reviewed         bool              `json:"reviewed"`          // reservations.reviewed
    CreatedAt        time.Time         `json:"created_at"`        // reservations.created_at
    UpdatedAt        time.Time         `json:"updated_at"`        // reservations.updated_at
}
