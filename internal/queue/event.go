// Package queue defines message payloads exchanged over the message broker
// and the publishers and consumers that move them.
package queue

import (
    "strconv"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/table-reservation/internal/model"
)

// Reservation event types.  The sweeper emits EventReservationOverdue once
// per run with the number of rows it moved rather than one event per row.
const (
    EventReservationCreated     = "reservation.created"
    EventReservationRescheduled = "reservation.rescheduled"
    EventReservationCancelled   = "reservation.cancelled"
    EventReservationApproved    = "reservation.approved"
    EventReservationRejected    = "reservation.rejected"
    EventReservationCompleted   = "reservation.completed"
    EventReservationOverdue     = "reservation.overdue"
)

// Review event types.
const (
    EventReviewCreated = "review.created"
    EventReviewUpdated = "review.updated"
    EventReviewDeleted = "review.deleted"
)

// ReservationEvent is published after a reservation transition commits.  It
// carries enough for downstream consumers to log or trigger analytics
// without querying the primary database.  The confirmation code is never
// included.
type ReservationEvent struct {
    EventID         string `json:"event_id"`
    Type            string `json:"type"`
    ReservationID   uint64 `json:"reservation_id,omitempty"`
    UserID          uint64 `json:"user_id,omitempty"`
    StoreID         uint64 `json:"store_id,omitempty"`
    PartnerID       uint64 `json:"partner_id,omitempty"`
    Status          string `json:"status,omitempty"`
    ReservationTime string `json:"reservation_time,omitempty"`
    Affected        int64  `json:"affected,omitempty"`
    OccurredAt      string `json:"occurred_at"`
}

// Key partitions reservation events by store so one store's events keep
// their order on Kafka.
func (e ReservationEvent) Key() string {
    if e.StoreID == 0 {
        return e.Type
    }
    return strconv.FormatUint(e.StoreID, 10)
}

// NewReservationEvent snapshots r under the given event type.
func NewReservationEvent(typ string, r model.Reservation, at time.Time) ReservationEvent {
    return ReservationEvent{
        EventID:         uuid.NewString(),
        Type:            typ,
        ReservationID:   r.ID,
        UserID:          r.UserID,
        StoreID:         r.StoreID,
        PartnerID:       r.PartnerID,
        Status:          string(r.Status),
        ReservationTime: r.ReservationTime.UTC().Format(time.RFC3339),
        OccurredAt:      at.UTC().Format(time.RFC3339),
    }
}

// NewOverdueEvent reports one sweep that moved n reservations to OVERDUE.
func NewOverdueEvent(n int64, at time.Time) ReservationEvent {
    return ReservationEvent{
        EventID:    uuid.NewString(),
        Type:       EventReservationOverdue,
        Status:     string(model.StatusOverdue),
        Affected:   n,
        OccurredAt: at.UTC().Format(time.RFC3339),
    }
}

// ReviewEvent is published after a review mutation commits, together with
// the store aggregate it produced.
type ReviewEvent struct {
    EventID     string  `json:"event_id"`
    Type        string  `json:"type"`
    ReviewID    uint64  `json:"review_id"`
    StoreID     uint64  `json:"store_id"`
    UserID      uint64  `json:"user_id"`
    Rating      int     `json:"rating"`
    StoreRating float64 `json:"store_rating"`
    StoreCount  int     `json:"store_reviews"`
    OccurredAt  string  `json:"occurred_at"`
}

func (e ReviewEvent) Key() string { return strconv.FormatUint(e.StoreID, 10) }

// NewReviewEvent snapshots a review and the store aggregate after the change.
func NewReviewEvent(typ string, v model.Review, s model.Store, at time.Time) ReviewEvent {
    return ReviewEvent{
        EventID:     uuid.NewString(),
        Type:        typ,
        ReviewID:    v.ID,
        StoreID:     v.StoreID,
        UserID:      v.UserID,
        Rating:      v.Rating,
        StoreRating: s.Rating,
        StoreCount:  s.Reviews,
        OccurredAt:  at.UTC().Format(time.RFC3339),
    }
}
