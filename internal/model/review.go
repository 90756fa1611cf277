package model

import "time"

// Review is a rating left by a user for a completed reservation.  A
// reservation yields at most one review.
type Review struct {
    ID            uint64    `json:"id"`             // reviews.id
    UserID        uint64    `json:"user_id"`        // reviews.user_id
    StoreID       uint64    `json:"store_id"`       // reviews.store_id
    ReservationID uint64    `json:"reservation_id"` // reviews.reservation_id (unique)
    Rating        int       `json:"rating"`         // reviews.rating (1..5)
    Comment       string    `json:"comment"`        // reviews.comment
    CreatedAt     time.Time `json:"created_at"`     // reviews.created_at
    UpdatedAt     time.Time `json:"updated_at"`     // reviews.updated_at
}

// Rating bounds accepted for a review.
const (
    MinRating = 1
    MaxRating = 5
)
