package model

import "time"

// Store is a venue owned by exactly one partner.  Rating and Reviews are the
// running aggregate over the store's reviews and are only written by the
// rating aggregator.
type Store struct {
    ID          uint64    `json:"id"`          // stores.id
    PartnerID   uint64    `json:"partner_id"`  // stores.partner_id
    Name        string    `json:"name"`        // stores.name (unique)
    Location    string    `json:"location"`    // stores.location
    Description string    `json:"description"` // stores.description
    Rating      float64   `json:"rating"`      // stores.rating
    Reviews     int       `json:"reviews"`     // stores.reviews
    CreatedAt   time.Time `json:"created_at"`  // stores.created_at
    UpdatedAt   time.Time `json:"updated_at"`  // stores.updated_at
}
