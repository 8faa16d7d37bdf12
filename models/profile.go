package models

import "time"

const (
	RoleClient   = "client"
	RoleProvider = "provider"
)

// ClientProfile is the minimal identity record a booking references, plus the
// buyer's running aggregates.
type ClientProfile struct {
	ID            string    `bson:"id" json:"id"`
	Role          string    `bson:"role" json:"role"`
	TotalSessions int64     `bson:"totalSessions" json:"totalSessions"`
	TotalSpent    string    `bson:"totalSpent" json:"totalSpent"` // decimal string
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// StatsPayload is the outbox message for one buyer aggregate update.
type StatsPayload struct {
	BookingID string `json:"bookingId"`
	BuyerID   string `json:"buyerId"`
	Amount    string `json:"amount"`
}
