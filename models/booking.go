package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionUpcoming  SessionStatus = "upcoming"
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionNoShow    SessionStatus = "no_show"
)

// BookedSession represents a confirmed reservation derived from exactly one
// AvailableSlot. Slot fields are copied at booking time so later edits to the
// slot never rewrite history.
type BookedSession struct {
	ID               string        `bson:"id" json:"id"`
	SlotID           string        `bson:"slotId" json:"slotId"`
	BuyerID          string        `bson:"buyerId" json:"buyerId"`
	ProviderID       string        `bson:"providerId" json:"providerId"`
	Date             string        `bson:"date" json:"date"`
	StartTime        string        `bson:"startTime" json:"startTime"`
	EndTime          string        `bson:"endTime" json:"endTime"`
	Duration         int           `bson:"duration" json:"duration"`
	Price            string        `bson:"price" json:"price"`
	PaymentReference string        `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	PaymentStatus    PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	SessionStatus    SessionStatus `bson:"sessionStatus" json:"sessionStatus"`
	ProofTokenID     string        `bson:"proofTokenId" json:"proofTokenId"`
	MeetingRoomID    string        `bson:"meetingRoomId" json:"meetingRoomId"`
	MeetingLink      string        `bson:"meetingLink" json:"meetingLink"`
	Rating           *int          `bson:"rating,omitempty" json:"rating,omitempty"`
	Feedback         string        `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt        time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// BookingRequest is the caller's intent to book one slot.
type BookingRequest struct {
	SlotID           string        `json:"slotId" binding:"required"`
	BuyerID          string        `json:"-"`
	PaymentReference string        `json:"paymentReference"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
}

// BookingView is what a completed booking returns to the caller.
type BookingView struct {
	BookingID     string        `json:"bookingId"`
	SlotID        string        `json:"slotId"`
	SlotStatus    SlotStatus    `json:"slotStatus"`
	BuyerID       string        `json:"buyerId"`
	ProviderID    string        `json:"providerId"`
	Date          string        `json:"date"`
	StartTime     string        `json:"startTime"`
	EndTime       string        `json:"endTime"`
	Duration      int           `json:"duration"`
	Price         string        `json:"price"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	SessionStatus SessionStatus `json:"sessionStatus"`
	ProofTokenID  string        `json:"proofTokenId"`
	MeetingRoomID string        `json:"meetingRoomId"`
	MeetingLink   string        `json:"meetingLink"`
	CreatedAt     time.Time     `json:"createdAt"`
}
