package models

import "time"

// SlotStatus is the lifecycle state of an AvailableSlot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
	SlotCompleted SlotStatus = "completed"
)

// CanTransition reports whether a slot may move from s to next.
// A booked slot never becomes available again through this path; the
// orchestrator's reservation release is a separate, reservation-scoped undo.
func (s SlotStatus) CanTransition(next SlotStatus) bool {
	switch s {
	case SlotAvailable:
		return next == SlotBooked
	case SlotBooked:
		return next == SlotCompleted || next == SlotCancelled
	default:
		return false
	}
}

// AvailableSlot represents a provider's bookable time window.
type AvailableSlot struct {
	ID            string     `bson:"id" json:"id"`
	ProviderID    string     `bson:"providerId" json:"providerId"` // provider wallet/account
	Date          string     `bson:"date" json:"date"`             // "YYYY-MM-DD"
	StartTime     string     `bson:"startTime" json:"startTime"`   // "HH:MM"
	EndTime       string     `bson:"endTime" json:"endTime"`       // "HH:MM"
	Duration      int        `bson:"duration" json:"duration"`     // minutes
	Price         string     `bson:"price" json:"price"`           // decimal string, e.g. "5.00"
	Status        SlotStatus `bson:"status" json:"status"`
	MeetingRoomID string     `bson:"meetingRoomId,omitempty" json:"meetingRoomId,omitempty"`
	ReservationID string     `bson:"reservationId,omitempty" json:"-"` // booking id that flipped the slot
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}
