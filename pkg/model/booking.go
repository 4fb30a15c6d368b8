package model

import (
	"time"
)

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking records a user's claim on a slot. A (UserID, SlotID) pair has at
// most one booking ever, and a slot has at most one confirmed booking.
type Booking struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	SlotID    string    `json:"slot_id" bson:"slot_id"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	// Slot is filled on reads from the slot ledger and never persisted.
	// It stays nil when the slot no longer exists.
	Slot *SlotWindow `json:"slot,omitempty" bson:"-"`
}

// SlotWindow is the time range of the slot a booking holds.
type SlotWindow struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingConfirmed
}

type ClaimRequest struct {
	SlotID string `json:"slot_id" validate:"required,mongodb"`
}
