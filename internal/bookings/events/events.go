package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Maghvendra09/appointment-booking/pkg/kafka"
	"github.com/Maghvendra09/appointment-booking/pkg/middleware"
	"github.com/Maghvendra09/appointment-booking/pkg/model"
)

const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"

	SchemaVersion = "1"
	Source        = "appointments"
)

// BookingEvent is the payload published after a claim or release commits.
type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	SlotID     string    `json:"slot_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`

	// Slot times are omitted when the slot was gone at publish time.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

func NewBookingEvent(booking *model.Booking) BookingEvent {
	event := BookingEvent{
		BookingID:  booking.ID,
		SlotID:     booking.SlotID,
		UserID:     booking.UserID,
		Status:     booking.Status,
		OccurredAt: booking.UpdatedAt,
	}
	if booking.Slot != nil {
		start, end := booking.Slot.StartTime, booking.Slot.EndTime
		event.StartTime = &start
		event.EndTime = &end
	}
	return event
}

// Publisher announces committed booking changes. Implementations never
// touch the ledger.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking) error
}

type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer messageProducer
}

// NewKafkaPublisher publishes events keyed by slot id, so every change to
// one slot lands on the same partition in commit order.
func NewKafkaPublisher(producer messageProducer) Publisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	msg, err := kafka.NewMessage().
		WithKey(booking.SlotID).
		WithValue(NewBookingEvent(booking)).
		WithEventType(eventType).
		WithCorrelationID(middleware.RequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when Kafka is disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, *model.Booking) error {
	return nil
}
