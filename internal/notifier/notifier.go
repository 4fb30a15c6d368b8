package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Maghvendra09/appointment-booking/internal/bookings/events"
	"github.com/Maghvendra09/appointment-booking/pkg/kafka"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"

	"github.com/redis/go-redis/v9"
)

var ErrUnknownEvent = errors.New("unknown booking event type")

type Notification struct {
	EventID   string
	UserID    string
	BookingID string
	SlotID    string
	StartTime *time.Time
	Subject   string
	Body      string
}

// Sender delivers a notification to the booking owner.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log. Real delivery channels plug in
// behind Sender.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.log.Info("Notification sent",
		"event_id", n.EventID,
		"user_id", n.UserID,
		"booking_id", n.BookingID,
		"slot_id", n.SlotID,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}

// Deduper remembers delivered event ids so redelivered events notify once.
// An id is marked only after its notification was sent.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSent(ctx context.Context, eventID string) error
}

const (
	redisDedupePrefix      = "notified:"
	notificationTimeLayout = "Mon 2 Jan 2006 15:04"
)

type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, redisDedupePrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up event %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (d *RedisDeduper) MarkSent(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, redisDedupePrefix+eventID, 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record event %s: %w", eventID, err)
	}
	return nil
}

type Handler struct {
	sender  Sender
	deduper Deduper
	log     *logger.Logger
}

// NewHandler builds the consumer handler. deduper may be nil, in which case
// redelivered events notify again.
func NewHandler(sender Sender, deduper Deduper, log *logger.Logger) *Handler {
	return &Handler{
		sender:  sender,
		deduper: deduper,
		log:     log,
	}
}

// Handle is a kafka.MessageHandler. Undecodable or unknown events are
// permanent failures and go to the dead letter topic.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode booking event", err)
	}
	if event.UserID == "" || event.BookingID == "" {
		return kafka.NewPermanentError("booking event is missing user or booking id", nil)
	}

	n, err := buildNotification(msg.GetEventType(), event)
	if err != nil {
		return kafka.NewPermanentError(err.Error(), err)
	}
	n.EventID = msg.GetEventID()

	dedupe := h.deduper != nil && n.EventID != ""
	if dedupe {
		seen, err := h.deduper.Seen(ctx, n.EventID)
		if err != nil {
			return kafka.NewTransientError("failed to check event deduplication", err)
		}
		if seen {
			h.log.Info("Skipping already notified event", "event_id", n.EventID, "booking_id", event.BookingID)
			return nil
		}
	}

	if err := h.sender.Send(ctx, n); err != nil {
		return kafka.NewTransientError("failed to send notification", err)
	}

	if dedupe {
		// The notification is out; a redelivery may repeat it but never loses it.
		if err := h.deduper.MarkSent(ctx, n.EventID); err != nil {
			h.log.Warn("Failed to record notified event", "event_id", n.EventID, "error", err)
		}
	}
	return nil
}

func buildNotification(eventType string, event events.BookingEvent) (Notification, error) {
	n := Notification{
		UserID:    event.UserID,
		BookingID: event.BookingID,
		SlotID:    event.SlotID,
		StartTime: event.StartTime,
	}

	switch eventType {
	case events.TypeBookingConfirmed:
		n.Subject = "Appointment confirmed"
		n.Body = fmt.Sprintf("Your appointment %s is confirmed.", appointmentTime(event))
	case events.TypeBookingCancelled:
		n.Subject = "Appointment cancelled"
		n.Body = fmt.Sprintf("Your appointment %s was cancelled.", appointmentTime(event))
	default:
		return Notification{}, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}
	return n, nil
}

// appointmentTime describes when the appointment is, falling back to the
// slot id for events published without slot times.
func appointmentTime(event events.BookingEvent) string {
	if event.StartTime == nil {
		return "for slot " + event.SlotID
	}
	start := event.StartTime.UTC()
	if event.EndTime == nil {
		return "on " + start.Format(notificationTimeLayout) + " UTC"
	}
	return fmt.Sprintf("on %s - %s UTC", start.Format(notificationTimeLayout), event.EndTime.UTC().Format("15:04"))
}
