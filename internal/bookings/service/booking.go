package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "github.com/Maghvendra09/appointment-booking/internal/bookings/errors"
	"github.com/Maghvendra09/appointment-booking/internal/bookings/events"
	"github.com/Maghvendra09/appointment-booking/internal/bookings/repository"
	"github.com/Maghvendra09/appointment-booking/internal/bookings/validator"
	slotserrors "github.com/Maghvendra09/appointment-booking/internal/slots/errors"
	slotsrepository "github.com/Maghvendra09/appointment-booking/internal/slots/repository"
	"github.com/Maghvendra09/appointment-booking/pkg/config"
	mongotx "github.com/Maghvendra09/appointment-booking/pkg/db/mongo"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"
	"github.com/Maghvendra09/appointment-booking/pkg/model"
)

// BookingService coordinates claims and releases. It is the only writer of
// the booked flag, the holder and the booking status.
type BookingService interface {
	Claim(ctx context.Context, slotID, userID string) (*model.Booking, error)
	Release(ctx context.Context, bookingID, userID string) (*model.Booking, error)
	ListMine(ctx context.Context, userID string) ([]*model.Booking, error)
	ListAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	slotRepo  slotsrepository.SlotRepository
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	slotRepo slotsrepository.SlotRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &bookingService{
		repo:      repo,
		slotRepo:  slotRepo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Claim reserves slotID for userID. Each attempt runs the whole check and
// write sequence in one transaction; only write conflicts are retried.
func (s *bookingService) Claim(ctx context.Context, slotID, userID string) (*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Caller identity is required")
	}
	if err := s.validator.ValidateID("slot_id", slotID); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	log := s.cfg.Log.With("operation", "claim", "slot_id", slotID, "user_id", userID)

	var booking *model.Booking
	err := s.withRetry(ctx, log, func(ctx context.Context) error {
		return s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			created, err := s.claimInTx(txCtx, slotID, userID)
			if err != nil {
				return err
			}
			booking = created
			return nil
		})
	})
	if err != nil {
		return nil, s.mapLedgerError(ctx, log, err, slotID, "Failed to book slot")
	}

	log.Info("Slot booked successfully", "booking_id", booking.ID)
	s.publish(ctx, log, events.TypeBookingConfirmed, booking)
	return booking, nil
}

func (s *bookingService) claimInTx(ctx context.Context, slotID, userID string) (*model.Booking, error) {
	if _, err := s.repo.FindConfirmedBySlot(ctx, slotID); err == nil {
		return nil, apperrors.SlotAlreadyBooked(slotID)
	} else if !errors.Is(err, bookingserrors.ErrNotFound) {
		return nil, err
	}

	slot, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !slot.Consistent() {
		return nil, apperrors.Precondition("Slot ledger is inconsistent", nil).
			WithDetails(map[string]any{"slot_id": slotID})
	}
	if slot.Booked {
		return nil, apperrors.SlotAlreadyBooked(slotID)
	}

	booking := &model.Booking{
		UserID: userID,
		SlotID: slotID,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, err
	}
	if err := s.slotRepo.MarkBooked(ctx, slotID, userID); err != nil {
		return nil, err
	}
	booking.Slot = slot.Window()
	return booking, nil
}

// Release cancels a confirmed booking owned by userID and frees its slot.
// A second release of the same booking fails with BOOKING_NOT_FOUND.
func (s *bookingService) Release(ctx context.Context, bookingID, userID string) (*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Caller identity is required")
	}
	if err := s.validator.ValidateID("id", bookingID); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	log := s.cfg.Log.With("operation", "release", "booking_id", bookingID, "user_id", userID)

	existing, err := s.repo.FindConfirmedByIDAndUser(ctx, bookingID, userID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.BookingNotFound(bookingID)
		}
		log.Error("Failed to look up booking", "error", err)
		return nil, storageError("Failed to cancel booking", err)
	}

	var cancelled *model.Booking
	err = s.withRetry(ctx, log, func(ctx context.Context) error {
		return s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			updated, err := s.repo.MarkCancelled(txCtx, bookingID)
			if err != nil {
				return err
			}
			if err := s.slotRepo.MarkAvailable(txCtx, existing.SlotID); err != nil {
				return err
			}
			cancelled = updated
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotConfirmed) {
			return nil, apperrors.BookingNotFound(bookingID)
		}
		return nil, s.mapLedgerError(ctx, log, err, existing.SlotID, "Failed to cancel booking")
	}

	if err := s.attachSlots(ctx, []*model.Booking{cancelled}); err != nil {
		log.Warn("Failed to load slot times for cancelled booking", "error", err)
	}

	log.Info("Booking cancelled successfully", "slot_id", cancelled.SlotID)
	s.publish(ctx, log, events.TypeBookingCancelled, cancelled)
	return cancelled, nil
}

func (s *bookingService) ListMine(ctx context.Context, userID string) ([]*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Caller identity is required")
	}

	bookings, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings for user", "user_id", userID, "error", err)
		return nil, storageError("Failed to retrieve bookings", err)
	}

	if err := s.attachSlots(ctx, bookings); err != nil {
		s.cfg.Log.Error("Failed to load slot times for bookings", "user_id", userID, "error", err)
		return nil, storageError("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	count, err := s.repo.Count(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "error", err)
		return nil, 0, storageError("Failed to count bookings", err)
	}

	bookings, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, 0, storageError("Failed to retrieve bookings", err)
	}

	if err := s.attachSlots(ctx, bookings); err != nil {
		s.cfg.Log.Error("Failed to load slot times for bookings", "error", err)
		return nil, 0, storageError("Failed to retrieve bookings", err)
	}
	return bookings, count, nil
}

// attachSlots fills each booking's slot window with one batched lookup.
// Bookings whose slot was deleted keep a nil window.
func (s *bookingService) attachSlots(ctx context.Context, bookings []*model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.SlotID]; ok {
			continue
		}
		seen[b.SlotID] = struct{}{}
		ids = append(ids, b.SlotID)
	}

	slots, err := s.slotRepo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}

	windows := make(map[string]*model.SlotWindow, len(slots))
	for _, slot := range slots {
		windows[slot.ID] = slot.Window()
	}
	for _, b := range bookings {
		b.Slot = windows[b.SlotID]
	}
	return nil
}

// withRetry runs op until it succeeds, fails with anything other than a
// write conflict, or uses up ClaimMaxAttempts. Attempt i waits
// ClaimBackoffBase * 2^i before the next one.
func (s *bookingService) withRetry(ctx context.Context, log *logger.Logger, op func(ctx context.Context) error) error {
	maxAttempts := max(1, s.cfg.ClaimMaxAttempts)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			log.Debug("Attempt succeeded", "attempt", attempt+1)
			return nil
		}

		if !mongotx.IsWriteConflict(err) {
			log.Warn("Attempt failed", "attempt", attempt+1, "error", err)
			return err
		}

		lastErr = err
		log.Warn("Attempt hit a write conflict", "attempt", attempt+1, "max_attempts", maxAttempts, "error", err)
		if attempt == maxAttempts-1 {
			break
		}

		backoff := s.cfg.ClaimBackoffBase * time.Duration(1<<attempt)
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}

	return apperrors.Transient(apperrors.CodeWriteConflict,
		"The slot is busy, please try again", lastErr).
		WithDetails(map[string]any{"retryable": true, "attempts": maxAttempts})
}

// mapLedgerError keeps AppErrors raised inside the transaction and turns
// storage failures into the caller-facing taxonomy.
func (s *bookingService) mapLedgerError(ctx context.Context, log *logger.Logger, err error, slotID, msg string) error {
	if apperrors.IsAppError(err) {
		return err
	}

	switch {
	case ctx.Err() != nil, errors.Is(err, mongotx.ErrTimeout):
		log.Warn("Operation deadline exceeded", "error", err)
		return apperrors.Transient(apperrors.CodeTimeout, "The request timed out, please try again", err)
	case errors.Is(err, mongotx.ErrDuplicateKey), errors.Is(err, slotserrors.ErrAlreadyBooked):
		return apperrors.SlotAlreadyBooked(slotID)
	case errors.Is(err, slotserrors.ErrNotFound), errors.Is(err, slotserrors.ErrInvalidID):
		return apperrors.SlotNotFound(slotID)
	case errors.Is(err, slotserrors.ErrHolderRequired):
		log.Error("Refused to mark slot booked without a holder", "error", err)
		return apperrors.Precondition("A booked slot requires a holder", err)
	default:
		log.Error(msg, "error", err)
		return storageError(msg, err)
	}
}

// withDeadline applies ClaimTimeout only when the caller set no deadline.
func (s *bookingService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.cfg.ClaimTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.ClaimTimeout)
}

// publish runs after commit. A lost event never undoes a committed change.
func (s *bookingService) publish(ctx context.Context, log *logger.Logger, eventType string, booking *model.Booking) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), eventType, booking); err != nil {
		log.Error("Failed to publish booking event", "event_type", eventType, "booking_id", booking.ID, "error", err)
	}
}

func storageError(msg string, err error) error {
	if errors.Is(err, mongotx.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Transient(apperrors.CodeTimeout, msg, err)
	}
	return apperrors.Transient(apperrors.CodeTransient, msg, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
