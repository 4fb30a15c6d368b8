package service

import (
	"context"
	"errors"
	"sync"
	"time"

	slotserrors "github.com/Maghvendra09/appointment-booking/internal/slots/errors"
	"github.com/Maghvendra09/appointment-booking/internal/slots/repository"
	"github.com/Maghvendra09/appointment-booking/internal/slots/validator"
	"github.com/Maghvendra09/appointment-booking/pkg/config"
	mongotx "github.com/Maghvendra09/appointment-booking/pkg/db/mongo"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	"github.com/Maghvendra09/appointment-booking/pkg/model"
)

type SlotService interface {
	ListAvailable(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, int64, error)
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	Import(ctx context.Context, req *model.SlotImport) ([]*model.Slot, error)
	Delete(ctx context.Context, id string) error
}

type slotService struct {
	repo      repository.SlotRepository
	txManager mongotx.TransactionManager
	validator *validator.SlotValidator
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	txManager mongotx.TransactionManager,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		txManager: txManager,
		validator: validator,
		cfg:       cfg,
	}
}

// ListAvailable reads outside any transaction; a slot listed here may be
// claimed by someone else before the caller acts on it.
func (s *slotService) ListAvailable(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, int64, error) {
	if to.Before(from) {
		return nil, 0, apperrors.InvalidInput("'to' must not be before 'from'")
	}

	var count int64
	var slots []*model.Slot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountAvailable(ctx, from, to)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count available slots", "error", errCount)
			errCount = storageError("Failed to count available slots", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		slots, errFind = s.repo.FindAvailable(ctx, from, to, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list available slots", "error", errFind)
			errFind = storageError("Failed to retrieve available slots", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	if slots == nil {
		slots = []*model.Slot{}
	}
	return slots, count, nil
}

func (s *slotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "Failed to retrieve slot")
	}
	return slot, nil
}

// Import inserts the batch as available slots. The batch is all or nothing.
func (s *slotService) Import(ctx context.Context, req *model.SlotImport) ([]*model.Slot, error) {
	if err := s.validator.ValidateImport(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			details := make(map[string]any, len(validationErrs))
			for _, ve := range validationErrs {
				details[ve.Field] = ve.Message
			}
			return nil, apperrors.Validation("Slot import validation failed", details)
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	slots := make([]*model.Slot, 0, len(req.Slots))
	for _, in := range req.Slots {
		slots = append(slots, &model.Slot{
			StartTime: in.StartTime.UTC().Truncate(time.Millisecond),
			EndTime:   in.EndTime.UTC().Truncate(time.Millisecond),
		})
	}

	err := s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.CreateMany(txCtx, slots)
	})
	if err != nil {
		if errors.Is(err, slotserrors.ErrExists) || errors.Is(err, mongotx.ErrDuplicateKey) {
			return nil, apperrors.SlotExists()
		}
		s.cfg.Log.Error("Failed to import slots", "count", len(slots), "error", err)
		return nil, storageError("Failed to import slots", err)
	}

	s.cfg.Log.Info("Slots imported successfully", "count", len(slots))
	return slots, nil
}

// Delete removes a slot only while nobody holds it.
func (s *slotService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	if err := s.repo.DeleteIfAvailable(ctx, id); err != nil {
		if errors.Is(err, slotserrors.ErrAlreadyBooked) {
			return apperrors.SlotAlreadyBooked(id)
		}
		return s.mapError(err, id, "Failed to delete slot")
	}

	s.cfg.Log.Info("Slot deleted successfully", "id", id)
	return nil
}

func (s *slotService) mapError(err error, id, msg string) error {
	switch {
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.SlotNotFound(id)
	case errors.Is(err, slotserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid slot ID format")
	default:
		s.cfg.Log.Error(msg, "id", id, "error", err)
		return storageError(msg, err)
	}
}

func storageError(msg string, err error) error {
	if errors.Is(err, mongotx.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Transient(apperrors.CodeTimeout, msg, err)
	}
	return apperrors.Transient(apperrors.CodeTransient, msg, err)
}
