package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "github.com/Maghvendra09/appointment-booking/internal/slots/errors"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"
	"github.com/Maghvendra09/appointment-booking/pkg/model"
)

const (
	FindingHolderMismatch   = "holder_mismatch"
	FindingOrphanedSlot     = "booked_without_booking"
	FindingUnbackedBooking  = "booking_without_booked_slot"
	FindingDuplicateBooking = "duplicate_confirmed_booking"
)

type Finding struct {
	Kind      string `json:"kind"`
	SlotID    string `json:"slot_id"`
	BookingID string `json:"booking_id,omitempty"`
	Detail    string `json:"detail"`
}

// Err reports the finding as a precondition violation.
func (f Finding) Err() *apperrors.AppError {
	return apperrors.Precondition(f.Detail, nil).WithDetails(map[string]any{
		"kind":       f.Kind,
		"slot_id":    f.SlotID,
		"booking_id": f.BookingID,
	})
}

type Report struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	SlotsChecked    int           `json:"slots_checked"`
	BookingsChecked int           `json:"bookings_checked"`
	Findings        []Finding     `json:"findings"`
}

func (r *Report) Clean() bool {
	return len(r.Findings) == 0
}

type SlotReader interface {
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindInconsistent(ctx context.Context) ([]*model.Slot, error)
	FindBooked(ctx context.Context) ([]*model.Slot, error)
}

type BookingReader interface {
	FindAllConfirmed(ctx context.Context) ([]*model.Booking, error)
}

// Auditor cross-checks slots against confirmed bookings. It only reports;
// nothing it finds is repaired.
type Auditor struct {
	slots    SlotReader
	bookings BookingReader
	log      *logger.Logger
}

func NewAuditor(slots SlotReader, bookings BookingReader, log *logger.Logger) *Auditor {
	return &Auditor{
		slots:    slots,
		bookings: bookings,
		log:      log,
	}
}

func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC(), Findings: []Finding{}}

	inconsistent, err := a.slots.FindInconsistent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inconsistent slots: %w", err)
	}
	for _, slot := range inconsistent {
		report.add(Finding{
			Kind:   FindingHolderMismatch,
			SlotID: slot.ID,
			Detail: fmt.Sprintf("slot booked=%t with holder %q", slot.Booked, slot.Holder),
		})
	}

	booked, err := a.slots.FindBooked(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked slots: %w", err)
	}
	confirmed, err := a.bookings.FindAllConfirmed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmed bookings: %w", err)
	}
	report.BookingsChecked = len(confirmed)

	checked := make(map[string]struct{}, len(booked)+len(inconsistent))
	for _, slot := range inconsistent {
		checked[slot.ID] = struct{}{}
	}

	bySlot := make(map[string][]*model.Booking, len(confirmed))
	for _, b := range confirmed {
		bySlot[b.SlotID] = append(bySlot[b.SlotID], b)
	}

	bookedByID := make(map[string]*model.Slot, len(booked))
	for _, slot := range booked {
		bookedByID[slot.ID] = slot
		checked[slot.ID] = struct{}{}

		matches := bySlot[slot.ID]
		switch {
		case len(matches) == 0:
			report.add(Finding{
				Kind:   FindingOrphanedSlot,
				SlotID: slot.ID,
				Detail: fmt.Sprintf("slot is booked by %q but has no confirmed booking", slot.Holder),
			})
		case matches[0].UserID != slot.Holder:
			report.add(Finding{
				Kind:      FindingHolderMismatch,
				SlotID:    slot.ID,
				BookingID: matches[0].ID,
				Detail:    fmt.Sprintf("slot holder %q differs from booking owner %q", slot.Holder, matches[0].UserID),
			})
		}
	}

	for slotID, matches := range bySlot {
		if len(matches) > 1 {
			report.add(Finding{
				Kind:   FindingDuplicateBooking,
				SlotID: slotID,
				Detail: fmt.Sprintf("slot has %d confirmed bookings", len(matches)),
			})
		}
		if _, ok := bookedByID[slotID]; ok {
			continue
		}

		detail := "booking is confirmed but its slot is not booked"
		if _, err := a.slots.FindByID(ctx, slotID); errors.Is(err, slotserrors.ErrNotFound) {
			detail = "booking is confirmed but its slot no longer exists"
		} else if err != nil {
			return nil, fmt.Errorf("failed to load slot %s: %w", slotID, err)
		}
		for _, b := range matches {
			report.add(Finding{
				Kind:      FindingUnbackedBooking,
				SlotID:    slotID,
				BookingID: b.ID,
				Detail:    detail,
			})
		}
	}

	report.SlotsChecked = len(checked)
	report.Duration = time.Since(report.StartedAt)
	a.logReport(report)
	return report, nil
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

func (a *Auditor) logReport(report *Report) {
	for _, f := range report.Findings {
		a.log.Error("Ledger invariant violated",
			"code", apperrors.CodePreconditionFailed,
			"kind", f.Kind,
			"slot_id", f.SlotID,
			"booking_id", f.BookingID,
			"detail", f.Detail,
		)
	}

	a.log.Info("Ledger audit finished",
		"slots_checked", report.SlotsChecked,
		"bookings_checked", report.BookingsChecked,
		"findings", len(report.Findings),
		"duration", report.Duration,
	)
}
