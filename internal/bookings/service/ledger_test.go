package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bookingserrors "github.com/Maghvendra09/appointment-booking/internal/bookings/errors"
	slotserrors "github.com/Maghvendra09/appointment-booking/internal/slots/errors"
	mongotx "github.com/Maghvendra09/appointment-booking/pkg/db/mongo"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	"github.com/Maghvendra09/appointment-booking/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ────────────────────────────────────────────────
// In-memory ledger
// ────────────────────────────────────────────────

// memLedger stands in for both repositories. Transactions are serialised
// behind one mutex and roll back on error, and the uniqueness rules of the
// real indexes are enforced on insert.
type memLedger struct {
	mu       sync.Mutex
	slots    map[string]model.Slot
	bookings map[string]model.Booking
	txCount  int

	slotLookups int
}

type inTxKey struct{}

func newMemLedger() *memLedger {
	return &memLedger{
		slots:    make(map[string]model.Slot),
		bookings: make(map[string]model.Booking),
	}
}

func (l *memLedger) addSlot(start time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := primitive.NewObjectID().Hex()
	l.slots[id] = model.Slot{
		ID:        id,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}
	return id
}

func (l *memLedger) slot(id string) model.Slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slots[id]
}

func (l *memLedger) confirmedFor(slotID string) []model.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Booking
	for _, b := range l.bookings {
		if b.SlotID == slotID && b.IsConfirmed() {
			out = append(out, b)
		}
	}
	return out
}

// consistent reports whether every slot is booked exactly when a confirmed
// booking by its holder references it.
func (l *memLedger) consistent() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, s := range l.slots {
		if !s.Consistent() {
			return fmt.Errorf("slot %s: booked=%v holder=%q", id, s.Booked, s.Holder)
		}
		var confirmed []model.Booking
		for _, b := range l.bookings {
			if b.SlotID == id && b.IsConfirmed() {
				confirmed = append(confirmed, b)
			}
		}
		if len(confirmed) > 1 {
			return fmt.Errorf("slot %s: %d confirmed bookings", id, len(confirmed))
		}
		if s.Booked != (len(confirmed) == 1) {
			return fmt.Errorf("slot %s: booked=%v with %d confirmed bookings", id, s.Booked, len(confirmed))
		}
		if s.Booked && confirmed[0].UserID != s.Holder {
			return fmt.Errorf("slot %s: holder %q but booking owned by %q", id, s.Holder, confirmed[0].UserID)
		}
	}
	return nil
}

func (l *memLedger) lock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	l.mu.Lock()
	return l.mu.Unlock
}

func (l *memLedger) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txCount++

	slots := make(map[string]model.Slot, len(l.slots))
	for k, v := range l.slots {
		slots[k] = v
	}
	bookings := make(map[string]model.Booking, len(l.bookings))
	for k, v := range l.bookings {
		bookings[k] = v
	}

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		l.slots = slots
		l.bookings = bookings
		if apperrors.IsAppError(err) {
			return err
		}
		return mongotx.Classify(err)
	}
	return nil
}

// Booking repository

func (l *memLedger) Create(ctx context.Context, booking *model.Booking) error {
	defer l.lock(ctx)()

	for _, b := range l.bookings {
		if b.UserID == booking.UserID && b.SlotID == booking.SlotID {
			return fmt.Errorf("failed to create booking: %w", mongotx.ErrDuplicateKey)
		}
		if b.SlotID == booking.SlotID && b.IsConfirmed() {
			return fmt.Errorf("failed to create booking: %w", mongotx.ErrDuplicateKey)
		}
	}

	now := time.Now().UTC()
	booking.ID = primitive.NewObjectID().Hex()
	booking.Status = model.BookingConfirmed
	booking.CreatedAt = now
	booking.UpdatedAt = now
	l.bookings[booking.ID] = *booking
	return nil
}

func (l *memLedger) FindConfirmedBySlot(ctx context.Context, slotID string) (*model.Booking, error) {
	defer l.lock(ctx)()

	for _, b := range l.bookings {
		b := b
		if b.SlotID == slotID && b.IsConfirmed() {
			return &b, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (l *memLedger) FindConfirmedByIDAndUser(ctx context.Context, id string, userID string) (*model.Booking, error) {
	defer l.lock(ctx)()

	b, ok := l.bookings[id]
	if !ok || b.UserID != userID || !b.IsConfirmed() {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (l *memLedger) MarkCancelled(ctx context.Context, id string) (*model.Booking, error) {
	defer l.lock(ctx)()

	b, ok := l.bookings[id]
	if !ok || !b.IsConfirmed() {
		return nil, bookingserrors.ErrNotConfirmed
	}
	b.Status = model.BookingCancelled
	b.UpdatedAt = time.Now().UTC()
	l.bookings[id] = b
	return &b, nil
}

func (l *memLedger) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	defer l.lock(ctx)()

	out := []*model.Booking{}
	for _, b := range l.bookings {
		b := b
		if b.UserID == userID {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (l *memLedger) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	defer l.lock(ctx)()

	out := []*model.Booking{}
	for _, b := range l.bookings {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if offset >= int64(len(out)) {
		return []*model.Booking{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (l *memLedger) FindAllConfirmed(ctx context.Context) ([]*model.Booking, error) {
	defer l.lock(ctx)()

	out := []*model.Booking{}
	for _, b := range l.bookings {
		b := b
		if b.IsConfirmed() {
			out = append(out, &b)
		}
	}
	return out, nil
}

func (l *memLedger) Count(ctx context.Context) (int64, error) {
	defer l.lock(ctx)()
	return int64(len(l.bookings)), nil
}

// Slot repository

func (l *memLedger) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	defer l.lock(ctx)()

	s, ok := l.slots[id]
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	return &s, nil
}

func (l *memLedger) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	defer l.lock(ctx)()
	l.slotLookups++

	out := []*model.Slot{}
	for _, id := range ids {
		if s, ok := l.slots[id]; ok {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (l *memLedger) FindAvailable(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, error) {
	return nil, nil
}

func (l *memLedger) CountAvailable(ctx context.Context, from, to time.Time) (int64, error) {
	return 0, nil
}

func (l *memLedger) FindInconsistent(ctx context.Context) ([]*model.Slot, error) {
	return nil, nil
}

func (l *memLedger) FindBooked(ctx context.Context) ([]*model.Slot, error) {
	return nil, nil
}

func (l *memLedger) CreateMany(ctx context.Context, slots []*model.Slot) error {
	return nil
}

func (l *memLedger) MarkBooked(ctx context.Context, id string, holder string) error {
	if holder == "" {
		return slotserrors.ErrHolderRequired
	}
	defer l.lock(ctx)()

	s, ok := l.slots[id]
	if !ok || s.Booked {
		return slotserrors.ErrAlreadyBooked
	}
	s.Booked = true
	s.Holder = holder
	l.slots[id] = s
	return nil
}

func (l *memLedger) MarkAvailable(ctx context.Context, id string) error {
	defer l.lock(ctx)()

	s, ok := l.slots[id]
	if !ok {
		return nil
	}
	s.Booked = false
	s.Holder = ""
	l.slots[id] = s
	return nil
}

func (l *memLedger) DeleteIfAvailable(ctx context.Context, id string) error {
	defer l.lock(ctx)()

	s, ok := l.slots[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	if s.Booked {
		return slotserrors.ErrAlreadyBooked
	}
	delete(l.slots, id)
	return nil
}
