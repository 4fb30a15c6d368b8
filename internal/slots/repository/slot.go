package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "github.com/Maghvendra09/appointment-booking/internal/slots/errors"
	"github.com/Maghvendra09/appointment-booking/pkg/config"
	mongotx "github.com/Maghvendra09/appointment-booking/pkg/db/mongo"
	"github.com/Maghvendra09/appointment-booking/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slots"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

type SlotRepository interface {
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error)
	FindAvailable(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, error)
	CountAvailable(ctx context.Context, from, to time.Time) (int64, error)
	FindInconsistent(ctx context.Context) ([]*model.Slot, error)
	FindBooked(ctx context.Context) ([]*model.Slot, error)
	CreateMany(ctx context.Context, slots []*model.Slot) error
	MarkBooked(ctx context.Context, id string, holder string) error
	MarkAvailable(ctx context.Context, id string) error
	DeleteIfAvailable(ctx context.Context, id string) error
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", mongotx.Classify(err))
	}

	return &slot, nil
}

// FindByIDs returns the slots that exist among ids. Malformed ids are
// skipped.
func (r *mongoSlotRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	if len(objectIDs) == 0 {
		return []*model.Slot{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, options.Find())
}

func (r *mongoSlotRepository) FindAvailable(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, availableFilter(from, to), opts)
}

func (r *mongoSlotRepository) CountAvailable(ctx context.Context, from, to time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, availableFilter(from, to))
	if err != nil {
		return 0, fmt.Errorf("failed to count available slots: %w", mongotx.Classify(err))
	}
	return count, nil
}

// FindInconsistent returns slots whose booked flag and holder disagree.
func (r *mongoSlotRepository) FindInconsistent(ctx context.Context) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"$or": bson.A{
			bson.M{"booked": true, "holder": bson.M{"$in": bson.A{"", nil}}},
			bson.M{"booked": false, "holder": bson.M{"$nin": bson.A{"", nil}}},
		},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
}

func (r *mongoSlotRepository) FindBooked(ctx context.Context) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.find(ctx, bson.M{"booked": true}, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
}

func (r *mongoSlotRepository) CreateMany(ctx context.Context, slots []*model.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(slots))
	for _, slot := range slots {
		slot.Booked = false
		slot.Holder = ""
		slot.CreatedAt = now
		slot.UpdatedAt = now
		docs = append(docs, slot)
	}

	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", slotserrors.ErrExists, mongotx.Classify(err))
		}
		return fmt.Errorf("failed to create slots: %w", mongotx.Classify(err))
	}

	for i, insertedID := range result.InsertedIDs {
		if oid, ok := insertedID.(primitive.ObjectID); ok && i < len(slots) {
			slots[i].ID = oid.Hex()
		}
	}
	return nil
}

// MarkBooked flips an available slot to booked for holder. The write only
// applies while the slot is still available, so a concurrent booking that
// committed first makes it fail with ErrAlreadyBooked.
func (r *mongoSlotRepository) MarkBooked(ctx context.Context, id string, holder string) error {
	if holder == "" {
		return slotserrors.ErrHolderRequired
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "booked": false}
	update := bson.M{
		"$set": bson.M{
			"booked":     true,
			"holder":     holder,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark slot booked: %w", mongotx.Classify(err))
	}
	if result.MatchedCount == 0 {
		return slotserrors.ErrAlreadyBooked
	}
	return nil
}

// MarkAvailable frees a slot and clears its holder. A missing slot is not an
// error: cancelling a booking must still succeed when its slot is gone.
func (r *mongoSlotRepository) MarkAvailable(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"booked":     false,
			"holder":     "",
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update); err != nil {
		return fmt.Errorf("failed to mark slot available: %w", mongotx.Classify(err))
	}
	return nil
}

func (r *mongoSlotRepository) DeleteIfAvailable(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "booked": false})
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", mongotx.Classify(err))
	}
	if result.DeletedCount > 0 {
		return nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to check slot existence: %w", mongotx.Classify(err))
	}
	if count == 0 {
		return slotserrors.ErrNotFound
	}
	return slotserrors.ErrAlreadyBooked
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Slot, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", mongotx.Classify(err))
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", mongotx.Classify(err))
	}

	return slots, nil
}

func availableFilter(from, to time.Time) bson.M {
	return bson.M{
		"booked": false,
		"start_time": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}
}
