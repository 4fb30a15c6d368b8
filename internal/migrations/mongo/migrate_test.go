package mongo

import (
	"testing"

	bookingsrepository "github.com/Maghvendra09/appointment-booking/internal/bookings/repository"
	slotsrepository "github.com/Maghvendra09/appointment-booking/internal/slots/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_CoverLedger(t *testing.T) {
	defs := Collections()
	require.Contains(t, defs, slotsrepository.CollectionName)
	require.Contains(t, defs, bookingsrepository.CollectionName)

	for name, def := range defs {
		assert.NotEmpty(t, def.Indexes, name)
		assert.Contains(t, def.Validator, "$jsonSchema", name)
	}
}

func TestSlotsIndexes_UniqueStartEnd(t *testing.T) {
	idx := SlotsIndexes[0]
	assert.Equal(t, bson.D{{Key: "start_time", Value: 1}, {Key: "end_time", Value: 1}}, idx.Keys)
	require.NotNil(t, idx.Options.Unique)
	assert.True(t, *idx.Options.Unique)
}

func TestBookingsIndexes_Uniqueness(t *testing.T) {
	userSlot := BookingsIndexes[0]
	require.NotNil(t, userSlot.Options.Unique)
	assert.True(t, *userSlot.Options.Unique)
	assert.Nil(t, userSlot.Options.PartialFilterExpression)

	confirmed := BookingsIndexes[1]
	assert.Equal(t, bson.D{{Key: "slot_id", Value: 1}}, confirmed.Keys)
	require.NotNil(t, confirmed.Options.Unique)
	assert.True(t, *confirmed.Options.Unique)
	assert.Equal(t, bson.M{"status": "confirmed"}, confirmed.Options.PartialFilterExpression)
}
