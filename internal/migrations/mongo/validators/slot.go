package validators

import "go.mongodb.org/mongo-driver/bson"

// SlotValidator rejects documents where the holder and the booked flag
// disagree: a booked slot needs a non-empty holder, an available one has none.
var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"start_time",
			"end_time",
			"booked",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"booked": bson.M{
				"bsonType": "bool",
			},

			"holder": bson.M{
				"bsonType":  "string",
				"maxLength": 128,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},

		"oneOf": []bson.M{
			{
				"required": []string{"holder"},
				"properties": bson.M{
					"booked": bson.M{"enum": []bool{true}},
					"holder": bson.M{"bsonType": "string", "minLength": 1},
				},
			},
			{
				"properties": bson.M{
					"booked": bson.M{"enum": []bool{false}},
					"holder": bson.M{"bsonType": "string", "maxLength": 0},
				},
			},
		},
	},
}
