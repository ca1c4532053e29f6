package validators

import "go.mongodb.org/mongo-driver/bson"

var SubmissionOutcomeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"event_id", "session_id", "submission_id", "kind",
			"flight_number", "flight_date", "started_at", "settled_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":           bson.M{"bsonType": "objectId"},
			"event_id":      bson.M{"bsonType": "string"},
			"session_id":    bson.M{"bsonType": "string"},
			"submission_id": bson.M{"bsonType": "string"},
			"kind": bson.M{
				"enum": []string{
					"success", "validation_error", "connection_error",
					"malformed_response", "business_error",
				},
			},
			"step":          bson.M{"bsonType": "string"},
			"message":       bson.M{"bsonType": "string"},
			"seats":         bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			"flight_number": bson.M{"bsonType": "string"},
			"flight_date":   bson.M{"bsonType": "string"},
			"aircraft":      bson.M{"bsonType": "string"},
			"crew_id":       bson.M{"bsonType": "string"},
			"started_at":    bson.M{"bsonType": "date"},
			"settled_at":    bson.M{"bsonType": "date"},
		},
	},
}
