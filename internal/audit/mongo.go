package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voucherdesk/internal/voucher"
)

const (
	CollectionName = "submission_outcomes"
)

// Inserter is the part of *mongo.Collection the recorder writes through.
type Inserter interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type MongoRecorder struct {
	collection Inserter
}

func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return NewMongoRecorderWithCollection(db.Collection(CollectionName))
}

func NewMongoRecorderWithCollection(collection Inserter) *MongoRecorder {
	return &MongoRecorder{collection: collection}
}

func (r *MongoRecorder) Record(ctx context.Context, report voucher.Report) error {
	event := NewEvent(report)
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert outcome %s: %w", event.SubmissionID, err)
	}
	return nil
}
