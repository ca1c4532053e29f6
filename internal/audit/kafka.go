package audit

import (
	"context"
	"fmt"

	"voucherdesk/internal/voucher"
	"voucherdesk/pkg/kafka"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaRecorder publishes one message per settled submission, keyed by
// flight and date.
type KafkaRecorder struct {
	publisher Publisher
	source    string
}

func NewKafkaRecorder(publisher Publisher, source string) *KafkaRecorder {
	return &KafkaRecorder{publisher: publisher, source: source}
}

func (r *KafkaRecorder) Record(ctx context.Context, report voucher.Report) error {
	event := NewEvent(report)

	msg, err := kafka.NewMessage().
		WithKey(event.PartitionKey()).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(EventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(r.source).
		WithTimestamp(event.SettledAt).
		Build()
	if err != nil {
		return fmt.Errorf("build outcome message: %w", err)
	}

	if err := r.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish outcome event: %w", err)
	}
	return nil
}
