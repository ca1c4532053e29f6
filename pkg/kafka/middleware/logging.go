package kafka_middleware

import (
	"context"
	"time"

	"voucherdesk/pkg/kafka"
	"voucherdesk/pkg/logger"
)

// LoggingProducerMiddleware logs message publishing operations
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		log.Debug("Publishing message",
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
		)

		err := next(ctx, msg)

		duration := time.Since(start)

		if err != nil {
			log.Error("Failed to publish message",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"duration", duration,
				"error", err,
			)
		} else {
			log.Info("Published message",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"duration", duration,
			)
		}

		return err
	}
}
