package main

import (
	"voucherdesk/internal/audit"
	"voucherdesk/internal/voucher"
	"voucherdesk/internal/web"
	"voucherdesk/pkg/app"
	"voucherdesk/pkg/config"
	"voucherdesk/pkg/formdef"
	"voucherdesk/pkg/kafka"
	kafka_config "voucherdesk/pkg/kafka/config"
	kafka_middleware "voucherdesk/pkg/kafka/middleware"
	"voucherdesk/pkg/middleware"
	"voucherdesk/pkg/sealer"
)

const ServiceName = "voucher-web"

func main() {
	cfg := config.Load(ServiceName)

	def, err := formdef.Load(cfg.FormDefinitionFile, voucher.Fields)
	if err != nil {
		cfg.Log.Fatal("Failed to load form definition", "error", err)
	}

	var workers []app.Stopper

	recorder, producer := initRecorders(cfg)
	if producer != nil {
		workers = append(workers, app.StopFunc(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}))
	}

	controller := voucher.NewController(cfg.Client.Voucher, cfg.Log)
	store := web.NewSessionStore(cfg.SessionTTL, func() *voucher.Screen {
		return voucher.NewScreen(controller, recorder, cfg.Log)
	}, cfg.Log)

	limiter := middleware.NewKeyedRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.Log)

	cookieSealer, err := sealer.New(cfg.SessionKey)
	if err != nil {
		cfg.Log.Fatal("Invalid session key", "error", err)
	}

	screenHandler, err := web.NewScreenHandler(store, cookieSealer, limiter, def, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise screen handler", "error", err)
	}

	healthHandler := web.NewHealthHandler(cfg.Client.Voucher, cfg.Log)
	if cfg.Client.Mongo != nil {
		healthHandler.WithMongo(cfg.Client.Mongo)
	}

	// Sessions stop before the producer so in-flight submissions are
	// discarded rather than recorded against a closed writer.
	workers = append([]app.Stopper{store, limiter}, workers...)

	application := app.NewApplication(cfg)
	application.SetApp(healthHandler, screenHandler, workers...)
	application.Run()
}

func initRecorders(cfg *config.Config) (voucher.Recorder, *kafka.Producer) {
	var recorders []voucher.Recorder

	if cfg.MongoEnabled() {
		cfg.SetMongo()
		db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
		recorders = append(recorders, audit.NewMongoRecorder(db))
		cfg.Log.Info("Submission outcomes recorded to MongoDB", "collection", audit.CollectionName)
	}

	var producer *kafka.Producer
	if cfg.KafkaEnabled() {
		kafkaCfg, err := kafka_config.Load(cfg.KafkaBrokers)
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log.Info)

		producer, err = kafka.NewProducer(kafkaCfg, cfg.KafkaTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		}
		recorders = append(recorders, audit.NewKafkaRecorder(producer, ServiceName))
		cfg.Log.Info("Submission outcomes published to Kafka", "topic", cfg.KafkaTopic)
	}

	return audit.New(recorders...), producer
}
