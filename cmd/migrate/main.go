package main

import (
	"context"
	"time"

	mongoMigration "voucherdesk/internal/migrations/mongo"
	"voucherdesk/pkg/config"
)

const JobName = "voucher-migrate"

func main() {
	cfg := config.Load(JobName)
	if !cfg.MongoEnabled() {
		cfg.Log.Fatal("MONGO_URI is required for migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
