package client

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voucherdesk/pkg/logger"
)

type Client struct {
	Voucher *VoucherClient
	Mongo   *mongo.Client
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetVoucherClient(baseURL string, timeout time.Duration) {
	c.Voucher = NewVoucherClient(baseURL, timeout)
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB",
			"error", err,
		)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

func (c *Client) GracefulShutdown(ctx context.Context) error {
	if c.Mongo == nil {
		return nil
	}
	return c.Mongo.Disconnect(ctx)
}
