package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI            string `split_words:"true" required:"true"`
	Database       string `split_words:"true" default:"agridelivery"`
	ConnectTimeout int    `split_words:"true" default:"10"`
	SelectTimeout  int    `split_words:"true" default:"5"`
	MaxPoolSize    uint64 `split_words:"true" default:"50"`
}

// New connects, pings, and returns the configured database handle.
func (c *Config) New(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, time.Duration(c.ConnectTimeout)*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(c.URI).
		SetMaxPoolSize(c.MaxPoolSize).
		SetServerSelectionTimeout(time.Duration(c.SelectTimeout) * time.Second).
		SetConnectTimeout(time.Duration(c.ConnectTimeout) * time.Second)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, nil, err
	}

	return client, client.Database(c.Database), nil
}
