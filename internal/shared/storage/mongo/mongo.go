package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a client for the configured deployment and verifies
// connectivity. The client is constructed once at process start, shared by all
// repositories, and closed on shutdown via the returned close func; the driver
// is safe for concurrent use.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, nil, fmt.Errorf("MONGO_URI is empty")
	}
	if strings.TrimSpace(database) == "" {
		return nil, nil, fmt.Errorf("mongo database name is empty")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(database), client.Disconnect, nil
}
