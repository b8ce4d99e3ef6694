package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/medium-stack/mstack/common/config"
	"github.com/medium-stack/mstack/common/logger"
)

// DB wraps the mongo client with common operations
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
	log      *logger.Logger
}

// New creates a new database connection
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	opts := options.Client().
		ApplyURI(cfg.Database.URI).
		SetMaxPoolSize(cfg.Database.MaxPoolSize).
		SetConnectTimeout(cfg.Database.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connected", "db", cfg.Database.Database)

	return &DB{
		Client:   client,
		Database: client.Database(cfg.Database.Database),
		log:      log,
	}, nil
}

// Collection returns a handle to the named collection
func (db *DB) Collection(name string) *mongo.Collection {
	return db.Database.Collection(name)
}

// WithTransaction runs fn inside a multi-document transaction. The callback
// must use the session context it receives for every operation.
func (db *DB) WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := db.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the unique cid index on each content collection.
// Safe to call on every startup.
func (db *DB) EnsureIndexes(ctx context.Context, collections []string) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "cid", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	for _, name := range collections {
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create cid index on %s: %w", name, err)
		}
	}

	db.log.Info("indexes ensured", "collections", len(collections))
	return nil
}

// Close disconnects from the database
func (db *DB) Close(ctx context.Context) {
	db.log.Info("closing database connection")
	if err := db.Client.Disconnect(ctx); err != nil {
		db.log.Error("database disconnect failed", "error", err)
	}
}

// Health checks database health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.Client.Ping(ctx, readpref.Primary())
}
