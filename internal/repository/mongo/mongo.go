// Package mongo implements the repository interfaces on MongoDB.
//
// WHY A DOCUMENT STORE?
// The data model is two flat collections with single-document writes and
// lookups by one field at a time — no joins, no transactions. MongoDB's
// unique indexes give us the only consistency guarantee this app needs:
// concurrent registrations with the same email race at the store, and the
// index decides the winner.
//
// DRIVER OVERVIEW (go.mongodb.org/mongo-driver):
//   - mongo.Client     — a connection pool, created once at startup
//   - mongo.Collection — handle to one collection, cheap to keep around
//   - bson.M / bson.D  — filter and document literals
//   - options.*        — fluent option builders (SetUnique, SetUpsert, ...)
//
// Decode returns mongo.ErrNoDocuments for an empty result; write conflicts on
// a unique index surface as a WriteException with code 11000. Both are
// translated to apperror sentinels here so nothing above this package ever
// imports the driver.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection       = "users"
	engagementsCollection = "engagements"

	connectTimeout = 10 * time.Second
)

// DB owns the Mongo client and exposes the two collection repositories.
// Created once in server.New, closed on shutdown.
type DB struct {
	client      *mongo.Client
	users       *mongo.Collection
	engagements *mongo.Collection
}

// New connects to MongoDB, pings it, and ensures the unique indexes exist.
//
// INDEXES AS THE SOURCE OF TRUTH:
//   - users.email       unique         → one account per email
//   - users.username    unique         → display names are unique system-wide
//   - users.twitter_id  unique+sparse  → one account per Twitter identity;
//     sparse so unlinked accounts (no twitter_id field) don't collide
//   - engagements.user_id unique       → at most one snapshot per account
//
// Index creation is idempotent — CreateMany is a no-op for indexes that
// already exist with the same definition.
func New(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting to %s: %w", uri, err)
	}

	// Connect is lazy — ping to fail fast on a bad URI or unreachable server.
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging server: %w", err)
	}

	database := client.Database(dbName)
	db := &DB{
		client:      client,
		users:       database.Collection(usersCollection),
		engagements: database.Collection(engagementsCollection),
	}

	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "twitter_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating users indexes: %w", err)
	}

	_, err = db.engagements.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo: creating engagements index: %w", err)
	}

	return nil
}

// Close disconnects the client, waiting up to connectTimeout for in-flight
// operations to drain.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnecting: %w", err)
	}
	return nil
}
