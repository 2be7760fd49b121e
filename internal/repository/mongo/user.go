package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arefin/fellowdash/internal/apperror"
	"github.com/arefin/fellowdash/internal/model"
	"github.com/arefin/fellowdash/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Insert creates a new user document and fills in user.ID and user.CreatedAt.
//
// A unique-index violation (email, username, or twitter_id already taken)
// is returned as apperror.ErrConflict. This is the authoritative duplicate
// check: two concurrent registrations with the same email both reach
// InsertOne, and the index decides which one loses.
func (db *DB) Insert(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := db.users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo: inserting user: %w",
				apperror.Conflict("email", "Email already registered"))
		}
		return fmt.Errorf("mongo: inserting user: %w", err)
	}

	// InsertedID is the ObjectID the server (or driver) assigned.
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}

	return nil
}

// FindByID retrieves a user by the hex form of their ObjectID.
// A malformed hex string is treated the same as an absent document.
func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", apperror.NotFound("user", id))
	}
	return db.findUser(ctx, bson.M{"_id": oid}, id)
}

// FindByTwitterID retrieves a user by their linked Twitter identity.
func (db *DB) FindByTwitterID(ctx context.Context, twitterID string) (*model.User, error) {
	return db.findUser(ctx, bson.M{"twitter_id": twitterID}, twitterID)
}

// FindByEmail retrieves a user by email.
func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findUser(ctx, bson.M{"email": email}, email)
}

func (db *DB) findUser(ctx context.Context, filter bson.M, id string) (*model.User, error) {
	var u model.User
	err := db.users.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: %w", apperror.NotFound("user", id))
		}
		return nil, fmt.Errorf("mongo: finding user %s: %w", id, err)
	}
	return &u, nil
}

// ListLinked returns all users that have a Twitter identity attached, for the
// background metrics refresher. The result set is the whole fellowship — small
// by assumption, so no pagination.
func (db *DB) ListLinked(ctx context.Context) ([]model.User, error) {
	cur, err := db.users.Find(ctx, bson.M{"twitter_id": bson.M{"$exists": true, "$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("mongo: listing linked users: %w", err)
	}
	defer cur.Close(ctx)

	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongo: decoding linked users: %w", err)
	}
	return users, nil
}
