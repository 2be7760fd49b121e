package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arefin/fellowdash/internal/apperror"
	"github.com/arefin/fellowdash/internal/model"
	"github.com/arefin/fellowdash/internal/repository"
)

// compile-time check that *DB implements repository.EngagementRepository
var _ repository.EngagementRepository = (*DB)(nil)

// Upsert writes the metrics snapshot for a user, replacing any prior one.
//
// ReplaceOne with SetUpsert(true) keyed on user_id gives the insert-or-replace
// semantics the snapshot invariant requires: the first refresh inserts, every
// later refresh replaces the whole document. Combined with the unique index on
// user_id there can never be two snapshots for one user, even under
// concurrent refreshes.
func (db *DB) Upsert(ctx context.Context, userID string, m model.Metrics) error {
	snapshot := model.Engagement{
		UserID:    userID,
		Metrics:   m,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := db.engagements.ReplaceOne(ctx,
		bson.M{"user_id": userID},
		snapshot,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: upserting engagement for user %s: %w", userID, err)
	}
	return nil
}

// FindByUserID retrieves the snapshot for a user.
// Returns apperror.ErrNotFound when the user has never had a refresh.
func (db *DB) FindByUserID(ctx context.Context, userID string) (*model.Engagement, error) {
	var e model.Engagement
	err := db.engagements.FindOne(ctx, bson.M{"user_id": userID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: %w", apperror.NotFound("engagement", userID))
		}
		return nil, fmt.Errorf("mongo: finding engagement for user %s: %w", userID, err)
	}
	return &e, nil
}
