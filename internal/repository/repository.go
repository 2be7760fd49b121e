// Package repository defines the persistence interfaces the service layer
// depends on. Concrete implementations live in subpackages (repository/mongo);
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/arefin/fellowdash/internal/model"
)

// UserRepository is the gateway to the users collection.
//
// Lookup methods return apperror.ErrNotFound (wrapped) when no document
// matches. Insert returns apperror.ErrConflict when a unique index (email,
// username, twitter_id) is violated — the store's index is the authoritative
// duplicate check; any pre-check in the service layer is best-effort only.
type UserRepository interface {
	Insert(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByTwitterID(ctx context.Context, twitterID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ListLinked returns every user with a Twitter identity attached.
	// Used by the background metrics refresher.
	ListLinked(ctx context.Context) ([]model.User, error)
}

// EngagementRepository is the gateway to the engagements collection.
// Upsert has insert-or-replace semantics keyed on the owning user's ID:
// applying it N times never yields more than one document per user.
type EngagementRepository interface {
	Upsert(ctx context.Context, userID string, m model.Metrics) error
	FindByUserID(ctx context.Context, userID string) (*model.Engagement, error)
}
