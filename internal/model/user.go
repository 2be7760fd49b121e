// Package model defines the data structures used throughout the application.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names. The enum is open-ended: "fellow" is the only role assigned by
// the registration flow today, but admin tooling may add more.
const RoleFellow = "fellow"

// User represents a registered fellow account.
//
// Identity comes from Twitter OAuth, so the external identifier is the Twitter
// user ID (an opaque string, which Twitter documents as a stringified int64 —
// we never parse it). The primary key is Mongo's ObjectID; handlers and the
// engagements collection reference users by its hex form (User.Hex()).
//
// TwitterID carries `omitempty` so that accounts created without a linked
// Twitter identity don't collide on the sparse unique index.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	TwitterID string             `bson:"twitter_id,omitempty" json:"twitterId,omitempty"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Hex returns the user's identifier in the form stored on engagement
// documents and in session tokens.
func (u *User) Hex() string {
	return u.ID.Hex()
}

// Linked reports whether the account has a Twitter identity attached.
// Metrics refresh is a no-op for unlinked accounts.
func (u *User) Linked() bool {
	return u.TwitterID != ""
}
