package model

import "time"

// Metrics is the aggregate of public engagement counters across all of a
// user's tweets. Counters are int64 because per-tweet impression counts
// already run into the millions for large accounts.
type Metrics struct {
	Views    int64 `bson:"views" json:"views"`
	Likes    int64 `bson:"likes" json:"likes"`
	Retweets int64 `bson:"retweets" json:"retweets"`
}

// Engagement is the latest metrics snapshot for one user.
//
// There is at most one per user: writes go through a replace-upsert keyed on
// user_id, so a refresh replaces the document wholesale rather than merging.
// UserID holds the hex form of the owning User's ObjectID — a weak reference
// resolved by query, not a store-enforced foreign key.
type Engagement struct {
	UserID    string    `bson:"user_id" json:"userId"`
	Metrics   `bson:",inline" json:"metrics"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
