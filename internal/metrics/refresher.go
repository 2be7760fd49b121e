package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/arefin/fellowdash/internal/model"
	"github.com/arefin/fellowdash/internal/repository"
)

// RefreshStatus is the outcome of one metrics refresh.
//
// Refresh is deliberately fire-and-forget: it returns a status instead of an
// error so that no caller can accidentally propagate a metrics failure into
// its own request. Login and registration must succeed even when Twitter is
// down.
type RefreshStatus int

const (
	// StatusUpdated — counters were fetched and the snapshot was replaced.
	StatusUpdated RefreshStatus = iota
	// StatusSkipped — the account has no Twitter identity; nothing to do.
	StatusSkipped
	// StatusFailed — fetch or upsert failed. The failure is logged and the
	// prior snapshot, if any, is left untouched.
	StatusFailed
)

func (s RefreshStatus) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Aggregate sums the public counters across all tweets.
// A nil or empty list yields all-zero metrics.
func Aggregate(tweets []Tweet) model.Metrics {
	var m model.Metrics
	for _, t := range tweets {
		m.Views += t.PublicMetrics.Impressions
		m.Likes += t.PublicMetrics.Likes
		m.Retweets += t.PublicMetrics.Retweets
	}
	return m
}

// Refresher fetches engagement counters and upserts snapshots.
type Refresher struct {
	client      Client
	users       repository.UserRepository
	engagements repository.EngagementRepository
	logger      *slog.Logger
}

// NewRefresher creates a Refresher. The users repository is only needed by
// Run; Refresh itself operates on a user the caller already holds.
func NewRefresher(
	client Client,
	users repository.UserRepository,
	engagements repository.EngagementRepository,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		client:      client,
		users:       users,
		engagements: engagements,
		logger:      logger,
	}
}

// Refresh pulls the user's current engagement counters and replaces their
// snapshot.
//
// CONTRACT:
//   - never returns an error — failures are logged and reported as a status
//   - no Twitter identity → StatusSkipped, nothing written
//   - fetch or upsert failure → StatusFailed, the prior snapshot is preserved
//     (the write is never reached, so stale data beats zeroed data)
//   - an empty tweets list is a SUCCESS: the snapshot is replaced with zero
//     counters, because "no tweets" is a real answer, unlike "Twitter is down"
func (r *Refresher) Refresh(ctx context.Context, user *model.User) RefreshStatus {
	if !user.Linked() {
		return StatusSkipped
	}

	tweets, err := r.client.FetchTweets(ctx, user.TwitterID)
	if err != nil {
		r.logger.Error("metrics refresh: fetch failed",
			slog.String("userID", user.Hex()),
			slog.String("twitterID", user.TwitterID),
			slog.String("error", err.Error()),
		)
		return StatusFailed
	}

	m := Aggregate(tweets)

	if err := r.engagements.Upsert(ctx, user.Hex(), m); err != nil {
		r.logger.Error("metrics refresh: upsert failed",
			slog.String("userID", user.Hex()),
			slog.String("error", err.Error()),
		)
		return StatusFailed
	}

	r.logger.Debug("metrics refreshed",
		slog.String("userID", user.Hex()),
		slog.Int64("views", m.Views),
		slog.Int64("likes", m.Likes),
		slog.Int64("retweets", m.Retweets),
	)
	return StatusUpdated
}

// Run refreshes every linked user on a fixed interval until ctx is
// cancelled. Started as a background goroutine from the server; an interval
// of zero or less disables it entirely.
//
// One failing user never stops the sweep — each refresh is independent and
// already swallows its own errors.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("background metrics refresher started",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("background metrics refresher stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep runs one pass over all linked users.
func (r *Refresher) sweep(ctx context.Context) {
	users, err := r.users.ListLinked(ctx)
	if err != nil {
		r.logger.Error("metrics sweep: listing linked users failed",
			slog.String("error", err.Error()),
		)
		return
	}

	var updated, failed int
	for i := range users {
		switch r.Refresh(ctx, &users[i]) {
		case StatusUpdated:
			updated++
		case StatusFailed:
			failed++
		}
		if ctx.Err() != nil {
			return
		}
	}

	r.logger.Info("metrics sweep completed",
		slog.Int("users", len(users)),
		slog.Int("updated", updated),
		slog.Int("failed", failed),
	)
}
