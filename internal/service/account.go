// Package service — account resolution and registration business logic.
//
// AccountService sits between the HTTP handlers and the user repository:
//
//	AuthHandler (HTTP) → AccountService (business rules) → UserRepository (Mongo)
//
// KEY RESPONSIBILITIES:
//   - Resolve a Twitter identity to an existing account, or report that
//     registration is still pending
//   - Complete registrations, enforcing the one-account-per-email rule
//   - Stay free of HTTP concerns so it's testable with in-memory fakes
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arefin/fellowdash/internal/apperror"
	"github.com/arefin/fellowdash/internal/auth"
	"github.com/arefin/fellowdash/internal/model"
	"github.com/arefin/fellowdash/internal/repository"
)

// AccountService handles account resolution and registration.
type AccountService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewAccountService creates an AccountService. Wired in server.New.
func NewAccountService(users repository.UserRepository, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:  users,
		logger: logger,
	}
}

// ResolveTwitter looks up the account linked to the given Twitter profile.
//
// Outcomes:
//   - (user, nil)  — an account with this twitter_id exists; this is a login
//   - (nil, nil)   — no account yet; the caller must route the user to the
//     registration-completion form before any account exists
//   - (nil, err)   — the lookup itself failed (store error)
//
// The pending-registration case is NOT an error: a first-time visitor is the
// expected path, not an exceptional one.
func (s *AccountService) ResolveTwitter(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	if profile == nil || profile.ID == "" {
		return nil, fmt.Errorf("service/account: profile must carry a Twitter id")
	}

	user, err := s.users.FindByTwitterID(ctx, profile.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("unknown twitter identity, registration pending",
				slog.String("twitterID", profile.ID),
				slog.String("username", profile.Username),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("service/account: resolving twitter id %s: %w", profile.ID, err)
	}

	s.logger.Info("user resolved via twitter",
		slog.String("userID", user.Hex()),
		slog.String("username", user.Username),
	)
	return user, nil
}

// RegistrationInput is the form data needed to complete a registration.
// TwitterID and Username are pre-filled from the OAuth profile; Email is
// typed by the user.
type RegistrationInput struct {
	TwitterID string
	Username  string
	Email     string
}

// CompleteRegistration creates exactly one account for a new Twitter
// identity.
//
// DUPLICATE HANDLING:
// The FindByEmail pre-check gives a friendly early answer, but it is
// best-effort only — two concurrent registrations both pass it. The store's
// unique index is the authoritative check: the losing insert comes back as
// apperror.ErrConflict and the caller re-renders the form. The Twitter
// identity is never linked to the existing account (no account-merge path).
func (s *AccountService) CompleteRegistration(ctx context.Context, in RegistrationInput) (*model.User, error) {
	in.TwitterID = strings.TrimSpace(in.TwitterID)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.TwitterID == "" {
		return nil, fmt.Errorf("service/account: %w",
			apperror.ValidationFailed("twitter_id", "missing Twitter identity"))
	}
	if in.Username == "" {
		return nil, fmt.Errorf("service/account: %w",
			apperror.ValidationFailed("username", "username is required"))
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("service/account: %w",
			apperror.ValidationFailed("email", "a valid email is required"))
	}

	// Best-effort pre-check for a friendlier failure. The insert below is
	// what actually guarantees uniqueness.
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("service/account: %w",
			apperror.Conflict("email", "Email already registered"))
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking email %s: %w", in.Email, err)
	}

	user := &model.User{
		Username:  in.Username,
		Email:     in.Email,
		TwitterID: in.TwitterID,
		Role:      model.RoleFellow,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.users.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: registering %s: %w", in.Email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.Hex()),
		slog.String("username", user.Username),
		slog.String("role", user.Role),
	)
	return user, nil
}

// GetUserByID returns the user for the given internal ID. Used by protected
// handlers to load the full record behind the request's Principal.
func (s *AccountService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/account: user ID must not be empty")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching user %s: %w", id, err)
	}
	return user, nil
}
