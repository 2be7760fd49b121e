// Package auth provides the identity-provider client, session token service,
// and the request middleware that guards protected routes.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /login/twitter → redirected to Twitter
//  2. Twitter calls back /auth/twitter with a code
//  3. Server exchanges code for a Twitter profile and resolves the account
//     (existing account → login; unknown identity → registration form)
//  4. Server issues a JWT session token in an HttpOnly cookie
//  5. On later requests, middleware reads the cookie, validates the JWT, and
//     puts the Principal in the request context
//
// WHY JWT?
// The session is stateless — everything needed (user ID, expiry) lives inside
// the signed token, so validating a session costs no store lookup. The HMAC
// signature ensures nobody can mint or alter a token without the secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is how long a browser session stays valid before the user
// must sign in with Twitter again.
const SessionDuration = 24 * time.Hour

const issuer = "fellowdash"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The same secret
// must be used for both operations — keep it out of source control and rotate
// it periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// the standard fields (Issuer, Subject, ExpiresAt, IssuedAt).
//
// "sub" (Subject) carries the user's internal ID — the standard claim for
// identifying who the token belongs to.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for the given userID, valid for
// SessionDuration.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and fine for a
// single-server deployment where one process both signs and verifies.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, SessionDuration)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests to
// produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the userID from its
// "sub" claim.
//
// Checks performed by the jwt library:
//   - signature is valid (token wasn't tampered with)
//   - token is not expired
//   - issuer matches (rejects tokens minted by other apps sharing a secret)
//   - algorithm is HS256 (WithValidMethods blocks algorithm-confusion tricks)
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
