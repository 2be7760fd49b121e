package auth

import (
	"context"
	"net/http"
)

// SessionCookie is the name of the HttpOnly cookie carrying the JWT.
const SessionCookie = "session"

// Principal is the identity attached to an authenticated request.
//
// It is an explicit value threaded through the request context — there is no
// ambient "current user" global. Handlers that need the full user record load
// it from the repository by UserID.
type Principal struct {
	UserID string
}

// contextKey is an unexported type for context keys in this package.
// Using a package-private type means only this package can read or write the
// principal in a context — no key collisions with other packages.
type contextKey int

const principalKey contextKey = iota

// WithPrincipal returns a context carrying the given principal.
// Exported so handler tests can simulate an authenticated request without
// minting a real token.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal.
// Returns (Principal{}, false) for an anonymous request.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}

// RequireAuth guards protected routes.
//
// It reads the JWT from the session cookie, validates it, and stores the
// Principal in the request context. An anonymous or invalid session is never
// an error response: the browser is redirected to the login entry point with
// 303 See Other, matching the two-state gate (Anonymous → redirect,
// Authenticated → pass through).
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFromRequest(r, tokens)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth attaches the Principal when a valid session is present but
// never blocks the request. Used on /login so an already-authenticated user
// can be bounced straight to the dashboard.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := principalFromRequest(r, tokens); ok {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principalFromRequest reads and validates the session cookie.
// A missing cookie is simply an anonymous request, not an error.
func principalFromRequest(r *http.Request, tokens *TokenService) (Principal, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return Principal{}, false
	}

	userID, err := tokens.Validate(cookie.Value)
	if err != nil {
		return Principal{}, false
	}

	return Principal{UserID: userID}, true
}

// SetSessionCookie issues the session cookie after a successful login or
// registration.
//
// HttpOnly — JavaScript cannot read it (XSS protection).
// SameSite=Lax — sent on top-level navigations (the OAuth callback redirect
// needs this) but not on cross-site subrequests.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable in production behind HTTPS
	})
}

// ClearSessionCookie logs the user out by deleting the cookie. The token
// itself stays valid until expiry, but without the cookie the browser can't
// present it.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
