package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/arefin/fellowdash/internal/apperror"
	"github.com/arefin/fellowdash/internal/auth"
	"github.com/arefin/fellowdash/internal/metrics"
	"github.com/arefin/fellowdash/internal/model"
	"github.com/arefin/fellowdash/internal/service"
)

const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_verifier"

	flashAuthFailed     = "Twitter authentication failed"
	flashEmailTaken     = "Email already registered"
	flashRegistryFailed = "Registration failed, please try again"
)

// MetricsRefresher is the slice of the metrics refresher the auth flow needs.
// It never returns an error: by contract a metrics failure must not fail the
// surrounding login or registration.
type MetricsRefresher interface {
	Refresh(ctx context.Context, user *model.User) metrics.RefreshStatus
}

// AuthHandler manages the Twitter OAuth login flow, registration completion,
// and logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLoginPage            → entry page (bounces authed users onward)
//   - HandleTwitterLogin         → redirect the browser to Twitter
//   - HandleTwitterCallback      → receive the code, resolve the account
//   - HandleRegistrationForm     → pre-filled registration form
//   - HandleCompleteRegistration → create the account, start the session
//   - HandleLogout               → clear the session cookie
type AuthHandler struct {
	provider  auth.Provider
	tokens    *auth.TokenService
	accounts  *service.AccountService
	refresher MetricsRefresher
	pages     *Pages
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	provider auth.Provider,
	tokens *auth.TokenService,
	accounts *service.AccountService,
	refresher MetricsRefresher,
	pages *Pages,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:  provider,
		tokens:    tokens,
		accounts:  accounts,
		refresher: refresher,
		pages:     pages,
		logger:    logger,
	}
}

// HandleLoginPage serves the login entry page.
//
// HTTP: GET /login (behind OptionalAuth)
//
// An already-authenticated visitor is sent straight to the dashboard — the
// login page is only for the anonymous state.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	h.pages.Render(w, r, "login", map[string]any{
		"Title": "Sign in",
	})
}

// HandleTwitterLogin redirects the user to Twitter's authorization page.
//
// HTTP: GET /login/twitter
//
// Two short-lived cookies carry the handshake state across the redirect:
//   - oauth_state: random value checked on callback (CSRF protection — proves
//     the callback belongs to a flow this server started)
//   - oauth_verifier: the PKCE secret whose S256 hash went into the redirect;
//     Twitter verifies the pair at exchange time
func (h *AuthHandler) HandleTwitterLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	verifier := oauth2.GenerateVerifier()

	for name, value := range map[string]string{
		stateCookie:    state,
		verifierCookie: verifier,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   600, // 10 minutes
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, h.provider.AuthURL(state, verifier), http.StatusTemporaryRedirect)
}

// HandleTwitterCallback completes the OAuth flow.
//
// HTTP: GET /auth/twitter?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie (CSRF check)
//  2. Exchange the code (+ PKCE verifier) for a Twitter profile
//  3. Resolve the account: known identity → login; unknown → registration form
//  4. On login: issue the session cookie, refresh metrics, go to /dashboard
//
// Every failure lands back on /login with a flash message — never an error
// page, and never a created or mutated account.
func (h *AuthHandler) HandleTwitterCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	state, verifier := h.popHandshakeCookies(w, r)
	if state == "" || verifier == "" {
		h.logger.Warn("auth callback: missing handshake cookies")
		h.failLogin(w, r)
		return
	}

	if r.URL.Query().Get("state") != state {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("got", r.URL.Query().Get("state")),
		)
		h.failLogin(w, r)
		return
	}

	// The user denied authorization on Twitter's side.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied",
			slog.String("error", errParam),
		)
		h.failLogin(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("auth callback: missing code parameter")
		h.failLogin(w, r)
		return
	}

	// --- Step 2: Exchange code for the Twitter profile ---
	profile, err := h.provider.Exchange(r.Context(), code, verifier)
	if err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		h.failLogin(w, r)
		return
	}

	// --- Step 3: Resolve the account ---
	user, err := h.accounts.ResolveTwitter(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: resolve failed", slog.String("error", err.Error()))
		h.failLogin(w, r)
		return
	}

	if user == nil {
		// Unknown identity — registration must complete before any account
		// exists. The form is pre-filled from the profile.
		q := url.Values{}
		q.Set("twitter_id", profile.ID)
		q.Set("username", profile.Username)
		http.Redirect(w, r, "/complete-registration?"+q.Encode(), http.StatusSeeOther)
		return
	}

	// --- Step 4: Login ---
	h.startSession(w, r, user)
}

// HandleRegistrationForm serves the registration-completion form, pre-filled
// with the Twitter identity from the callback redirect.
//
// HTTP: GET /complete-registration?twitter_id=..&username=..
func (h *AuthHandler) HandleRegistrationForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "register", map[string]any{
		"Title":     "Complete registration",
		"TwitterID": r.URL.Query().Get("twitter_id"),
		"Username":  r.URL.Query().Get("username"),
	})
}

// HandleCompleteRegistration creates the account and starts the session.
//
// HTTP: POST /complete-registration
//
// A duplicate email (or a lost uniqueness race at the store) flashes
// "Email already registered" and returns to the form with the Twitter
// identity preserved — nothing is created or linked in that case.
func (h *AuthHandler) HandleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, flashRegistryFailed)
		http.Redirect(w, r, "/complete-registration", http.StatusSeeOther)
		return
	}

	in := service.RegistrationInput{
		TwitterID: r.PostFormValue("twitter_id"),
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
	}

	user, err := h.accounts.CompleteRegistration(r.Context(), in)
	if err != nil {
		// Send the user back to the form, keeping the pre-filled identity.
		q := url.Values{}
		q.Set("twitter_id", in.TwitterID)
		q.Set("username", in.Username)
		back := "/complete-registration?" + q.Encode()

		switch {
		case errors.Is(err, apperror.ErrConflict):
			setFlash(w, flashEmailTaken)
		case errors.Is(err, apperror.ErrValidation):
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				setFlash(w, appErr.Message)
			} else {
				setFlash(w, flashRegistryFailed)
			}
		default:
			h.logger.Error("registration failed", slog.String("error", err.Error()))
			setFlash(w, flashRegistryFailed)
		}

		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	h.startSession(w, r, user)
}

// HandleLogout clears the session cookie and returns to the login page.
//
// HTTP: GET /logout (protected)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// startSession issues the session cookie, kicks off a metrics refresh, and
// lands the user on the dashboard. Shared by the login and registration
// paths.
//
// The metrics refresh is fire-and-forget: its status is logged but a failure
// never blocks the login.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	token, err := h.tokens.Generate(user.Hex())
	if err != nil {
		h.logger.Error("issuing session token failed",
			slog.String("userID", user.Hex()),
			slog.String("error", err.Error()),
		)
		h.failLogin(w, r)
		return
	}
	auth.SetSessionCookie(w, token)

	status := h.refresher.Refresh(r.Context(), user)
	h.logger.Info("session started",
		slog.String("userID", user.Hex()),
		slog.String("username", user.Username),
		slog.String("metricsRefresh", status.String()),
	)

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// failLogin is the single failure path for the OAuth handshake: flash a
// generic message and return to the login page.
func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request) {
	setFlash(w, flashAuthFailed)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// popHandshakeCookies reads and clears the single-use state and verifier
// cookies.
func (h *AuthHandler) popHandshakeCookies(w http.ResponseWriter, r *http.Request) (state, verifier string) {
	for _, name := range []string{stateCookie, verifierCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}

	if c, err := r.Cookie(stateCookie); err == nil {
		state = c.Value
	}
	if c, err := r.Cookie(verifierCookie); err == nil {
		verifier = c.Value
	}
	return state, verifier
}
