package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/arefin/fellowdash/internal/auth"
	"github.com/arefin/fellowdash/internal/model"
)

// =========================================================================
// DASHBOARD PAGE
// =========================================================================

func TestDashboard_AnonymousIsRedirectedToLogin(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	// The gate redirects — an anonymous visitor never sees an error status.
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestDashboard_RendersEngagement(t *testing.T) {
	env := newTestEnv(t)
	user, session := env.registerUser(t, "42", "fellow_one", "one@example.com")

	err := env.engagements.Upsert(context.Background(), user.Hex(),
		model.Metrics{Views: 15, Likes: 2, Retweets: 4})
	if err != nil {
		t.Fatalf("seeding engagement: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"user=fellow_one", "views=15", "likes=2", "retweets=4"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard body missing %q: %s", want, body)
		}
	}
}

func TestDashboard_NoSnapshotStillRenders(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.registerUser(t, "42", "fellow_one", "one@example.com")

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even without a snapshot", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no-engagements") {
		t.Errorf("dashboard body = %q, want the empty-engagement state", rec.Body.String())
	}
}

func TestDashboard_StaleSessionIsCleared(t *testing.T) {
	env := newTestEnv(t)

	// A session whose account no longer exists — e.g. the store was reset.
	token, err := env.tokens.Generate("64b5f0c2a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

// =========================================================================
// JSON API
// =========================================================================

func TestAPIMe(t *testing.T) {
	env := newTestEnv(t)
	user, session := env.registerUser(t, "42", "fellow_one", "one@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got model.User
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.Username != user.Username || got.Role != model.RoleFellow {
		t.Errorf("me = %+v, want the registered user", got)
	}
}

func TestAPIEngagements_NotFoundBeforeFirstRefresh(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.registerUser(t, "42", "fellow_one", "one@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/engagements", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Error != "not_found" {
		t.Errorf("error type = %q, want %q", resp.Error, "not_found")
	}
}

func TestAPIEngagements_ReturnsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	user, session := env.registerUser(t, "42", "fellow_one", "one@example.com")

	if err := env.engagements.Upsert(context.Background(), user.Hex(),
		model.Metrics{Views: 100, Likes: 7, Retweets: 3}); err != nil {
		t.Fatalf("seeding engagement: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/engagements", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got model.Engagement
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.Views != 100 || got.Likes != 7 || got.Retweets != 3 {
		t.Errorf("engagement = %+v, wrong counters", got)
	}
}

// =========================================================================
// END-TO-END: first visit through registration to dashboard
// =========================================================================

// TestFullRegistrationFlow walks the whole journey of a brand-new fellow:
// OAuth callback with an unknown identity → pre-filled registration form →
// unique email submitted → account created with role "fellow" → session
// authenticated → dashboard renders.
func TestFullRegistrationFlow(t *testing.T) {
	env := newTestEnv(t)
	env.provider.profile = &auth.Profile{ID: "777", Username: "brandnew"}

	// Step 1: the OAuth callback arrives with an unknown identity.
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, callbackRequest(url.Values{
		"state": {"state-abc"},
		"code":  {"auth-code"},
	}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("callback status = %d, want redirect", rec.Code)
	}
	formURL := rec.Header().Get("Location")
	if !strings.HasPrefix(formURL, "/complete-registration?") {
		t.Fatalf("callback Location = %q, want the registration form", formURL)
	}

	// Step 2: the form is pre-filled from the redirect.
	req := httptest.NewRequest(http.MethodGet, formURL, nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "twitter_id=777") {
		t.Fatalf("form not pre-filled: %s", rec.Body.String())
	}

	// Step 3: the fellow submits a unique email.
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, postForm("/complete-registration", url.Values{
		"twitter_id": {"777"},
		"username":   {"brandnew"},
		"email":      {"brandnew@example.com"},
	}))
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("registration Location = %q, want /dashboard", loc)
	}
	session := sessionCookieFrom(rec)
	if session == nil {
		t.Fatal("registration must issue a session cookie")
	}

	user, err := env.users.FindByTwitterID(context.Background(), "777")
	if err != nil {
		t.Fatalf("account was not created: %v", err)
	}
	if user.Role != model.RoleFellow {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleFellow)
	}

	// Step 4: the authenticated dashboard renders (no snapshot yet is fine).
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "user=brandnew") {
		t.Errorf("dashboard body = %q, want the new fellow's view", rec.Body.String())
	}
}
