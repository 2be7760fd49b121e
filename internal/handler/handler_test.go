package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arefin/fellowdash/internal/apperror"
	"github.com/arefin/fellowdash/internal/auth"
	"github.com/arefin/fellowdash/internal/metrics"
	"github.com/arefin/fellowdash/internal/model"
	"github.com/arefin/fellowdash/internal/service"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeProvider stands in for the Twitter provider. It records what it was
// called with and returns a canned profile or error.
type fakeProvider struct {
	profile     *auth.Profile
	err         error
	gotCode     string
	gotVerifier string
}

func (f *fakeProvider) AuthURL(state, verifier string) string {
	return "https://twitter.example/i/oauth2/authorize?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code, verifier string) (*auth.Profile, error) {
	f.gotCode = code
	f.gotVerifier = verifier
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

// fakeUserRepo mirrors the Mongo user repository in memory, including the
// conflict-on-duplicate behavior of the unique indexes.
type fakeUserRepo struct {
	byID      map[string]*model.User
	byTwitter map[string]*model.User
	byEmail   map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:      make(map[string]*model.User),
		byTwitter: make(map[string]*model.User),
		byEmail:   make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) Insert(_ context.Context, user *model.User) error {
	if _, taken := f.byEmail[user.Email]; taken {
		return apperror.Conflict("email", "Email already registered")
	}
	user.ID = primitive.NewObjectID()
	stored := *user
	f.byID[user.Hex()] = &stored
	f.byEmail[user.Email] = &stored
	if user.TwitterID != "" {
		f.byTwitter[user.TwitterID] = &stored
	}
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) FindByTwitterID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.byTwitter[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) ListLinked(_ context.Context) ([]model.User, error) {
	var users []model.User
	for _, u := range f.byTwitter {
		users = append(users, *u)
	}
	return users, nil
}

// fakeEngagementRepo is an in-memory snapshot store.
type fakeEngagementRepo struct {
	snapshots map[string]model.Engagement
}

func newFakeEngagementRepo() *fakeEngagementRepo {
	return &fakeEngagementRepo{snapshots: make(map[string]model.Engagement)}
}

func (f *fakeEngagementRepo) Upsert(_ context.Context, userID string, m model.Metrics) error {
	f.snapshots[userID] = model.Engagement{UserID: userID, Metrics: m}
	return nil
}

func (f *fakeEngagementRepo) FindByUserID(_ context.Context, userID string) (*model.Engagement, error) {
	if e, ok := f.snapshots[userID]; ok {
		return &e, nil
	}
	return nil, apperror.NotFound("engagement", userID)
}

// fakeRefresher records refresh calls. It implements MetricsRefresher and,
// per the contract, can never fail the caller.
type fakeRefresher struct {
	calls  int
	lastID string
	status metrics.RefreshStatus
}

func (f *fakeRefresher) Refresh(_ context.Context, user *model.User) metrics.RefreshStatus {
	f.calls++
	f.lastID = user.Hex()
	return f.status
}

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

// testEnv bundles the fully wired router plus every fake, so tests can both
// drive HTTP requests and inspect side effects.
type testEnv struct {
	router      *chi.Mux
	provider    *fakeProvider
	users       *fakeUserRepo
	engagements *fakeEngagementRepo
	refresher   *fakeRefresher
	tokens      *auth.TokenService
}

// writeTestTemplates writes a minimal template set into dir. The pages only
// need to surface the fields the tests assert on.
func writeTestTemplates(t *testing.T, dir string) {
	t.Helper()

	files := map[string]string{
		"base.html":      `{{define "base"}}{{if .Flash}}FLASH:{{.Flash}};{{end}}{{template "content" .}}{{end}}`,
		"landing.html":   `{{define "content"}}landing{{end}}`,
		"login.html":     `{{define "content"}}login{{end}}`,
		"register.html":  `{{define "content"}}register twitter_id={{.TwitterID}} username={{.Username}}{{end}}`,
		"dashboard.html": `{{define "content"}}dashboard user={{.User.Username}}{{if .Engagement}} views={{.Engagement.Views}} likes={{.Engagement.Likes}} retweets={{.Engagement.Retweets}}{{else}} no-engagements{{end}}{{end}}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing template %s: %v", name, err)
		}
	}
}

// newTestEnv wires the handlers onto a router mirroring the server's route
// table, backed entirely by fakes.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	dir := t.TempDir()
	writeTestTemplates(t, dir)
	pages, err := NewPages(dir, logger)
	if err != nil {
		t.Fatalf("NewPages: %v", err)
	}

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	env := &testEnv{
		provider:    &fakeProvider{},
		users:       newFakeUserRepo(),
		engagements: newFakeEngagementRepo(),
		refresher:   &fakeRefresher{status: metrics.StatusUpdated},
		tokens:      tokens,
	}

	accounts := service.NewAccountService(env.users, logger)
	authHandler := NewAuthHandler(env.provider, tokens, accounts, env.refresher, pages, logger)
	dashHandler := NewDashboardHandler(accounts, env.engagements, pages, logger)

	r := chi.NewRouter()
	r.Get("/", pages.HandleLanding)
	r.Get("/login/twitter", authHandler.HandleTwitterLogin)
	r.Get("/auth/twitter", authHandler.HandleTwitterCallback)
	r.Get("/complete-registration", authHandler.HandleRegistrationForm)
	r.Post("/complete-registration", authHandler.HandleCompleteRegistration)
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/login", authHandler.HandleLoginPage)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/dashboard", dashHandler.HandleDashboard)
		r.Get("/logout", authHandler.HandleLogout)
		r.Route("/api", func(r chi.Router) {
			r.Get("/me", dashHandler.HandleMe)
			r.Get("/engagements", dashHandler.HandleEngagements)
		})
	})

	env.router = r
	return env
}

// registerUser seeds an account directly through the repository and returns
// it along with a valid session cookie.
func (env *testEnv) registerUser(t *testing.T, twitterID, username, email string) (*model.User, *http.Cookie) {
	t.Helper()

	user := &model.User{
		Username:  username,
		Email:     email,
		TwitterID: twitterID,
		Role:      model.RoleFellow,
	}
	if err := env.users.Insert(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	token, err := env.tokens.Generate(user.Hex())
	if err != nil {
		t.Fatalf("generating session token: %v", err)
	}
	return user, &http.Cookie{Name: auth.SessionCookie, Value: token}
}
