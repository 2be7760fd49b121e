package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/arefin/fellowdash/internal/apperror"
	"github.com/arefin/fellowdash/internal/auth"
	"github.com/arefin/fellowdash/internal/model"
	"github.com/arefin/fellowdash/internal/repository"
	"github.com/arefin/fellowdash/internal/service"
)

// DashboardHandler serves the protected views: the dashboard page and the
// JSON endpoints behind /api.
type DashboardHandler struct {
	accounts    *service.AccountService
	engagements repository.EngagementRepository
	pages       *Pages
	logger      *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	accounts *service.AccountService,
	engagements repository.EngagementRepository,
	pages *Pages,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		accounts:    accounts,
		engagements: engagements,
		pages:       pages,
		logger:      logger,
	}
}

// HandleDashboard renders the fellow's dashboard.
//
// HTTP: GET /dashboard (protected)
//
// A user with no snapshot yet (metrics refresh pending or failed) still gets
// a dashboard — the engagement section just renders empty.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principalUser(w, r)
	if !ok {
		return
	}

	var engagement *model.Engagement
	e, err := h.engagements.FindByUserID(r.Context(), user.Hex())
	switch {
	case err == nil:
		engagement = e
	case errors.Is(err, apperror.ErrNotFound):
		// No refresh has succeeded yet — render without metrics.
	default:
		h.logger.Error("dashboard: loading engagement failed",
			slog.String("userID", user.Hex()),
			slog.String("error", err.Error()),
		)
	}

	h.pages.Render(w, r, "dashboard", map[string]any{
		"Title":      "Dashboard",
		"User":       user,
		"Engagement": engagement,
	})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/me (protected)
func (h *DashboardHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principalUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleEngagements returns the authenticated user's engagement snapshot.
//
// HTTP: GET /api/engagements (protected)
//
// 404 with a standard error body when no snapshot exists yet.
func (h *DashboardHandler) HandleEngagements(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principalUser(w, r)
	if !ok {
		return
	}

	engagement, err := h.engagements.FindByUserID(r.Context(), user.Hex())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engagement)
}

// principalUser loads the full user record behind the request's Principal.
//
// On a RequireAuth-protected route the principal is always present; a lookup
// failure here means the session outlived the account (or the store is
// down), so the session is cleared and the user sent back to /login.
func (h *DashboardHandler) principalUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}

	user, err := h.accounts.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		h.logger.Warn("principal lookup failed",
			slog.String("userID", p.UserID),
			slog.String("error", err.Error()),
		)
		auth.ClearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}

	return user, true
}
