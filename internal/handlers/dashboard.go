package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/creatorflow/creatorflow/auth"
	"github.com/creatorflow/creatorflow/httpx"
	"github.com/creatorflow/creatorflow/internal/services"
)

type DashboardHandler struct {
	svc *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Overview: GET /dashboard/overview
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	overview, err := h.svc.Overview(userID, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_overview", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

// RecentActivity: GET /dashboard/recent-activity?limit=
func (h *DashboardHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	items, err := h.svc.RecentActivity(userID, queryInt(r, "limit"))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_activity", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// UpcomingDeadlines: GET /dashboard/upcoming-deadlines?days=&limit=
func (h *DashboardHandler) UpcomingDeadlines(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	items, err := h.svc.UpcomingDeadlines(userID, queryInt(r, "days"), queryInt(r, "limit"), time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_deadlines", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// Productivity: GET /dashboard/productivity-stats?period=
// Unrecognized periods are rejected instead of computing with undefined
// bounds.
func (h *DashboardHandler) Productivity(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}
	stats, err := h.svc.Productivity(userID, period, time.Now())
	if err != nil {
		if errors.Is(err, services.ErrInvalidPeriod) {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_period", map[string]string{"period": "must be week, month or year"})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_stats", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
