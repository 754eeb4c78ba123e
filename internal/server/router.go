package server

import (
	"context"
	"net/http"

	"github.com/creatorflow/creatorflow/auth"
	"github.com/creatorflow/creatorflow/httpx"
	"github.com/creatorflow/creatorflow/internal/handlers"
	"github.com/creatorflow/creatorflow/internal/models"
	"github.com/creatorflow/creatorflow/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	dashboardSvc := services.NewDashboardService(db)

	authHandler := handlers.NewAuthHandler(db)
	clientHandler := handlers.NewClientHandler(db)
	projectHandler := handlers.NewProjectHandler(db)
	taskHandler := handlers.NewTaskHandler(db)
	invoiceHandler := handlers.NewInvoiceHandler(db, dashboardSvc)
	dashboardHandler := handlers.NewDashboardHandler(dashboardSvc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight DB check
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", clientHandler.List)
			r.Post("/", clientHandler.Create)
			r.Get("/{id}", clientHandler.Get)
			r.Put("/{id}", clientHandler.Update)
			r.Delete("/{id}", clientHandler.Delete)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)
			r.Get("/{id}", projectHandler.Get)
			r.Put("/{id}", projectHandler.Update)
			r.Delete("/{id}", projectHandler.Delete)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Get("/{id}", taskHandler.Get)
			r.Put("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
			r.Get("/{id}/checklist", taskHandler.GetChecklist)
			r.Put("/{id}/checklist", taskHandler.UpdateChecklist)
			r.Post("/{id}/comments", taskHandler.AddComment)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", invoiceHandler.List)
			r.Post("/", invoiceHandler.Create)
			r.Get("/stats/overview", invoiceHandler.Stats)
			r.Get("/{id}", invoiceHandler.Get)
			r.Put("/{id}", invoiceHandler.Update)
			r.Delete("/{id}", invoiceHandler.Delete)
			r.Post("/{id}/send", invoiceHandler.Send)
			r.Put("/{id}/mark-paid", invoiceHandler.MarkPaid)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/overview", dashboardHandler.Overview)
			r.Get("/recent-activity", dashboardHandler.RecentActivity)
			r.Get("/upcoming-deadlines", dashboardHandler.UpcomingDeadlines)
			r.Get("/productivity-stats", dashboardHandler.Productivity)
		})
	})

	return r
}
