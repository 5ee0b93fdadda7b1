// Package api serves the authenticated admin surface: vulnerable-user
// reports, exports, campaign lifecycle transitions and preview rendering.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aegisaware/phishtrack/internal/pkg/httputil"
)

// Routes builds the admin router. Every /api route requires the bearer
// token; /health does not.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:           300,
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAdmin)

		r.Get("/vulnerable-users", h.handleVulnerableUsers)
		r.Get("/vulnerable-users/export/{format}", h.handleExport)

		r.Route("/campaigns/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetCampaign)
			r.Post("/start", h.handleStart)
			r.Post("/pause", h.handlePause)
			r.Post("/resume", h.handleResume)
			r.Get("/preview", h.handlePreview)
		})
	})

	return r
}

// requireAdmin enforces the static bearer token on all admin routes.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			httputil.Error(w, http.StatusServiceUnavailable, "admin API disabled: no token configured")
			return
		}
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			httputil.Error(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
