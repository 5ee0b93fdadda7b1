package tracking

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aegisaware/phishtrack/internal/domain"
)

// Handler serves the public tracking endpoints. No auth, no JSON: every
// response on the hit path is HTML, including failures.
type Handler struct {
	resolver *Resolver
}

// NewHandler creates the public tracking HTTP handler.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Routes builds the public router. The credential endpoint is registered
// before the campaign wildcard so "track" is never treated as a campaign ID.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/track/credentials/{code}", h.handleCredentials)
	r.Get("/{campaignID}/awareness", h.handleAwareness)
	r.Get("/{campaignID}", h.handleHit)

	return r
}

func (h *Handler) handleHit(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	code := r.URL.Query().Get("u")

	page, err := h.resolver.Resolve(r.Context(), campaignID, code, hitInfo(r))
	if err != nil || page == nil {
		page = notFoundPage()
	}
	writePage(w, page)
}

func (h *Handler) handleAwareness(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	code := r.URL.Query().Get("u")

	page, err := h.resolver.RenderAwareness(r.Context(), campaignID, code)
	if err != nil || page == nil {
		page = notFoundPage()
	}
	writePage(w, page)
}

func (h *Handler) handleCredentials(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := r.ParseForm(); err != nil {
		writePage(w, notFoundPage())
		return
	}
	// Only the username leaves the form. The password field is dropped here
	// and never parsed, logged or stored.
	username := r.PostFormValue("username")

	redirect, err := h.resolver.SubmitCredentials(r.Context(), code, username, hitInfo(r))
	if err != nil {
		writePage(w, notFoundPage())
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func hitInfo(r *http.Request) domain.HitInfo {
	return domain.HitInfo{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

func writePage(w http.ResponseWriter, page *RenderedPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(page.StatusCode)
	w.Write([]byte(page.HTML))
}
