package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aegisaware/phishtrack/internal/analytics"
	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/pkg/httputil"
	"github.com/aegisaware/phishtrack/internal/service/campaign"
	"github.com/aegisaware/phishtrack/internal/service/risk"
	"github.com/aegisaware/phishtrack/internal/tracking"
)

// CampaignService is the lifecycle surface; satisfied by campaign.Service.
type CampaignService interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	Start(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
}

// AnalyticsService is the report surface; satisfied by analytics.Service.
type AnalyticsService interface {
	VulnerableUsers(ctx context.Context, days int, filter risk.Filter, organizationID string) (*analytics.Report, error)
	Export(ctx context.Context, format string, days int, filter risk.Filter, organizationID string) (*analytics.ExportResult, error)
}

// PreviewResolver renders tracking content without recording; satisfied by
// tracking.Resolver.
type PreviewResolver interface {
	Resolve(ctx context.Context, campaignID, code string, hit domain.HitInfo) (*tracking.RenderedPage, error)
}

// Handler holds the admin API dependencies.
type Handler struct {
	campaigns  CampaignService
	analytics  AnalyticsService
	resolver   PreviewResolver
	adminToken string
}

// NewHandler creates the admin API handler.
func NewHandler(campaigns CampaignService, analyticsSvc AnalyticsService, resolver PreviewResolver, adminToken string) *Handler {
	return &Handler{
		campaigns:  campaigns,
		analytics:  analyticsSvc,
		resolver:   resolver,
		adminToken: adminToken,
	}
}

func (h *Handler) handleVulnerableUsers(w http.ResponseWriter, r *http.Request) {
	days, filter, orgID, ok := reportParams(w, r)
	if !ok {
		return
	}

	report, err := h.analytics.VulnerableUsers(r.Context(), days, filter, orgID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, report)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if _, err := analytics.ParseFormat(format); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	days, filter, orgID, ok := reportParams(w, r)
	if !ok {
		return
	}

	res, err := h.analytics.Export(r.Context(), format, days, filter, orgID)
	if err != nil {
		if errors.Is(err, analytics.ErrUnsupportedFormat) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			httputil.NotFound(w, "campaign not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.campaigns.Start, "start")
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.campaigns.Pause, "pause")
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.campaigns.Resume, "resume")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error, action string) {
	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, campaign.ErrNotFound):
			httputil.NotFound(w, "campaign not found")
		case errors.Is(err, campaign.ErrInvalidTransition):
			httputil.Conflict(w, "campaign status does not allow "+action)
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, map[string]string{"id": id, "action": action, "status": "ok"})
}

// handlePreview renders the exact page a recipient would see, flagged so
// nothing is recorded and no alert fires.
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	code := r.URL.Query().Get("u")
	if code == "" {
		httputil.BadRequest(w, "missing tracking code parameter u")
		return
	}

	page, err := h.resolver.Resolve(r.Context(), campaignID, code, domain.HitInfo{Preview: true})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(page.StatusCode)
	w.Write([]byte(page.HTML))
}

func reportParams(w http.ResponseWriter, r *http.Request) (days int, filter risk.Filter, orgID string, ok bool) {
	days = 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "days must be a positive integer")
			return 0, "", "", false
		}
		days = n
	}

	filter, err := risk.ParseFilter(r.URL.Query().Get("risk_level"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return 0, "", "", false
	}

	return days, filter, r.URL.Query().Get("organization_id"), true
}
