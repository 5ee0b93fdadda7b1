package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisaware/phishtrack/internal/analytics"
	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/service/campaign"
	"github.com/aegisaware/phishtrack/internal/service/risk"
	"github.com/aegisaware/phishtrack/internal/tracking"
)

const testToken = "test-admin-token"

type fakeCampaigns struct {
	campaign                 *domain.Campaign
	started, paused, resumed []string
	err                      error
}

func (f *fakeCampaigns) Get(_ context.Context, id string) (*domain.Campaign, error) {
	if f.campaign == nil || f.campaign.ID != id {
		return nil, campaign.ErrNotFound
	}
	return f.campaign, nil
}

func (f *fakeCampaigns) Start(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, id)
	return nil
}

func (f *fakeCampaigns) Pause(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.paused = append(f.paused, id)
	return nil
}

func (f *fakeCampaigns) Resume(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.resumed = append(f.resumed, id)
	return nil
}

type fakeAnalytics struct {
	report     *analytics.Report
	lastFilter risk.Filter
	lastDays   int
}

func (f *fakeAnalytics) VulnerableUsers(_ context.Context, days int, filter risk.Filter, _ string) (*analytics.Report, error) {
	f.lastDays = days
	f.lastFilter = filter
	return f.report, nil
}

func (f *fakeAnalytics) Export(_ context.Context, format string, days int, filter risk.Filter, _ string) (*analytics.ExportResult, error) {
	if _, err := analytics.ParseFormat(format); err != nil {
		return nil, err
	}
	return &analytics.ExportResult{ContentType: "text/csv", Filename: "x.csv", Data: []byte("email\n")}, nil
}

type fakePreview struct {
	lastHit domain.HitInfo
}

func (f *fakePreview) Resolve(_ context.Context, _, _ string, hit domain.HitInfo) (*tracking.RenderedPage, error) {
	f.lastHit = hit
	return &tracking.RenderedPage{HTML: "<html>preview</html>", StatusCode: 200}, nil
}

func newTestAPI(campaigns *fakeCampaigns, analyticsSvc *fakeAnalytics, preview *fakePreview) *httptest.Server {
	if campaigns == nil {
		campaigns = &fakeCampaigns{}
	}
	if analyticsSvc == nil {
		analyticsSvc = &fakeAnalytics{report: &analytics.Report{Users: []domain.RiskAggregate{}}}
	}
	if preview == nil {
		preview = &fakePreview{}
	}
	h := NewHandler(campaigns, analyticsSvc, preview, testToken)
	return httptest.NewServer(h.Routes())
}

func doReq(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAuth_MissingOrWrongToken(t *testing.T) {
	srv := newTestAPI(nil, nil, nil)
	defer srv.Close()

	resp := doReq(t, http.MethodGet, srv.URL+"/api/vulnerable-users", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/api/vulnerable-users", "wrong")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/health", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health needs no token")
}

func TestVulnerableUsers_ParamValidation(t *testing.T) {
	svc := &fakeAnalytics{report: &analytics.Report{}}
	srv := newTestAPI(nil, svc, nil)
	defer srv.Close()

	resp := doReq(t, http.MethodGet, srv.URL+"/api/vulnerable-users?days=60&risk_level=submitted", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 60, svc.lastDays)
	assert.Equal(t, risk.FilterSubmitted, svc.lastFilter)

	resp = doReq(t, http.MethodGet, srv.URL+"/api/vulnerable-users?risk_level=scary", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown filter must 400, not default")

	resp = doReq(t, http.MethodGet, srv.URL+"/api/vulnerable-users?days=-3", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExport_BadFormatIs400(t *testing.T) {
	srv := newTestAPI(nil, nil, nil)
	defer srv.Close()

	resp := doReq(t, http.MethodGet, srv.URL+"/api/vulnerable-users/export/xlsx", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/api/vulnerable-users/export/csv", testToken)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
}

func TestCampaignTransitions(t *testing.T) {
	campaigns := &fakeCampaigns{}
	srv := newTestAPI(campaigns, nil, nil)
	defer srv.Close()

	for _, action := range []string{"start", "pause", "resume"} {
		resp := doReq(t, http.MethodPost, srv.URL+"/api/campaigns/c-1/"+action, testToken)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, action)
	}
	assert.Equal(t, []string{"c-1"}, campaigns.started)
	assert.Equal(t, []string{"c-1"}, campaigns.paused)
	assert.Equal(t, []string{"c-1"}, campaigns.resumed)
}

func TestGetCampaign(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: &domain.Campaign{ID: "c-1", Name: "Q3 Drill", Status: domain.CampaignActive}}
	srv := newTestAPI(campaigns, nil, nil)
	defer srv.Close()

	resp := doReq(t, http.MethodGet, srv.URL+"/api/campaigns/c-1", testToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got domain.Campaign
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Q3 Drill", got.Name)
	assert.Equal(t, domain.CampaignActive, got.Status)

	missing := doReq(t, http.MethodGet, srv.URL+"/api/campaigns/nope", testToken)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCampaignTransition_Errors(t *testing.T) {
	campaigns := &fakeCampaigns{err: campaign.ErrInvalidTransition}
	srv := newTestAPI(campaigns, nil, nil)
	defer srv.Close()

	resp := doReq(t, http.MethodPost, srv.URL+"/api/campaigns/c-1/pause", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	campaigns.err = campaign.ErrNotFound
	resp = doReq(t, http.MethodPost, srv.URL+"/api/campaigns/missing/start", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreview_SetsPreviewFlag(t *testing.T) {
	preview := &fakePreview{}
	srv := newTestAPI(nil, nil, preview)
	defer srv.Close()

	resp := doReq(t, http.MethodGet, srv.URL+"/api/campaigns/c-1/preview?u=abc", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, preview.lastHit.Preview, "preview endpoint must mark the hit as preview")

	resp = doReq(t, http.MethodGet, srv.URL+"/api/campaigns/c-1/preview", testToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
