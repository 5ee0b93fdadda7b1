package tracking

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisaware/phishtrack/internal/domain"
)

func newTestServer(store *fakeStore) *httptest.Server {
	resolver := NewResolver(store, store, store, store, nil)
	return httptest.NewServer(NewHandler(resolver).Routes())
}

func TestHandler_Hit(t *testing.T) {
	store := newFakeStore()
	seedCampaign(store, domain.CampaignActive, domain.ScenarioPhishingEmail)
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/camp-1?u=abc123")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, []domain.EventType{domain.EventView, domain.EventClick}, store.recorded)
}

func TestHandler_UnknownCodeIs404(t *testing.T) {
	store := newFakeStore()
	seedCampaign(store, domain.CampaignActive, domain.ScenarioPhishingEmail)
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/camp-1?u=wrong")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_CredentialSubmitRedirects(t *testing.T) {
	store := newFakeStore()
	seedCampaign(store, domain.CampaignActive, domain.ScenarioCredentialHarvest)
	srv := newTestServer(store)
	defer srv.Close()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.PostForm(srv.URL+"/track/credentials/abc123", url.Values{
		"username": {"jsmith"},
		"password": {"hunter2"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/camp-1/awareness?u=abc123", resp.Header.Get("Location"))
	assert.Equal(t, []string{"jsmith"}, store.usernames, "only the username is recorded")
}

func TestHandler_AwarenessDoesNotRecord(t *testing.T) {
	store := newFakeStore()
	seedCampaign(store, domain.CampaignActive, domain.ScenarioPhishingEmail)
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/camp-1/awareness?u=abc123")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, store.recorded)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.RemoteAddr = "192.0.2.9:4431"
	assert.Equal(t, "192.0.2.9", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer(newFakeStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotFoundPagesShareBytes(t *testing.T) {
	store := newFakeStore()
	seedCampaign(store, domain.CampaignActive, domain.ScenarioPhishingEmail)
	srv := newTestServer(store)
	defer srv.Close()

	read := func(path string) string {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var sb strings.Builder
		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			sb.Write(buf[:n])
			if err != nil {
				break
			}
		}
		return sb.String()
	}

	a := read("/unknown-campaign?u=abc123")
	b := read("/camp-1?u=garbage")
	assert.Equal(t, a, b)
}
