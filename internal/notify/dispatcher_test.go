package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisaware/phishtrack/internal/domain"
)

func testTarget() *domain.Target {
	return &domain.Target{ID: "tgt-1", Email: "victim@example.com"}
}

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:             "camp-1",
		OrganizationID: "org-1",
		Name:           "Q3 Drill",
		ScenarioType:   domain.ScenarioCredentialHarvest,
	}
}

func waitDispatched(t *testing.T, d *Dispatcher) {
	t.Helper()
	select {
	case <-d.dispatched:
	case <-time.After(3 * time.Second):
		t.Fatal("webhook goroutine never finished")
	}
}

func TestNotify_SendsEmbedOnFirstClick(t *testing.T) {
	var mu sync.Mutex
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = b
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(StaticConfig{URL: srv.URL}, time.Second)
	d.dispatched = make(chan struct{}, 1)

	d.Notify(domain.EventClick, testTarget(), testCampaign(), true)
	waitDispatched(t, d)

	mu.Lock()
	defer mu.Unlock()
	var payload discordPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, colorOrange, payload.Embeds[0].Color)
	assert.Contains(t, payload.Embeds[0].Title, "Clicked")
}

func TestNotify_CredentialSubmitIsRed(t *testing.T) {
	c := testCampaign()
	payload := buildPayload(domain.EventCredentialSubmit, testTarget(), c, "Acme Corp")
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, colorRed, payload.Embeds[0].Color)
	assert.Contains(t, payload.Embeds[0].Title, "Credentials")

	var orgField *discordField
	for i := range payload.Embeds[0].Fields {
		if payload.Embeds[0].Fields[i].Name == "Organization" {
			orgField = &payload.Embeds[0].Fields[i]
		}
	}
	require.NotNil(t, orgField)
	assert.Equal(t, "Acme Corp", orgField.Value)
}

func TestNotify_GatedOnFirstOccurrence(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(StaticConfig{URL: srv.URL}, time.Second)
	d.dispatched = make(chan struct{}, 1)

	d.Notify(domain.EventClick, testTarget(), testCampaign(), false)
	d.Notify(domain.EventView, testTarget(), testCampaign(), true)

	// Neither call should have spawned a delivery goroutine.
	select {
	case <-d.dispatched:
		t.Fatal("repeat or view event must not dispatch")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 0, hits)
}

func TestNotify_NoURLIsNoop(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(StaticConfig{URL: ""}, time.Second)
	d.dispatched = make(chan struct{}, 1)
	d.Notify(domain.EventClick, testTarget(), testCampaign(), true)

	waitDispatched(t, d)
	assert.Equal(t, 0, hits, "empty URL must not post anywhere")
}

// slowSource stands in for a directory lookup stuck on a cold cache.
type slowSource struct {
	delay time.Duration
	url   string
}

func (s slowSource) Lookup(string) (string, string) {
	time.Sleep(s.delay)
	return "", s.url
}

func TestNotify_SlowLookupDoesNotBlockCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(slowSource{delay: 300 * time.Millisecond, url: srv.URL}, time.Second)
	d.dispatched = make(chan struct{}, 1)

	start := time.Now()
	d.Notify(domain.EventClick, testTarget(), testCampaign(), true)
	assert.Less(t, time.Since(start), 50*time.Millisecond,
		"the webhook lookup must never run on the caller's goroutine")

	waitDispatched(t, d)
}

func TestNotify_SlowEndpointIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	d := NewDispatcher(StaticConfig{URL: srv.URL}, 50*time.Millisecond)
	d.dispatched = make(chan struct{}, 1)

	start := time.Now()
	d.Notify(domain.EventClick, testTarget(), testCampaign(), true)
	assert.Less(t, time.Since(start), 20*time.Millisecond, "Notify must return immediately")

	waitDispatched(t, d)
	assert.Less(t, time.Since(start), 2*time.Second, "delivery must hit its own deadline")
}

type fakeOrgReader struct {
	mu    sync.Mutex
	org   *domain.Organization
	err   error
	calls int
}

func (f *fakeOrgReader) GetOrganization(_ context.Context, _ string) (*domain.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.org, nil
}

func TestRefreshingSource_CachesWithinTTL(t *testing.T) {
	reader := &fakeOrgReader{org: &domain.Organization{
		ID: "org-1", Name: "Acme", DiscordWebhookURL: "https://discord.example/org",
	}}
	src := NewRefreshingSource(reader, "https://discord.example/global", time.Minute)

	name, url := src.Lookup("org-1")
	assert.Equal(t, "Acme", name)
	assert.Equal(t, "https://discord.example/org", url)

	src.Lookup("org-1")
	assert.Equal(t, 1, reader.calls, "second lookup inside the TTL must hit the cache")
}

func TestRefreshingSource_GlobalFallback(t *testing.T) {
	reader := &fakeOrgReader{org: &domain.Organization{ID: "org-1", Name: "Acme"}}
	src := NewRefreshingSource(reader, "https://discord.example/global", time.Minute)

	_, url := src.Lookup("org-1")
	assert.Equal(t, "https://discord.example/global", url, "org without a URL falls back to global")
}

func TestRefreshingSource_DirectoryFailure(t *testing.T) {
	reader := &fakeOrgReader{err: errors.New("db down")}
	src := NewRefreshingSource(reader, "https://discord.example/global", time.Minute)

	name, url := src.Lookup("org-1")
	assert.Empty(t, name)
	assert.Equal(t, "https://discord.example/global", url)
}
