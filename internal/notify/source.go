package notify

import (
	"context"
	"sync"
	"time"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/pkg/logger"
)

// OrgReader is the directory lookup the refreshing source needs.
type OrgReader interface {
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
}

// RefreshingSource resolves per-org webhook URLs from the directory with a
// TTL cache, so a URL changed in the admin UI takes effect within one
// interval without a restart. Falls back to the global URL when the org has
// none configured.
type RefreshingSource struct {
	orgs      OrgReader
	globalURL string
	ttl       time.Duration

	mu    sync.Mutex
	cache map[string]cachedOrg
}

type cachedOrg struct {
	name      string
	url       string
	fetchedAt time.Time
}

// NewRefreshingSource creates a directory-backed config source. ttl defaults
// to 30s when zero.
func NewRefreshingSource(orgs OrgReader, globalURL string, ttl time.Duration) *RefreshingSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RefreshingSource{
		orgs:      orgs,
		globalURL: globalURL,
		ttl:       ttl,
		cache:     make(map[string]cachedOrg),
	}
}

// Lookup implements ConfigSource. Directory failures fall back to the last
// cached value, then to the global URL; alerting degrades, never blocks.
func (s *RefreshingSource) Lookup(organizationID string) (string, string) {
	s.mu.Lock()
	entry, ok := s.cache[organizationID]
	fresh := ok && time.Since(entry.fetchedAt) < s.ttl
	s.mu.Unlock()

	if fresh {
		return entry.name, s.fallback(entry.url)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	org, err := s.orgs.GetOrganization(ctx, organizationID)
	if err != nil {
		logger.Warn("org webhook refresh failed", "organization_id", organizationID, "error", err.Error())
		if ok {
			return entry.name, s.fallback(entry.url)
		}
		return "", s.globalURL
	}

	s.mu.Lock()
	s.cache[organizationID] = cachedOrg{name: org.Name, url: org.DiscordWebhookURL, fetchedAt: time.Now()}
	s.mu.Unlock()

	return org.Name, s.fallback(org.DiscordWebhookURL)
}

func (s *RefreshingSource) fallback(orgURL string) string {
	if orgURL != "" {
		return orgURL
	}
	return s.globalURL
}
