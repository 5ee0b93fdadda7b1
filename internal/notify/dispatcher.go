// Package notify dispatches real-time Discord webhook alerts for tracked
// phishing-simulation events. Delivery is fire-and-forget: a failed or slow
// webhook never slows down or fails a tracking hit.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/pkg/logger"
)

// Discord embed sidebar colors.
const (
	colorOrange = 0xE67E22 // click
	colorRed    = 0xE74C3C // credential_submit
)

const defaultTimeout = 5 * time.Second

// ConfigSource resolves webhook routing for an organization. Implementations
// refresh on their own schedule; Lookup must be cheap to call.
type ConfigSource interface {
	// Lookup returns the organization's display name and its webhook URL,
	// already falling back to the global URL. An empty URL means
	// notifications are disabled for this org.
	Lookup(organizationID string) (name, url string)
}

// StaticConfig is a ConfigSource with one global URL and no per-org lookup.
type StaticConfig struct{ URL string }

func (s StaticConfig) Lookup(string) (string, string) { return "", s.URL }

// Dispatcher posts event alerts to Discord webhooks.
type Dispatcher struct {
	source  ConfigSource
	client  *http.Client
	timeout time.Duration

	// dispatched signals when a delivery goroutine finishes, including
	// no-op exits; test instrumentation only, nil in production.
	dispatched chan struct{}
}

// NewDispatcher creates a dispatcher. timeout bounds each webhook POST;
// zero means the 5s default.
func NewDispatcher(source ConfigSource, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		source:  source,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Notify sends an alert for a tracked event. It no-ops unless this is the
// first occurrence of the event type for the target, and only click and
// credential_submit ever alert. Everything that can touch the network, the
// webhook lookup included, runs on a detached goroutine with its own
// deadline, never the request context: the victim's page load must not be
// tied to the directory's or Discord's availability.
func (d *Dispatcher) Notify(event domain.EventType, t *domain.Target, c *domain.Campaign, firstOccurrence bool) {
	if !firstOccurrence {
		return
	}
	if event != domain.EventClick && event != domain.EventCredentialSubmit {
		return
	}

	go func() {
		defer d.signal()

		orgName, url := d.source.Lookup(c.OrganizationID)
		if url == "" {
			return
		}

		payload, err := json.Marshal(buildPayload(event, t, c, orgName))
		if err != nil {
			logger.Error("marshal webhook payload", "error", err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.post(ctx, url, payload); err != nil {
			logger.Warn("webhook delivery failed",
				"event", string(event), "campaign_id", c.ID, "error", err.Error())
		}
	}()
}

func (d *Dispatcher) signal() {
	if d.dispatched != nil {
		d.dispatched <- struct{}{}
	}
}

func (d *Dispatcher) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// discordPayload is the subset of the Discord webhook API we use.
type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Timestamp string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

func buildPayload(event domain.EventType, t *domain.Target, c *domain.Campaign, orgName string) discordPayload {
	title := "🎣 Phishing Link Clicked"
	color := colorOrange
	severity := "High"
	if event == domain.EventCredentialSubmit {
		title = "🚨 Credentials Submitted"
		color = colorRed
		severity = "Critical"
	}

	fields := []discordField{
		{Name: "User", Value: t.Email, Inline: true},
		{Name: "Campaign", Value: c.Name, Inline: true},
		{Name: "Severity", Value: severity, Inline: true},
		{Name: "Scenario", Value: string(c.ScenarioType), Inline: true},
	}
	if orgName != "" {
		fields = append(fields, discordField{Name: "Organization", Value: orgName, Inline: true})
	}

	return discordPayload{Embeds: []discordEmbed{{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}}
}
