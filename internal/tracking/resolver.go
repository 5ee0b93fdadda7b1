// Package tracking resolves public tracking-link hits: it maps a campaign ID
// and opaque code to a target, records engagement events, and renders the
// scenario content. Failed lookups of any kind serve one identical page.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/pkg/logger"
	"github.com/aegisaware/phishtrack/internal/service/target"
)

// TargetStore is the target lookup surface the resolver needs.
type TargetStore interface {
	GetByTrackingCode(ctx context.Context, campaignID, code string) (*domain.Target, error)
	GetByCode(ctx context.Context, code string) (*domain.Target, error)
}

// CampaignStore looks up campaigns for trackability checks.
type CampaignStore interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
}

// TemplateStore loads bound alert templates.
type TemplateStore interface {
	GetAlertTemplate(ctx context.Context, id string) (*domain.AlertTemplate, error)
}

// EventRecorder applies engagement events; satisfied by target.Recorder.
type EventRecorder interface {
	Record(ctx context.Context, targetID string, eventType domain.EventType, opts target.RecordOpts) (*target.RecordResult, error)
}

// Notifier dispatches real-time alerts; satisfied by notify.Dispatcher.
type Notifier interface {
	Notify(event domain.EventType, t *domain.Target, c *domain.Campaign, firstOccurrence bool)
}

// RenderedPage is the outcome of resolving a hit.
type RenderedPage struct {
	HTML       string
	StatusCode int
}

func notFoundPage() *RenderedPage {
	return &RenderedPage{HTML: notFoundHTML, StatusCode: http.StatusNotFound}
}

// scenarioStrategy declares, per scenario type, which events a GET hit
// records and how the landing content is rendered.
type scenarioStrategy struct {
	events []domain.EventType
	render func(r *Resolver, ctx context.Context, c *domain.Campaign, t *domain.Target) (string, error)
}

var scenarioStrategies = map[domain.ScenarioType]scenarioStrategy{
	domain.ScenarioPhishingEmail: {
		events: []domain.EventType{domain.EventView, domain.EventClick},
		render: (*Resolver).renderAwarenessPage,
	},
	domain.ScenarioQRCodePhishing: {
		events: []domain.EventType{domain.EventView, domain.EventClick},
		render: (*Resolver).renderAwarenessPage,
	},
	domain.ScenarioBEC: {
		events: []domain.EventType{domain.EventView, domain.EventClick},
		render: (*Resolver).renderAwarenessPage,
	},
	domain.ScenarioAds: {
		events: []domain.EventType{domain.EventView, domain.EventClick},
		render: (*Resolver).renderAdPage,
	},
	domain.ScenarioCredentialHarvest: {
		events: []domain.EventType{domain.EventView, domain.EventClick},
		render: (*Resolver).renderHarvestForm,
	},
}

// Resolver ties lookups, event recording, notification and rendering together
// for the public hit path.
type Resolver struct {
	targets   TargetStore
	campaigns CampaignStore
	templates TemplateStore
	recorder  EventRecorder
	notifier  Notifier
}

// NewResolver wires a resolver. notifier may be nil when alerting is disabled.
func NewResolver(targets TargetStore, campaigns CampaignStore, templates TemplateStore, recorder EventRecorder, notifier Notifier) *Resolver {
	return &Resolver{
		targets:   targets,
		campaigns: campaigns,
		templates: templates,
		recorder:  recorder,
		notifier:  notifier,
	}
}

// Resolve handles a GET tracking hit. Unknown campaign, unknown code and a
// non-trackable campaign all return the same not-found page. Recording
// failures degrade: the content still renders and the failure is logged.
func (r *Resolver) Resolve(ctx context.Context, campaignID, code string, hit domain.HitInfo) (*RenderedPage, error) {
	c, t, ok := r.lookup(ctx, campaignID, code)
	if !ok {
		return notFoundPage(), nil
	}

	strategy, ok := scenarioStrategies[c.ScenarioType]
	if !ok {
		logger.Warn("unknown scenario type, rendering default awareness",
			"campaign_id", c.ID, "scenario_type", string(c.ScenarioType))
		strategy = scenarioStrategies[domain.ScenarioPhishingEmail]
	}

	if !hit.Preview {
		r.recordEvents(ctx, c, t, strategy.events, hit)
	}

	html, err := strategy.render(r, ctx, c, t)
	if err != nil {
		logger.Error("render failed, serving default awareness page",
			"campaign_id", c.ID, "error", err.Error())
		html, _ = renderTemplate(defaultAwarenessTpl, pageBindings(c, t))
	}
	return &RenderedPage{HTML: html, StatusCode: http.StatusOK}, nil
}

// SubmitCredentials handles the harvest form POST. The password field is
// discarded before this call; only the username is recorded. Returns the
// awareness-page URL to redirect to.
func (r *Resolver) SubmitCredentials(ctx context.Context, code, username string, hit domain.HitInfo) (string, error) {
	t, err := r.targets.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, target.ErrNotFound) {
			logger.Error("credential submit target lookup failed", "error", err.Error())
		}
		return "", target.ErrNotFound
	}

	c, err := r.campaigns.Get(ctx, t.CampaignID)
	if err != nil || !c.Trackable() {
		return "", target.ErrNotFound
	}

	if !hit.Preview {
		res, err := r.recorder.Record(ctx, t.ID, domain.EventCredentialSubmit, target.RecordOpts{EnteredUsername: username})
		if err != nil {
			logger.Error("record credential_submit failed",
				"target_id", t.ID, "campaign_id", c.ID, "error", err.Error())
		} else if r.notifier != nil {
			r.notifier.Notify(domain.EventCredentialSubmit, &res.Target, c, res.FirstOccurrence)
		}
	}

	return fmt.Sprintf("/%s/awareness?u=%s", url.PathEscape(t.CampaignID), url.QueryEscape(t.TrackingCode)), nil
}

// RenderAwareness renders the awareness landing without recording anything.
// It is the post-submit redirect destination; bad codes still get the uniform
// not-found page.
func (r *Resolver) RenderAwareness(ctx context.Context, campaignID, code string) (*RenderedPage, error) {
	c, t, ok := r.lookup(ctx, campaignID, code)
	if !ok {
		return notFoundPage(), nil
	}

	html, err := r.renderAwarenessPage(ctx, c, t)
	if err != nil {
		logger.Error("awareness render failed", "campaign_id", c.ID, "error", err.Error())
		html, _ = renderTemplate(defaultAwarenessTpl, pageBindings(c, t))
	}
	return &RenderedPage{HTML: html, StatusCode: http.StatusOK}, nil
}

func (r *Resolver) lookup(ctx context.Context, campaignID, code string) (*domain.Campaign, *domain.Target, bool) {
	if campaignID == "" || code == "" {
		return nil, nil, false
	}

	c, err := r.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, nil, false
	}
	if !c.Trackable() {
		return nil, nil, false
	}

	t, err := r.targets.GetByTrackingCode(ctx, campaignID, code)
	if err != nil {
		if !errors.Is(err, target.ErrNotFound) {
			logger.Error("target lookup failed", "campaign_id", campaignID, "error", err.Error())
		}
		return nil, nil, false
	}
	return c, t, true
}

func (r *Resolver) recordEvents(ctx context.Context, c *domain.Campaign, t *domain.Target, events []domain.EventType, hit domain.HitInfo) {
	for _, ev := range events {
		res, err := r.recorder.Record(ctx, t.ID, ev, target.RecordOpts{})
		if err != nil {
			// Degrade: the victim still sees the page, the miss is logged.
			logger.Error("record event failed",
				"event", string(ev), "target_id", t.ID,
				"campaign_id", c.ID, "ip", hit.IPAddress, "error", err.Error())
			continue
		}
		if ev == domain.EventClick && r.notifier != nil {
			r.notifier.Notify(ev, &res.Target, c, res.FirstOccurrence)
		}
	}
}

func (r *Resolver) renderAwarenessPage(ctx context.Context, c *domain.Campaign, t *domain.Target) (string, error) {
	src := defaultAwarenessTpl
	if c.AlertTemplateID != nil && *c.AlertTemplateID != "" {
		tpl, err := r.templates.GetAlertTemplate(ctx, *c.AlertTemplateID)
		if err != nil {
			logger.Warn("alert template lookup failed, using default",
				"template_id", *c.AlertTemplateID, "error", err.Error())
		} else {
			src = tpl.HTMLContent
		}
	}
	return renderTemplate(src, pageBindings(c, t))
}

func (r *Resolver) renderAdPage(ctx context.Context, c *domain.Campaign, t *domain.Target) (string, error) {
	return renderTemplate(adAwarenessTpl, pageBindings(c, t))
}

func (r *Resolver) renderHarvestForm(ctx context.Context, c *domain.Campaign, t *domain.Target) (string, error) {
	b := pageBindings(c, t)
	b["submit_url"] = "/track/credentials/" + url.PathEscape(t.TrackingCode)
	return renderTemplate(harvestFormTpl, b)
}
