package worker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/osteele/liquid"

	"github.com/aegisaware/phishtrack/internal/domain"
	"github.com/aegisaware/phishtrack/internal/pkg/logger"
)

// TargetWriter is the target-store surface the launcher needs.
type TargetWriter interface {
	CreateBatch(ctx context.Context, targets []domain.Target) (int, error)
	GetByUser(ctx context.Context, campaignID, userID string) (*domain.Target, error)
	MarkDelivered(ctx context.Context, targetID string, at time.Time) error
	MarkSendFailed(ctx context.Context, targetID, reason string) error
}

// Directory is the read-only directory surface the launcher needs.
type Directory interface {
	ListRecipients(ctx context.Context, organizationID string) ([]domain.User, error)
	GetEmailTemplate(ctx context.Context, id string) (*domain.EmailTemplate, error)
}

// defaultEmailTpl is the simulation email used when a campaign has no bound
// template. Deliberately generic; real campaigns bind a crafted template.
const defaultEmailTpl = `<p>Hi {{ first_name }},</p>
<p>Your account requires attention. Please review the notice below as part
of {{ campaign_name }}:</p>
<p><a href="{{ tracking_url }}">Review account notice</a></p>
<p>Thank you.</p>`

const defaultEmailSubject = "Action required: account notice"

const defaultSendTimeout = 30 * time.Second

// Launcher turns a claimed campaign into target rows and outbound emails.
type Launcher struct {
	targets     TargetWriter
	directory   Directory
	sender      Sender
	baseURL     string
	sendTimeout time.Duration
	engine      *liquid.Engine
	now         func() time.Time
}

// NewLauncher wires a campaign launcher. baseURL is the public tracking
// origin embedded in links. sendTimeout bounds each individual email send;
// zero means the 30s default.
func NewLauncher(targets TargetWriter, directory Directory, sender Sender, baseURL string, sendTimeout time.Duration) *Launcher {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Launcher{
		targets:     targets,
		directory:   directory,
		sender:      sender,
		baseURL:     baseURL,
		sendTimeout: sendTimeout,
		engine:      liquid.NewEngine(),
		now:         time.Now,
	}
}

// LaunchStats summarizes one launch run.
type LaunchStats struct {
	Recipients int
	Created    int
	Sent       int
	Failed     int
}

// Launch creates the target rows for every recipient and sends each one the
// simulation email. Send failures are per-recipient: they are recorded on
// the target row and counted, never escalated to a campaign failure.
func (l *Launcher) Launch(ctx context.Context, c *domain.Campaign) (*LaunchStats, error) {
	recipients, err := l.directory.ListRecipients(ctx, c.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list recipients for campaign %s: %w", c.ID, err)
	}

	stats := &LaunchStats{Recipients: len(recipients)}
	if len(recipients) == 0 {
		logger.Warn("campaign has no recipients", "campaign_id", c.ID)
		return stats, nil
	}

	subject, bodyTpl, err := l.emailTemplate(ctx, c)
	if err != nil {
		return nil, err
	}

	targets := make([]domain.Target, 0, len(recipients))
	for _, u := range recipients {
		code, err := newTrackingCode()
		if err != nil {
			return nil, fmt.Errorf("generate tracking code: %w", err)
		}
		targets = append(targets, domain.Target{
			CampaignID:   c.ID,
			UserID:       u.ID,
			Email:        u.Email,
			TrackingCode: code,
		})
	}

	created, err := l.targets.CreateBatch(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("create targets for campaign %s: %w", c.ID, err)
	}
	stats.Created = created

	for _, u := range recipients {
		// Re-read the row rather than trusting the freshly generated code:
		// on a relaunch after a partial failure the existing row (and its
		// already-distributed code) must win over the new batch entry.
		t, err := l.targets.GetByUser(ctx, c.ID, u.ID)
		if err != nil {
			logger.Error("target lookup after create failed",
				"campaign_id", c.ID, "user_id", u.ID, "error", err.Error())
			stats.Failed++
			continue
		}
		if t.DeliveredAt != nil {
			continue
		}

		body, err := l.renderEmail(bodyTpl, c, u, t.TrackingCode)
		if err != nil {
			logger.Error("render email failed", "campaign_id", c.ID, "error", err.Error())
			l.markFailed(ctx, t.ID, "template render: "+err.Error())
			stats.Failed++
			continue
		}

		if err := l.send(ctx, u.Email, subject, body); err != nil {
			logger.Error("send failed", "campaign_id", c.ID, "email", u.Email, "error", err.Error())
			l.markFailed(ctx, t.ID, err.Error())
			stats.Failed++
			continue
		}

		if err := l.targets.MarkDelivered(ctx, t.ID, l.now().UTC()); err != nil {
			logger.Error("mark delivered failed", "target_id", t.ID, "error", err.Error())
		}
		stats.Sent++
	}

	return stats, nil
}

// send gives every delivery its own deadline so one hung connection can
// stall at most one recipient, never the whole launch loop.
func (l *Launcher) send(ctx context.Context, to, subject, body string) error {
	sendCtx, cancel := context.WithTimeout(ctx, l.sendTimeout)
	defer cancel()
	return l.sender.Send(sendCtx, to, subject, body)
}

func (l *Launcher) emailTemplate(ctx context.Context, c *domain.Campaign) (subject, body string, err error) {
	if c.EmailTemplateID == nil || *c.EmailTemplateID == "" {
		return defaultEmailSubject, defaultEmailTpl, nil
	}
	tpl, err := l.directory.GetEmailTemplate(ctx, *c.EmailTemplateID)
	if err != nil {
		return "", "", fmt.Errorf("load email template %s: %w", *c.EmailTemplateID, err)
	}
	return tpl.Subject, tpl.HTMLContent, nil
}

func (l *Launcher) renderEmail(tplSrc string, c *domain.Campaign, u domain.User, code string) (string, error) {
	trackingURL := fmt.Sprintf("%s/%s?u=%s", l.baseURL, url.PathEscape(c.ID), url.QueryEscape(code))
	return l.engine.ParseAndRenderString(tplSrc, map[string]interface{}{
		"tracking_url":  trackingURL,
		"first_name":    u.FirstName,
		"email":         u.Email,
		"campaign_name": c.Name,
	})
}

func (l *Launcher) markFailed(ctx context.Context, targetID, reason string) {
	if err := l.targets.MarkSendFailed(ctx, targetID, reason); err != nil {
		logger.Error("mark send failed errored", "target_id", targetID, "error", err.Error())
	}
}

// newTrackingCode returns a 32-hex-char unguessable token.
func newTrackingCode() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
