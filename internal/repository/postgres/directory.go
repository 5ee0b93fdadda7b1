package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aegisaware/phishtrack/internal/domain"
)

// ErrDirectoryNotFound is returned for unknown directory lookups.
var ErrDirectoryNotFound = errors.New("directory record not found")

// DirectoryRepo is the read-only view of the user/organization directory and
// template stores. These are owned by the admin platform; this engine only
// reads them.
type DirectoryRepo struct{ db *sql.DB }

// NewDirectoryRepo creates a Postgres-backed directory reader.
func NewDirectoryRepo(db *sql.DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

func (r *DirectoryRepo) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	o := &domain.Organization{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(discord_webhook_url, ''), created_at
		FROM organizations WHERE id = $1
	`, id).Scan(&o.ID, &o.Name, &o.DiscordWebhookURL, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrDirectoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return o, nil
}

// ListRecipients returns the organization's users, the recipient set for a
// campaign launch.
func (r *DirectoryRepo) ListRecipients(ctx context.Context, organizationID string) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organization_id, email, COALESCE(first_name, ''), COALESCE(last_name, '')
		FROM users
		WHERE organization_id = $1
		ORDER BY id
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *DirectoryRepo) GetEmailTemplate(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	t := &domain.EmailTemplate{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, subject, html_content
		FROM email_templates WHERE id = $1
	`, id).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Subject, &t.HTMLContent)
	if err == sql.ErrNoRows {
		return nil, ErrDirectoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email template: %w", err)
	}
	return t, nil
}

func (r *DirectoryRepo) GetAlertTemplate(ctx context.Context, id string) (*domain.AlertTemplate, error) {
	t := &domain.AlertTemplate{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, html_content
		FROM alert_templates WHERE id = $1
	`, id).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.HTMLContent)
	if err == sql.ErrNoRows {
		return nil, ErrDirectoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert template: %w", err)
	}
	return t, nil
}
