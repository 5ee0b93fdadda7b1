package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/aegisaware/phishtrack/internal/service/risk"
)

// ErrUnsupportedFormat is returned for export formats outside csv/json/pdf.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportFormat identifies an export encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatPDF  ExportFormat = "pdf"
)

// ParseFormat validates an export format string before any data is read.
func ParseFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case FormatCSV, FormatJSON, FormatPDF:
		return ExportFormat(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ExportResult carries one rendered export.
type ExportResult struct {
	ContentType string
	Filename    string
	Data        []byte
}

// Export renders the vulnerable-users dataset in the requested format. Every
// format is produced from the exact same report the JSON endpoint serves; a
// CSV row set and a JSON user set for identical parameters always agree.
func (s *Service) Export(ctx context.Context, format string, days int, filter risk.Filter, organizationID string) (*ExportResult, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	report, err := s.VulnerableUsers(ctx, days, filter, organizationID)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	switch f {
	case FormatCSV:
		data, err := renderCSV(report)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			ContentType: "text/csv",
			Filename:    "vulnerable-users-" + stamp + ".csv",
			Data:        data,
		}, nil

	case FormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			ContentType: "application/json",
			Filename:    "vulnerable-users-" + stamp + ".json",
			Data:        data,
		}, nil

	default: // FormatPDF
		return &ExportResult{
			ContentType: "text/html",
			Filename:    "vulnerable-users-" + stamp + ".html",
			Data:        renderPrintHTML(report, days),
		}, nil
	}
}

var csvHeader = []string{
	"email", "organization", "risk_level", "clicks",
	"credential_submissions", "campaigns_failed", "last_failure",
}

func renderCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, u := range report.Users {
		last := ""
		if u.LastFailure != nil {
			last = u.LastFailure.UTC().Format(time.RFC3339)
		}
		row := []string{
			u.Email,
			u.OrganizationName,
			string(u.RiskLevel),
			strconv.Itoa(u.Clicks),
			strconv.Itoa(u.CredentialSubmissions),
			strings.Join(u.CampaignsFailed, "; "),
			last,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// renderPrintHTML produces the print-oriented rendering behind the pdf
// format. The admin UI opens it in the browser's print dialog; there is no
// server-side PDF engine.
func renderPrintHTML(report *Report, days int) []byte {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Vulnerable Users Report</title>
<style>
@media print { body { margin: 0; } }
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; margin: 32px; color: #1f2937; }
h1 { font-size: 22px; }
.meta { color: #6b7280; font-size: 13px; margin-bottom: 24px; }
table { border-collapse: collapse; width: 100%; font-size: 13px; }
th, td { border: 1px solid #d1d5db; padding: 6px 10px; text-align: left; }
th { background: #f3f4f6; }
.critical { color: #b91c1c; font-weight: 600; }
.high { color: #c2410c; font-weight: 600; }
.medium { color: #a16207; }
.low { color: #15803d; }
</style>
</head>
<body>
`)
	fmt.Fprintf(&b, "<h1>Vulnerable Users Report</h1>\n")
	fmt.Fprintf(&b, `<p class="meta">Window: last %d days · Generated %s · %d users · %d critical / %d high / %d medium / %d low</p>`,
		days, time.Now().UTC().Format("2006-01-02 15:04 UTC"), report.Total,
		report.Stats.Critical, report.Stats.High, report.Stats.Medium, report.Stats.Low)
	b.WriteString("\n<table>\n<tr><th>Email</th><th>Organization</th><th>Risk</th><th>Clicks</th><th>Submissions</th><th>Campaigns Failed</th><th>Last Failure</th></tr>\n")

	for _, u := range report.Users {
		last := ""
		if u.LastFailure != nil {
			last = u.LastFailure.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td class="%s">%s</td><td>%d</td><td>%d</td><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(u.Email),
			html.EscapeString(u.OrganizationName),
			string(u.RiskLevel), string(u.RiskLevel),
			u.Clicks, u.CredentialSubmissions,
			html.EscapeString(strings.Join(u.CampaignsFailed, ", ")),
			last)
		b.WriteString("\n")
	}
	b.WriteString("</table>\n</body>\n</html>\n")
	return []byte(b.String())
}
