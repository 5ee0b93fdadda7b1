package tracking

import (
	"fmt"

	"github.com/osteele/liquid"

	"github.com/aegisaware/phishtrack/internal/domain"
)

var liquidEngine = liquid.NewEngine()

// notFoundHTML is the single page served for every failed lookup: unknown
// campaign, unknown or garbage code, non-trackable campaign. One byte
// sequence for all of them, so responses carry no oracle about which codes
// or campaigns exist.
const notFoundHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Page Not Found</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f4f5f7; margin: 0; }
.box { max-width: 480px; margin: 15vh auto; background: #fff; border-radius: 8px; padding: 40px; text-align: center; box-shadow: 0 1px 4px rgba(0,0,0,.08); }
h1 { font-size: 22px; color: #1f2937; }
p { color: #6b7280; }
</style>
</head>
<body>
<div class="box">
<h1>Page Not Found</h1>
<p>The page you are looking for does not exist or is no longer available.</p>
</div>
</body>
</html>`

// defaultAwarenessTpl is the liquid source rendered when a campaign has no
// bound alert template.
const defaultAwarenessTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Security Awareness Notice</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #fef2f2; margin: 0; }
.box { max-width: 560px; margin: 10vh auto; background: #fff; border-radius: 8px; padding: 40px; box-shadow: 0 1px 4px rgba(0,0,0,.08); border-top: 6px solid #dc2626; }
h1 { font-size: 24px; color: #dc2626; }
p { color: #374151; line-height: 1.6; }
ul { color: #374151; line-height: 1.8; }
.footer { margin-top: 32px; font-size: 13px; color: #9ca3af; }
</style>
</head>
<body>
<div class="box">
<h1>This was a phishing simulation</h1>
<p>The link you just followed was part of the <strong>{{ campaign_name }}</strong>
security awareness exercise run by your organization. No harm was done, but a
real attacker would now have a foothold.</p>
<p>Warning signs to watch for next time:</p>
<ul>
<li>Unexpected urgency or pressure to act immediately</li>
<li>Sender addresses that almost, but not quite, match a trusted domain</li>
<li>Links whose destination differs from the displayed text</li>
<li>Requests for credentials or payment details via email</li>
</ul>
<p class="footer">This exercise was authorized by your organization's security team.</p>
</div>
</body>
</html>`

// adAwarenessTpl is the ad-creative variant, framed around malvertising.
const adAwarenessTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Security Awareness Notice</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #fff7ed; margin: 0; }
.box { max-width: 560px; margin: 10vh auto; background: #fff; border-radius: 8px; padding: 40px; box-shadow: 0 1px 4px rgba(0,0,0,.08); border-top: 6px solid #ea580c; }
h1 { font-size: 24px; color: #ea580c; }
p { color: #374151; line-height: 1.6; }
.footer { margin-top: 32px; font-size: 13px; color: #9ca3af; }
</style>
</head>
<body>
<div class="box">
<h1>That ad was a simulation</h1>
<p>You clicked a simulated malicious advertisement placed as part of the
<strong>{{ campaign_name }}</strong> awareness exercise. Malvertising is a
common way attackers deliver malware through otherwise legitimate sites.</p>
<p>Be cautious with ads promising prizes, urgent downloads, or deals that are
too good to be true, even on sites you trust.</p>
<p class="footer">This exercise was authorized by your organization's security team.</p>
</div>
</body>
</html>`

// harvestFormTpl is the fake login page for credential_harvest scenarios. It
// posts the username to the credential endpoint; the password field is never
// read or transmitted anywhere by the backend.
const harvestFormTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sign in</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f4f5f7; margin: 0; }
.box { max-width: 400px; margin: 12vh auto; background: #fff; border-radius: 8px; padding: 40px; box-shadow: 0 1px 4px rgba(0,0,0,.08); }
h1 { font-size: 20px; color: #1f2937; text-align: center; }
label { display: block; font-size: 13px; color: #374151; margin: 16px 0 4px; }
input { width: 100%; padding: 10px; border: 1px solid #d1d5db; border-radius: 6px; box-sizing: border-box; }
button { width: 100%; margin-top: 24px; padding: 12px; background: #2563eb; color: #fff; border: 0; border-radius: 6px; font-size: 15px; cursor: pointer; }
</style>
</head>
<body>
<div class="box">
<h1>Sign in to continue</h1>
<form method="POST" action="{{ submit_url }}">
<label for="username">Email or username</label>
<input id="username" name="username" type="text" autocomplete="username">
<label for="password">Password</label>
<input id="password" name="password" type="password" autocomplete="current-password">
<button type="submit">Sign in</button>
</form>
</div>
</body>
</html>`

func renderTemplate(src string, bindings map[string]interface{}) (string, error) {
	out, err := liquidEngine.ParseAndRenderString(src, bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

func pageBindings(c *domain.Campaign, t *domain.Target) map[string]interface{} {
	b := map[string]interface{}{
		"campaign_name": c.Name,
		"scenario_type": string(c.ScenarioType),
	}
	if t != nil {
		b["email"] = t.Email
		b["tracking_code"] = t.TrackingCode
	}
	return b
}
