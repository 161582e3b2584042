package fetcher

import "strings"

// challengeMarker identifies one kind of bot-challenge page.
type challengeMarker struct {
	kind   string
	titles []string
	bodies []string
}

var challengeMarkers = []challengeMarker{
	{
		kind:   "cloudflare",
		titles: []string{"just a moment", "attention required"},
		bodies: []string{"cf-challenge", "cf_chl_opt"},
	},
	{
		kind:   "cloudflare-turnstile",
		bodies: []string{"challenges.cloudflare.com/turnstile", "cf-turnstile"},
	},
	{
		kind:   "hcaptcha",
		bodies: []string{"hcaptcha.com", "h-captcha"},
	},
	{
		kind:   "recaptcha",
		bodies: []string{"google.com/recaptcha", "g-recaptcha"},
	},
	{
		kind:   "anti-bot",
		titles: []string{"access denied", "bot detection"},
		bodies: []string{"robot or human"},
	},
}

// DetectChallenge reports which kind of bot-challenge page title and html
// look like, or "" when neither matches any known marker.
func DetectChallenge(title, html string) string {
	title = strings.ToLower(title)
	html = strings.ToLower(html)

	for _, m := range challengeMarkers {
		for _, t := range m.titles {
			if strings.Contains(title, t) {
				return m.kind
			}
		}
		for _, b := range m.bodies {
			if strings.Contains(html, b) {
				return m.kind
			}
		}
	}
	return ""
}
