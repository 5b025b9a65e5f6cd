package health

import (
	"net/http"
	"strings"
)

var challengeCookies = []string{"__cf_chl", "cf_clearance", "__cf_bm"}

var challengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"challenge-platform",
	"cf-browser-verification",
	"cf_chl_opt",
	"attention required! | cloudflare",
}

// isCloudflareChallenge reports whether a response looks like an anti-bot
// interstitial rather than an answer from the proxy itself.
func isCloudflareChallenge(resp *Response) bool {
	if resp == nil {
		return false
	}
	if resp.Header.Get("Cf-Mitigated") != "" || resp.Header.Get("Cf-Chl-Bypass") != "" {
		return true
	}
	for _, cookie := range resp.Header.Values("Set-Cookie") {
		lc := strings.ToLower(cookie)
		for _, name := range challengeCookies {
			if strings.Contains(lc, name) {
				return true
			}
		}
	}
	body := strings.ToLower(string(resp.Body))
	for _, marker := range challengeMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func isChallengeStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusServiceUnavailable || code == http.StatusTooManyRequests
}
