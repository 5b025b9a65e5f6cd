package health

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/idna"

	"github.com/doridoridoriand/netmon/internal/log"
)

// OfficialBaseURL is the first-party API endpoint. It has no proxy health.
const OfficialBaseURL = "https://api.anthropic.com"

var (
	ErrURLConstruction   = errors.New("health: cannot build health-check url")
	ErrCrossHostRedirect = errors.New("health: redirect leaves original host")
)

// Options tunes how health endpoints are discovered.
type Options struct {
	UseRootURLs        bool
	TryFallback        bool
	FollowRedirectOnce bool
	Timeout            time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		UseRootURLs:        true,
		TryFallback:        true,
		FollowRedirectOnce: true,
		Timeout:            1500 * time.Millisecond,
	}
}

// Assessor determines the health level of a proxy base URL.
type Assessor struct {
	client Client
	opts   Options
	logger *log.Logger
}

// NewAssessor constructs an Assessor.
func NewAssessor(client Client, opts Options, logger *log.Logger) *Assessor {
	return &Assessor{client: client, opts: opts, logger: logger}
}

// IsOfficialEndpoint compares base against the first-party endpoint,
// ignoring case and trailing slashes.
func IsOfficialEndpoint(base string) bool {
	return strings.EqualFold(strings.TrimRight(strings.TrimSpace(base), "/"), OfficialBaseURL)
}

type attempt struct {
	level    *Level
	resolved bool
	reason   string
}

// Assess returns the proxy health level for baseURL. A nil level means
// "not applicable": the official endpoint, or no health endpoint detected.
func (a *Assessor) Assess(ctx context.Context, baseURL string) (*Level, error) {
	if IsOfficialEndpoint(baseURL) {
		return nil, nil
	}

	base, primary, fallback, err := a.buildURLs(baseURL)
	if err != nil {
		return nil, err
	}

	res := a.try(ctx, base, primary, a.opts.FollowRedirectOnce)
	a.logger.Debug("health check attempt", map[string]interface{}{
		"url": primary, "resolved": res.resolved, "reason": res.reason,
	})
	if res.resolved {
		return res.level, nil
	}

	if a.opts.TryFallback && fallback != "" {
		res = a.try(ctx, base, fallback, false)
		a.logger.Debug("health check fallback", map[string]interface{}{
			"url": fallback, "resolved": res.resolved, "reason": res.reason,
		})
		if res.resolved {
			return res.level, nil
		}
	}

	return nil, nil
}

func (a *Assessor) buildURLs(baseURL string) (*url.URL, string, string, error) {
	trimmed := strings.TrimSpace(baseURL)
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", ErrURLConstruction, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, "", "", fmt.Errorf("%w: %q is not an absolute http(s) url", ErrURLConstruction, baseURL)
	}

	root := base.Scheme + "://" + base.Host + "/health"
	normalized := strings.TrimRight(trimmed, "/") + "/health"

	primary, fallback := normalized, root
	if a.opts.UseRootURLs {
		primary, fallback = root, normalized
	}
	if fallback == primary {
		fallback = ""
	}
	return base, primary, fallback, nil
}

func (a *Assessor) try(ctx context.Context, base *url.URL, target string, followRedirect bool) attempt {
	resp, err := a.client.Get(ctx, target, a.opts.Timeout)
	if err != nil {
		return attempt{reason: "no response: " + err.Error()}
	}

	if resp.StatusCode == 404 {
		return attempt{reason: "endpoint absent"}
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if !followRedirect {
			return attempt{reason: fmt.Sprintf("redirect %d not followed", resp.StatusCode)}
		}
		next, err := redirectTarget(base, target, resp.Header.Get("Location"))
		if err != nil {
			a.logger.Warn("health redirect rejected", map[string]interface{}{"url": target, "error": err.Error()})
			return attempt{reason: err.Error()}
		}
		resp, err = a.client.Get(ctx, next, a.opts.Timeout)
		if err != nil {
			return attempt{reason: "no response after redirect: " + err.Error()}
		}
		if resp.StatusCode == 404 {
			return attempt{reason: "endpoint absent after redirect"}
		}
	}

	return interpret(resp)
}

func interpret(resp *Response) attempt {
	code := resp.StatusCode
	switch {
	case code == 200:
		level := ParseBody(resp.Body)
		if level == nil {
			return attempt{reason: "empty body"}
		}
		return attempt{level: level, resolved: true, reason: "body"}
	case isChallengeStatus(code) && isCloudflareChallenge(resp):
		return attempt{level: LevelUnknown.Ptr(), resolved: true, reason: "anti-bot challenge"}
	case code == 429:
		return attempt{level: LevelDegraded.Ptr(), resolved: true, reason: "rate limited"}
	case code >= 500 && code <= 599:
		return attempt{level: LevelBad.Ptr(), resolved: true, reason: fmt.Sprintf("server status %d", code)}
	}
	return attempt{reason: fmt.Sprintf("unexpected status %d", code)}
}

// redirectTarget resolves location against the request URL and rejects
// targets on a different host than base.
func redirectTarget(base *url.URL, requested, location string) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", fmt.Errorf("%w: empty Location header", ErrCrossHostRedirect)
	}
	reqURL, err := url.Parse(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLConstruction, err)
	}
	loc, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return "", fmt.Errorf("%w: bad Location %q", ErrCrossHostRedirect, location)
	}
	next := reqURL.ResolveReference(loc)
	if !sameHost(base.Hostname(), next.Hostname()) {
		return "", fmt.Errorf("%w: %s -> %s", ErrCrossHostRedirect, base.Hostname(), next.Hostname())
	}
	return next.String(), nil
}

func sameHost(a, b string) bool {
	return canonicalHost(a) == canonicalHost(b)
}

func canonicalHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}
