package health

import (
	"encoding/json"
	"strings"
)

// Level is the assessed health of a proxy-style endpoint.
type Level string

const (
	LevelHealthy  Level = "healthy"
	LevelDegraded Level = "degraded"
	LevelBad      Level = "bad"
	LevelUnknown  Level = "unknown"
)

// Ptr returns a pointer to a copy of l.
func (l Level) Ptr() *Level {
	return &l
}

// LegacyHealthy maps a level onto the two-state proxy_healthy flag.
// A nil level stays unset.
func LegacyHealthy(level *Level) *bool {
	if level == nil {
		return nil
	}
	v := *level == LevelHealthy
	return &v
}

var (
	healthyWords  = []string{"healthy", "ok", "up", "running"}
	degradedWords = []string{"unhealthy", "degraded", "warning"}
	badWords      = []string{"error", "down", "fail", "failed", "critical", "offline"}
	errorKeys     = []string{"error", "errors", "failure", "failures"}
)

// ParseBody interprets a 200 health response body. It returns nil for an
// empty body, which callers treat as "no endpoint".
func ParseBody(body []byte) *Level {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		if level, ok := classifyWord(trimmed); ok {
			return level.Ptr()
		}
		return LevelBad.Ptr()
	}

	switch v := doc.(type) {
	case map[string]interface{}:
		return parseObject(v).Ptr()
	case string:
		if level, ok := classifyWord(v); ok {
			return level.Ptr()
		}
	}
	return LevelBad.Ptr()
}

func parseObject(obj map[string]interface{}) Level {
	fields := lowerKeys(obj)

	if raw, ok := fields["status"]; ok {
		if s, ok := raw.(string); ok {
			if level, ok := classifyWord(s); ok {
				return level
			}
		}
	}

	if raw, ok := fields["healthy"]; ok {
		if b, ok := raw.(bool); ok {
			if b {
				return LevelHealthy
			}
			return LevelDegraded
		}
	}

	if raw, ok := fields["components"]; ok {
		// An empty map has no failing member and counts as healthy.
		if components, ok := raw.(map[string]interface{}); ok {
			for _, member := range components {
				if !componentHealthy(member) {
					return LevelDegraded
				}
			}
			return LevelHealthy
		}
	}

	for _, key := range errorKeys {
		if _, ok := fields[key]; ok {
			return LevelBad
		}
	}

	return LevelBad
}

func componentHealthy(member interface{}) bool {
	switch v := member.(type) {
	case string:
		return containsFold(healthyWords, v)
	case map[string]interface{}:
		s, ok := lowerKeys(v)["status"].(string)
		return ok && containsFold(healthyWords, s)
	}
	return false
}

func classifyWord(s string) (Level, bool) {
	switch {
	case containsFold(healthyWords, s):
		return LevelHealthy, true
	case containsFold(degradedWords, s):
		return LevelDegraded, true
	case containsFold(badWords, s):
		return LevelBad, true
	}
	return "", false
}

func containsFold(words []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, w := range words {
		if strings.EqualFold(w, s) {
			return true
		}
	}
	return false
}

// lowerKeys folds keys to lower case. An exact lower-case key wins over its variants.
func lowerKeys(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		lk := strings.ToLower(k)
		if _, dup := out[lk]; dup && k != lk {
			continue
		}
		out[lk] = v
	}
	return out
}
