package credentials

import (
	"errors"
	"strings"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.anthropic.com"

var ErrNoCredentials = errors.New("credentials: no credentials found")

// Credentials describe the endpoint to probe and how to authenticate.
type Credentials struct {
	BaseURL   string
	AuthToken string
	Source    string
}

// Source resolves credentials. Get returns ErrNoCredentials when none exist.
type Source interface {
	Get() (*Credentials, error)
}

// EnvSource reads credentials from environment variables.
type EnvSource struct {
	lookup func(string) (string, bool)
}

// NewEnvSource builds a source over lookup, usually os.LookupEnv.
func NewEnvSource(lookup func(string) (string, bool)) *EnvSource {
	return &EnvSource{lookup: lookup}
}

// Get prefers ANTHROPIC_AUTH_TOKEN over ANTHROPIC_API_KEY.
func (s *EnvSource) Get() (*Credentials, error) {
	base := DefaultBaseURL
	if v, ok := s.value("ANTHROPIC_BASE_URL"); ok {
		base = v
	}
	for _, name := range []string{"ANTHROPIC_AUTH_TOKEN", "ANTHROPIC_API_KEY"} {
		if token, ok := s.value(name); ok {
			return &Credentials{BaseURL: base, AuthToken: token, Source: "env:" + name}, nil
		}
	}
	return nil, ErrNoCredentials
}

func (s *EnvSource) value(name string) (string, bool) {
	v, ok := s.lookup(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
