package config

import "time"

// HealthOptions tune the proxy health check.
type HealthOptions struct {
	UseRootURLs        bool
	TryFallback        bool
	FollowRedirectOnce bool
	Timeout            time.Duration
}

// Options holds settings after defaults, file, environment and CLI are applied.
type Options struct {
	StatePath       string
	ColdWindow      time.Duration
	TimeoutOverride time.Duration
	TimingMode      string
	LogLevel        string
	LogPath         string
	Health          HealthOptions
	MetricsTextfile string
	EndpointPath    string
	Model           string

	// Warnings lists environment values that were ignored.
	Warnings []string
}

// CLIOverrides holds optional CLI values that override everything else.
type CLIOverrides struct {
	StatePath       *string
	ColdWindow      *time.Duration
	TimeoutOverride *time.Duration
	TimingMode      *string
	LogLevel        *string
	MetricsTextfile *string
}

// fileConfig mirrors config.yaml. Pointers distinguish absent keys.
type fileConfig struct {
	StatePath       *string    `yaml:"state_path"`
	ColdWindow      *int64     `yaml:"cold_window"`
	TimeoutOverride *int64     `yaml:"timeout_override"`
	TimingMode      *string    `yaml:"timing_mode"`
	LogLevel        *string    `yaml:"log_level"`
	LogPath         *string    `yaml:"log_path"`
	Health          fileHealth `yaml:"health"`
	Metrics         struct {
		Textfile *string `yaml:"textfile"`
	} `yaml:"metrics"`
	EndpointPath *string `yaml:"endpoint_path"`
	Model        *string `yaml:"model"`
}

type fileHealth struct {
	UseRootURLs        *bool  `yaml:"use_root_urls"`
	TryFallback        *bool  `yaml:"try_fallback"`
	FollowRedirectOnce *bool  `yaml:"follow_redirect_once"`
	Timeout            *int64 `yaml:"timeout"`
}
