package config

import "time"

// Config holds runtime settings for the storymap client.
//
// Fields:
//   - BaseURL: root of the backend REST API, e.g. https://story-api.example.dev/v1.
//   - ProbeURL: external cache-busting resource used for the reachability probe.
//   - DatabasePath: path to the local sqlite database file.
//   - OnlineCheckInterval: how often the network monitor re-probes connectivity.
//   - RefreshInterval: how often the sync coordinator refetches the story list
//     while online and visible.
//   - ProbeTimeout: per-probe deadline for connectivity checks.
//   - KeepStaleWhenOffline: when true, a transition to offline keeps the last
//     fetched list on screen instead of clearing it. Default false: the list is
//     cleared and an offline placeholder is shown.
//   - PushEndpoint: delivery endpoint registered with the backend when the
//     user opts in to push notifications. Points at the local agent.
type Config struct {
	BaseURL              string
	ProbeURL             string
	PushEndpoint         string
	DatabasePath         string
	OnlineCheckInterval  time.Duration
	RefreshInterval      time.Duration
	ProbeTimeout         time.Duration
	KeepStaleWhenOffline bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "https://story-api.dicoding.dev/v1"
	c.ProbeURL = "https://www.google.com/favicon.ico"
	c.PushEndpoint = "http://localhost:8787/push"
	c.DatabasePath = "storymap.db"
	c.OnlineCheckInterval = 30 * time.Second
	c.RefreshInterval = 10 * time.Second
	c.ProbeTimeout = 5 * time.Second
	c.KeepStaleWhenOffline = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
