package config

import "os"

// parseEnv overlays Config with values from the environment. Only string
// fields are sourced from env; intervals stay flag/JSON-driven to keep the
// precedence rules easy to reason about.
//
// Recognized variables:
//
//	STORYMAP_BASE_URL       backend REST API root
//	STORYMAP_PROBE_URL      external reachability probe resource
//	STORYMAP_DB_PATH        local database file
//	STORYMAP_PUSH_ENDPOINT  push delivery endpoint (the local agent)
func parseEnv(cfg *Config) {
	if v := os.Getenv("STORYMAP_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("STORYMAP_PROBE_URL"); v != "" {
		cfg.ProbeURL = v
	}
	if v := os.Getenv("STORYMAP_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("STORYMAP_PUSH_ENDPOINT"); v != "" {
		cfg.PushEndpoint = v
	}
}
