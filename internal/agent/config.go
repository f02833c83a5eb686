// Package agent implements the background worker process: a caching proxy
// for the app's outbound requests, a push receiver that decrypts and
// displays notifications, and a message endpoint for the client.
package agent

import (
	"net/url"
	"os"
)

// Config holds the agent's runtime settings. Values come from defaults
// overlaid with environment variables; the agent is meant to run unattended,
// so there is no interactive configuration.
//
// Recognized variables:
//
//	STORYMAP_AGENT_ADDR      listen address
//	STORYMAP_BASE_URL        backend REST API root (origin is derived)
//	STORYMAP_APP_ORIGIN      app origin used in notification URLs
//	STORYMAP_AGENT_DB_PATH   cache database file
//	STORYMAP_CLIENT_DB_PATH  client database file (push key material)
//	STORYMAP_CACHE_VERSION   active cache generation
//	STORYMAP_REDIS_ADDR      use redis instead of sqlite for the cache
//	STORYMAP_PUSH_WS_URL     websocket push feed, empty disables
type Config struct {
	ListenAddr    string
	APIOrigin     string
	AppOrigin     string
	DatabasePath  string
	ClientDBPath  string
	CacheVersion  string
	RedisAddr     string
	PushSourceURL string
}

func LoadConfig() *Config {
	cfg := &Config{
		ListenAddr:   ":8787",
		APIOrigin:    "https://story-api.dicoding.dev",
		AppOrigin:    "http://localhost:8080",
		DatabasePath: "storymap-agent.db",
		ClientDBPath: "storymap.db",
		CacheVersion: "v1",
	}
	if v := os.Getenv("STORYMAP_AGENT_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("STORYMAP_BASE_URL"); v != "" {
		cfg.APIOrigin = originOf(v)
	}
	if v := os.Getenv("STORYMAP_APP_ORIGIN"); v != "" {
		cfg.AppOrigin = v
	}
	if v := os.Getenv("STORYMAP_AGENT_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("STORYMAP_CLIENT_DB_PATH"); v != "" {
		cfg.ClientDBPath = v
	}
	if v := os.Getenv("STORYMAP_CACHE_VERSION"); v != "" {
		cfg.CacheVersion = v
	}
	if v := os.Getenv("STORYMAP_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("STORYMAP_PUSH_WS_URL"); v != "" {
		cfg.PushSourceURL = v
	}
	return cfg
}

// originOf reduces a URL like https://host/v1 to its origin.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
