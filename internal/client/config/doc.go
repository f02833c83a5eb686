// Package config loads runtime configuration for the storymap client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables (STORYMAP_BASE_URL, STORYMAP_PROBE_URL, STORYMAP_DB_PATH).
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend REST API
//	-d string   path to the local database file
//	-i int      online status check interval (seconds)
//	-r int      story list refresh interval (seconds)
//	-k          keep stale stories visible while offline
//
// Primary API
//
//   - type Config                     — runtime settings for the client
//   - func LoadConfig() *Config       — builds Config by applying defaults, env, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
package config
