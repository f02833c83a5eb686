package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/satriojati/storymap/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals are
// given in seconds so a config file stays readable:
//
//	{
//	  "base_url": "https://story-api.dicoding.dev/v1",
//	  "online_check_interval_s": 30,
//	  "refresh_interval_s": 10
//	}
type JsonConfig struct {
	BaseURL              *string `json:"base_url"`
	ProbeURL             *string `json:"probe_url"`
	DatabasePath         *string `json:"database_path"`
	OnlineCheckInterval  *int    `json:"online_check_interval_s"`
	RefreshInterval      *int    `json:"refresh_interval_s"`
	KeepStaleWhenOffline *bool   `json:"keep_stale_when_offline"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags (flagx.JsonConfigFlags); if no path is
// given, nothing is loaded. Fields absent from the file keep their current
// values. Panics on read or unmarshal errors (caller should recover if
// desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != nil {
		cfg.BaseURL = *jc.BaseURL
	}
	if jc.ProbeURL != nil {
		cfg.ProbeURL = *jc.ProbeURL
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = time.Duration(*jc.OnlineCheckInterval) * time.Second
	}
	if jc.RefreshInterval != nil {
		cfg.RefreshInterval = time.Duration(*jc.RefreshInterval) * time.Second
	}
	if jc.KeepStaleWhenOffline != nil {
		cfg.KeepStaleWhenOffline = *jc.KeepStaleWhenOffline
	}
}
