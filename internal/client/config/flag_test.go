package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "https://api.local/v1", "-i", "10", "-r", "5"}, expectPanic: false,
			expected: &Config{BaseURL: "https://api.local/v1", OnlineCheckInterval: 10 * time.Second, RefreshInterval: 5 * time.Second}},
		{name: "Test2 keep-stale flag", args: []string{"cmd", "-k"}, expectPanic: false,
			expected: &Config{KeepStaleWhenOffline: true}},
		{name: "Test3 incorrect check interval", args: []string{"cmd", "-a", "https://api.local/v1", "-i", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			origArgs := os.Args
			t.Cleanup(func() { os.Args = origArgs })
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Equal(t, tt.expected, config)
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
