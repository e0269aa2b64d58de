// ABOUTME: Test helpers for config tests
// ABOUTME: Runs each test against an empty environment with a private config dir

package config

import (
	"os"
	"strings"
	"testing"
)

// cleanEnv empties the process environment for the rest of the test, then
// sets XDG_CONFIG_HOME to a temp dir plus any extra vars. The original
// environment comes back on cleanup.
func cleanEnv(t *testing.T, extra map[string]string) {
	t.Helper()

	saved := os.Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for _, kv := range saved {
			if k, v, ok := strings.Cut(kv, "="); ok {
				os.Setenv(k, v)
			}
		}
	})

	os.Clearenv()
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for k, v := range extra {
		os.Setenv(k, v)
	}
}
