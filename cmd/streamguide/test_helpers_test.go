package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	database   string
	logDir     string
	publishDir string
}

func (e *cliTestEnv) lockPath() string {
	return filepath.Join(e.logDir, "streamguide.lock")
}

// setupCLITestEnv writes a config whose TMDB endpoints point at a server
// that answers 404 to everything. Watchmode and MOTN keys are cleared.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("WATCHMODE_API_KEY", "")
	t.Setenv("MOTN_API_KEY", "")

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "streamguide.toml"),
		database:   filepath.Join(base, "data", "catalog.db"),
		logDir:     filepath.Join(base, "logs"),
		publishDir: filepath.Join(base, "public"),
	}
	writeTestConfig(t, env, server.URL)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, tmdbURL string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
database = %q
log_dir = %q
publish_dir = %q

[tmdb]
api_key = "test"
base_url = %q
export_base_url = %q
request_delay_ms = 0
cooldown_seconds = 0
seed_delay_ms = 0

[verify]
delay_ms = 0
timeout_seconds = 2

[api]
bind = "127.0.0.1:0"

[logging]
level = "error"
`, env.database, env.logDir, env.publishDir, tmdbURL, tmdbURL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\noutput: %s", substr, output)
	}
}
