package cli

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/config"
)

func TestMonitorSimJSON(t *testing.T) {
	script := writeScript(t, officeScript)

	stdout, stderr, err := execute(t, "--format", "json", "monitor",
		"--script", script, "--poll", "10ms", "--duration", "10s")
	require.NoError(t, err, stderr)

	lines := decodeOutcomeLines(t, stdout)
	require.Len(t, lines, 2, stdout)
	assert.Equal(t, outcomeLine{Kind: "roam", Result: "clean"}, lines[0])
	assert.Equal(t, outcomeLine{Kind: "reconnect", Result: "with_notes", Notes: []string{"1 auth retries"}}, lines[1])

	assert.Contains(t, stderr, `change="0 -> 70"`)
	assert.Contains(t, stderr, "sim script finished, stopping")
}

func TestMonitorSimText(t *testing.T) {
	script := writeScript(t, officeScript)

	stdout, _, err := execute(t, "monitor", "--script", script, "--poll", "10ms", "--duration", "10s")
	require.NoError(t, err)
	assert.Equal(t, "roam clean\nreconnect with_notes: 1 auth retries\n", stdout)
}

func TestMonitorFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "script.yaml", officeScript)
	cfg := writeFile(t, dir, "roamwatch.cue", fmt.Sprintf(
		"adapter: \"sim\"\nsimScript: %q\npollInterval: \"10ms\"\n", script))

	stdout, _, err := execute(t, "--config", cfg, "monitor", "--duration", "10s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "roam clean")
}

func TestMonitorFollowRunsUntilDuration(t *testing.T) {
	script := writeScript(t, officeScript)

	start := time.Now()
	stdout, _, err := execute(t, "monitor", "--script", script, "--poll", "10ms",
		"--duration", "300ms", "--follow")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.Contains(t, stdout, "reconnect with_notes")
}

func TestMonitorScriptFlagCompletesSimConfig(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "script.yaml", officeScript)
	cfg := writeFile(t, dir, "roamwatch.cue", "adapter: \"sim\"\npollInterval: \"10ms\"\n")

	stdout, _, err := execute(t, "--config", cfg, "monitor", "--script", script, "--duration", "10s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "roam clean")

	_, _, err = execute(t, "--config", cfg, "monitor", "--duration", "10s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestMonitorCaptures(t *testing.T) {
	db := captureOffice(t)

	stdout, _, err := execute(t, "--format", "json", "sessions", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"adapter": "sim"`)
	assert.Contains(t, stdout, `"interface": "Test Wi-Fi Adapter"`)
	assert.Contains(t, stdout, `"notifications": 8`)
	assert.Contains(t, stdout, `"outcomes": 2`)
}

func TestMonitorStartupErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"sim without script", []string{"monitor", "--adapter", "sim"}, "invalid configuration"},
		{"unknown adapter", []string{"monitor", "--adapter", "bluetooth"}, "invalid configuration"},
		{"missing script", []string{"monitor", "--script", "/nonexistent/script.yaml"}, "failed to open adapter"},
		{"zero poll", []string{"monitor", "--script", "x.yaml", "--poll", "0s"}, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestMonitorBadCaptureDB(t *testing.T) {
	script := writeScript(t, officeScript)
	db := filepath.Join(t.TempDir(), "missing", "dir", "capture.db")

	_, _, err := execute(t, "monitor", "--script", script, "--capture", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "capture log")
}

func TestMonitorResolveOverridesOnlyChangedFlags(t *testing.T) {
	base := config.Default()
	base.PollInterval = 5 * time.Second
	base.CaptureDB = "from-file.db"
	opts := &MonitorOptions{RootOptions: &RootOptions{Config: &base}}
	cmd := newMonitorCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--script", "s.yaml", "--stale-after", "30s"}))

	got, err := opts.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.AdapterSim, got.Adapter)
	assert.Equal(t, "s.yaml", got.SimScript)
	assert.Equal(t, 30*time.Second, got.StaleAfter)
	assert.Equal(t, 5*time.Second, got.PollInterval, "unset flag must not override the file")
	assert.Equal(t, "from-file.db", got.CaptureDB)
	assert.Equal(t, base.IngressBuffer, got.IngressBuffer)
}
