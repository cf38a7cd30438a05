package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// officeScript roams cleanly, reports a signal change, then reconnects
// after one authentication retry.
const officeScript = `
interfaces:
  - guid: "3f1c2a4e-0000-4000-8000-000000000001"
    description: "Test Wi-Fi Adapter"
    state: connected
networks:
  - ssid: Lab
    bss_count: 1
    signal_quality: 80
    security_enabled: true
    auth: rsna_psk
    cipher: ccmp
  - ssid: ""
    bss_count: 1
    signal_quality: 20
bss:
  - ssid: Lab
    bssid: "00:11:22:33:44:55"
    rssi: -48
    link_quality: 95
    frequency: 5180000
events:
  - source: msm
    type: roaming_start
    ssid: Lab
    bssid: "00:11:22:33:44:55"
  - source: msm
    type: authenticating
    ssid: Lab
  - source: msm
    type: roaming_end
    ssid: Lab
  - source: msm
    type: signal_quality_change
    signal_quality: 70
  - after: 2ms
    source: acm
    type: connection_start
    ssid: Lab
  - source: msm
    type: authenticating
    ssid: Lab
  - source: msm
    type: authenticating
    ssid: Lab
  - source: acm
    type: connection_complete
    ssid: Lab
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "script.yaml", content)
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

type outcomeLine struct {
	Kind   string   `json:"kind"`
	Result string   `json:"result"`
	Notes  []string `json:"notes"`
}

func decodeOutcomeLines(t *testing.T, s string) []outcomeLine {
	t.Helper()
	var out []outcomeLine
	dec := json.NewDecoder(strings.NewReader(s))
	for {
		var o outcomeLine
		err := dec.Decode(&o)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, o)
	}
}

// captureOffice runs a sim monitor capturing into a fresh database and
// returns its path.
func captureOffice(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "capture.db")
	_, _, err := execute(t, "monitor",
		"--script", writeScript(t, officeScript),
		"--poll", "10ms",
		"--duration", "10s",
		"--capture", db,
	)
	require.NoError(t, err)
	return db
}
