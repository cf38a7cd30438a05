package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/engine"
)

func TestParseScenario(t *testing.T) {
	data := []byte(`
name: reconnect
description: "reconnect with hex reason"
events:
  - source: acm
    type: connection_start
    ssid: Lab
  - source: acm
    type: connection_complete
    ssid: Lab
    reason: 0x48001
expect:
  outcomes:
    - kind: reconnect
      result: failed
      notes: ["Failed after 0 retries"]
  final_state: idle
assertions:
  - type: ignored_count
    count: 1
`)
	s, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "reconnect", s.Name)
	require.Len(t, s.Events, 2)
	assert.Equal(t, uint32(0x48001), s.Events[1].Reason)
	assert.Equal(t, "idle", s.Expect.FinalState)

	o, err := s.Expect.Outcomes[0].Outcome()
	require.NoError(t, err)
	assert.Equal(t, engine.Outcome{Kind: engine.KindReconnect, Result: engine.ResultFailed, Notes: []string{"Failed after 0 retries"}}, o)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: y\nevents: [{source: msm, type: roaming_start}]\nexpects: {}\n",
			want: "field expects not found",
		},
		{
			name: "missing name",
			yaml: "description: y\nevents: [{source: msm, type: roaming_start}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nevents: [{source: msm, type: roaming_start}]\n",
			want: "description is required",
		},
		{
			name: "no events",
			yaml: "name: x\ndescription: y\n",
			want: "events list is required",
		},
		{
			name: "bad source",
			yaml: "name: x\ndescription: y\nevents: [{source: bluetooth, type: roaming_start}]\n",
			want: "events[0]",
		},
		{
			name: "bad outcome kind",
			yaml: "name: x\ndescription: y\nevents: [{source: msm, type: roaming_start}]\nexpect: {outcomes: [{kind: handoff, result: clean}]}\n",
			want: "expect.outcomes[0]",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\ndescription: y\nevents: [{source: msm, type: roaming_start}]\nassertions: [{type: trace_sum}]\n",
			want: "unknown assertion type",
		},
		{
			name: "trace_order without states",
			yaml: "name: x\ndescription: y\nevents: [{source: msm, type: roaming_start}]\nassertions: [{type: trace_order}]\n",
			want: "states list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	write := func(file, name string) {
		body := "name: " + name + "\ndescription: d\nevents: [{source: msm, type: roaming_start}]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
	}
	write("b.yaml", "second")
	write("a.yml", "first")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	got, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "second", got[1].Name)
}

func TestLoadScenarios_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	body := []byte("name: same\ndescription: d\nevents: [{source: msm, type: roaming_start}]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), body, 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"same"`)
}
