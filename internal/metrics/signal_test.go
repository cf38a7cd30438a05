package metrics

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/bus"
	tu "github.com/roach88/roamwatch/internal/testutil"
)

func TestSignalTracker_LogsChanges(t *testing.T) {
	var logs bytes.Buffer
	m := New()
	tr := NewSignalTracker(m, slog.New(slog.NewTextHandler(&logs, nil)))

	tr.Observe(tu.Signal(80))
	tr.Observe(tu.Signal(80))
	tr.Observe(tu.RoamingStart())
	tr.Observe(tu.Signal(60))

	assert.Equal(t, uint32(60), tr.Quality())
	assert.Equal(t, uint64(2), tr.Changes())
	assert.Contains(t, logs.String(), `change="0 -> 80"`)
	assert.Contains(t, logs.String(), `change="80 -> 60"`)
	assert.Equal(t, 60.0, gather(t, m, "roamwatch_signal_quality_percent"))
	assert.Equal(t, -70.0, gather(t, m, "roamwatch_signal_rssi_dbm"))
}

func TestSignalTracker_NilMetrics(t *testing.T) {
	tr := NewSignalTracker(nil, discardLogger())
	tr.Observe(tu.Signal(10))
	assert.Equal(t, uint32(10), tr.Quality())
}

func TestSignalTracker_RunUntilBusCloses(t *testing.T) {
	tr := NewSignalTracker(nil, discardLogger())
	b := bus.New()
	sub := b.Subscribe()
	b.Publish(tu.Signal(30))
	b.Publish(tu.Signal(35))
	b.Close()

	require.NoError(t, tr.Run(context.Background(), sub))
	assert.Equal(t, uint32(35), tr.Quality())
	assert.Equal(t, uint64(2), tr.Changes())
}
