package wlan

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/notify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rawRecorder struct {
	mu   sync.Mutex
	raws []notify.Raw
}

func (r *rawRecorder) handle(raw notify.Raw) {
	r.mu.Lock()
	r.raws = append(r.raws, raw)
	r.mu.Unlock()
}

func (r *rawRecorder) snapshot() []notify.Raw {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Raw(nil), r.raws...)
}

func loadSim(t *testing.T) *Sim {
	t.Helper()
	script, err := LoadScript("testdata/office.yaml")
	require.NoError(t, err)
	sim := NewSim(script, discardLogger())
	t.Cleanup(func() { sim.Close() })
	return sim
}

func TestSim_PlaysScriptInOrder(t *testing.T) {
	sim := loadSim(t)
	rec := &rawRecorder{}
	require.NoError(t, sim.Subscribe(rec.handle))

	select {
	case <-sim.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("script playback did not finish")
	}

	raws := rec.snapshot()
	require.Len(t, raws, 5)

	var kinds []string
	for _, raw := range raws {
		ev, err := notify.Decode(raw)
		require.NoError(t, err)
		kinds = append(kinds, ev.Discriminant().String())
	}
	assert.Equal(t, []string{
		"msm.roaming_start",
		"msm.authenticating",
		"msm.roaming_end",
		"msm.signal_quality_change",
		"unclassified(59)",
	}, kinds)
}

func TestSim_SingleSubscriber(t *testing.T) {
	sim := loadSim(t)
	require.NoError(t, sim.Subscribe(func(notify.Raw) {}))
	assert.Error(t, sim.Subscribe(func(notify.Raw) {}))
}

func TestSim_ScanResponds(t *testing.T) {
	script, err := ParseScriptString("scan:\n  delay: 1ms\n")
	require.NoError(t, err)
	sim := NewSim(script, discardLogger())
	defer sim.Close()

	rec := &rawRecorder{}
	require.NoError(t, sim.Subscribe(rec.handle))
	require.NoError(t, sim.Scan(context.Background(), "Lab"))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	raws := rec.snapshot()
	assert.Equal(t, uint32(notify.ACMScanComplete), raws[0].Code)
	assert.Equal(t, uint32(notify.ACMScanListRefresh), raws[1].Code)
	assert.Equal(t, []string{"Lab"}, sim.Scans())
}

func TestSim_ScanFail(t *testing.T) {
	script, err := ParseScriptString("scan:\n  respond: fail\n  fail_reason: 7\n")
	require.NoError(t, err)
	sim := NewSim(script, discardLogger())
	defer sim.Close()

	rec := &rawRecorder{}
	require.NoError(t, sim.Subscribe(rec.handle))
	require.NoError(t, sim.Scan(context.Background(), ""))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	ev, err := notify.Decode(rec.snapshot()[0])
	require.NoError(t, err)
	assert.Equal(t, notify.ConnectionManager{Type: notify.ACMScanFail, ScanFailReason: 7}, ev)
}

func TestSim_Lists(t *testing.T) {
	sim := loadSim(t)
	ctx := context.Background()

	ifaces, err := sim.Interfaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, "connected", ifaces[0].State)

	networks, err := sim.AvailableNetworks(ctx)
	require.NoError(t, err)
	assert.Len(t, networks, 4, "raw list keeps hidden and duplicate entries")

	all, err := sim.BSSList(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	lab, err := sim.BSSList(ctx, "Lab")
	require.NoError(t, err)
	assert.Len(t, lab, 2)
}

func TestSim_Closed(t *testing.T) {
	sim := loadSim(t)
	require.NoError(t, sim.Close())
	require.NoError(t, sim.Close())

	ctx := context.Background()
	assert.ErrorIs(t, sim.Subscribe(func(notify.Raw) {}), ErrAdapterClosed)
	assert.ErrorIs(t, sim.Scan(ctx, ""), ErrAdapterClosed)
	_, err := sim.BSSList(ctx, "")
	assert.ErrorIs(t, err, ErrAdapterClosed)

	select {
	case <-sim.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
}

func TestSim_CloseStopsPlayback(t *testing.T) {
	script, err := ParseScriptString("events:\n  - after: 1h\n    source: msm\n    type: connected\n")
	require.NoError(t, err)
	sim := NewSim(script, discardLogger())

	rec := &rawRecorder{}
	require.NoError(t, sim.Subscribe(rec.handle))

	closed := make(chan struct{})
	go func() {
		sim.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a pending script delay")
	}
	assert.Empty(t, rec.snapshot())
}
