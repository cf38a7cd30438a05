package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/engine"
	tu "github.com/roach88/roamwatch/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gather returns the value of a single unlabelled sample.
func gather(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.Len(t, mf.GetMetric(), 1, name)
		pm := mf.GetMetric()[0]
		switch {
		case pm.GetCounter() != nil:
			return pm.GetCounter().GetValue()
		case pm.GetGauge() != nil:
			return pm.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

type fakeIngress struct{ dropped, decodeErrs uint64 }

func (f fakeIngress) Dropped() uint64      { return f.dropped }
func (f fakeIngress) DecodeErrors() uint64 { return f.decodeErrs }
func (f fakeIngress) Len() int             { return 3 }

func TestRegisterBus_ReadsLiveCounters(t *testing.T) {
	m := New()
	b := bus.New(bus.WithSubscriberBuffer(1))
	m.RegisterBus(b)

	sub := b.Subscribe()
	defer sub.Close()
	b.Publish(tu.RoamingStart())
	b.Publish(tu.RoamingEnd())

	assert.Equal(t, 2.0, gather(t, m, "roamwatch_bus_published_total"))
	assert.Equal(t, 2.0, gather(t, m, "roamwatch_bus_delivered_total"))
	assert.Equal(t, 1.0, gather(t, m, "roamwatch_bus_dropped_total"))
	assert.Equal(t, 1.0, gather(t, m, "roamwatch_bus_subscribers"))
	assert.Equal(t, 1.0, gather(t, m, "roamwatch_bus_pending"))
}

func TestRegisterIngress(t *testing.T) {
	m := New()
	m.RegisterIngress(fakeIngress{dropped: 7, decodeErrs: 2})

	assert.Equal(t, 7.0, gather(t, m, "roamwatch_ingress_dropped_total"))
	assert.Equal(t, 2.0, gather(t, m, "roamwatch_ingress_decode_errors_total"))
	assert.Equal(t, 3.0, gather(t, m, "roamwatch_ingress_queued"))
}

func TestRegisterEngine(t *testing.T) {
	m := New()
	e := engine.New(engine.NewSink(), engine.WithLogger(discardLogger()))
	m.RegisterEngine(e)

	assert.Equal(t, 0.0, gather(t, m, "roamwatch_engine_correlating"))

	e.Step(tu.RoamingStart())
	e.Step(tu.Signal(50))

	assert.Equal(t, 2.0, gather(t, m, "roamwatch_engine_events_total"))
	assert.Equal(t, 1.0, gather(t, m, "roamwatch_engine_transitions_total"))
	assert.Equal(t, 1.0, gather(t, m, "roamwatch_engine_correlating"))
	assert.Equal(t, 0.0, gather(t, m, "roamwatch_engine_invariant_violations_total"))
}

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome(4, engine.Outcome{Kind: engine.KindRoam, Result: engine.ResultClean})
	m.ObserveOutcome(9, engine.Outcome{Kind: engine.KindRoam, Result: engine.ResultClean})
	m.ObserveOutcome(12, engine.Outcome{Kind: engine.KindReconnect, Result: engine.ResultFailed})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("roam", "clean")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("reconnect", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.outcomes))
}

func TestHandler_ExpositionFormat(t *testing.T) {
	m := New()
	m.SetSignal(80, -60)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "roamwatch_signal_quality_percent 80")
	assert.Contains(t, body, "roamwatch_signal_rssi_dbm -60")
}

func TestServer_ServesUntilCancelled(t *testing.T) {
	m := New()
	m.SetSignal(42, -79)

	srv, err := Listen("127.0.0.1:0", m, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, strings.Contains(body, "roamwatch_signal_quality_percent 42"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListen_BusyPort(t *testing.T) {
	first, err := Listen("127.0.0.1:0", New(), discardLogger())
	require.NoError(t, err)
	defer first.ln.Close()

	_, err = Listen(first.Addr(), New(), discardLogger())
	assert.Error(t, err)
}
