package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/notify"
)

func TestAwaitMatch_IgnoresPayload(t *testing.T) {
	b := New()
	exp := Expect(b, notify.ACM(notify.ACMScanListRefresh))

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Publish(notify.ACM(notify.ACMScanComplete))
		b.Publish(notify.MSM(notify.MSMSignalQualityChange))
		b.Publish(notify.ConnectionManager{
			Type: notify.ACMScanListRefresh,
			Info: &notify.ConnectionInfo{SSID: "ignored"},
		})
	}()

	m, err := exp.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	require.False(t, m.TimedOut)
	assert.Equal(t, notify.ACMScanListRefresh, m.Event.(notify.ConnectionManager).Type)
	assert.Equal(t, int64(3), m.Seq)
}

func TestAwaitMatch_TimeoutReleasesSubscription(t *testing.T) {
	b := New()

	m, err := AwaitMatch(context.Background(), b, notify.ACM(notify.ACMScanListRefresh), 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, m.TimedOut)
	assert.Nil(t, m.Event)

	assert.Zero(t, b.Stats().Subscribers)
	for i := 0; i < 10; i++ {
		b.Publish(notify.ACM(notify.ACMScanComplete))
	}
	assert.Zero(t, b.Pending(), "nothing queued for an abandoned waiter")
}

func TestAwaitMatch_MatchReleasesSubscription(t *testing.T) {
	b := New()
	exp := Expect(b, notify.MSM(notify.MSMConnected))
	b.Publish(notify.MSM(notify.MSMConnected))

	m, err := exp.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, m.TimedOut)
	assert.Zero(t, b.Stats().Subscribers)
}

func TestAwaitMatch_UnclassifiedNeedsSameSource(t *testing.T) {
	b := New()
	exp := Expect(b, notify.Unclassified{Source: notify.SourceMSM, Code: 59})
	b.Publish(notify.Unclassified{Source: notify.SourceOneX, Code: 59})
	b.Publish(notify.Unclassified{Source: notify.SourceMSM, Code: 59})

	m, err := exp.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	require.False(t, m.TimedOut)
	assert.Equal(t, int64(2), m.Seq)
}

func TestAwaitMatch_CallerCancel(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := AwaitMatch(ctx, b, notify.MSM(notify.MSMConnected), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.TimedOut)
	assert.Zero(t, b.Stats().Subscribers)
}

func TestAwaitMatch_BusClosed(t *testing.T) {
	b := New()
	exp := Expect(b, notify.MSM(notify.MSMConnected))
	b.Close()

	_, err := exp.Wait(context.Background(), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAwaitMatch_NoTimeoutWaitsForEvent(t *testing.T) {
	b := New()
	exp := Expect(b, notify.MSM(notify.MSMRoamingEnd))

	go func() {
		time.Sleep(30 * time.Millisecond)
		b.Publish(notify.MSM(notify.MSMRoamingEnd))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := exp.Wait(ctx, 0)
	require.NoError(t, err)
	assert.False(t, m.TimedOut)
}

func TestExpectation_CancelWithoutWait(t *testing.T) {
	b := New()
	exp := Expect(b, notify.MSM(notify.MSMConnected))
	require.Equal(t, 1, b.Stats().Subscribers)

	exp.Cancel()
	assert.Zero(t, b.Stats().Subscribers)
}
