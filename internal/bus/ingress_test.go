package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/notify"
)

func TestIngress_OfferDropsOldest(t *testing.T) {
	in := NewIngress(2, nil)

	assert.True(t, in.Offer(notify.MSM(notify.MSMAssociating)))
	assert.True(t, in.Offer(notify.MSM(notify.MSMAssociated)))
	assert.False(t, in.Offer(notify.MSM(notify.MSMConnected)), "third offer overflows")

	assert.Equal(t, uint64(1), in.Dropped())
	assert.Equal(t, 2, in.Len())

	b := New()
	sub := b.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := in.Run(ctx, b)
	assert.ErrorIs(t, err, context.Canceled)

	d, ok := sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, notify.MSM(notify.MSMAssociated), d.Event)
	d, ok = sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, notify.MSM(notify.MSMConnected), d.Event)
}

func TestIngress_OfferNeverBlocks(t *testing.T) {
	in := NewIngress(1, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			in.Offer(notify.MSM(notify.MSMSignalQualityChange))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Offer blocked with no reader")
	}
	assert.Equal(t, uint64(999), in.Dropped())
}

func TestIngress_HandleRaw(t *testing.T) {
	in := NewIngress(4, nil)

	in.HandleRaw(notify.Raw{
		Source:  notify.SourceMSM,
		Code:    uint32(notify.MSMSignalQualityChange),
		Payload: notify.EncodeUint32Payload(80),
	})
	in.HandleRaw(notify.Raw{Source: notify.SourceSecurity, Code: 1})
	in.HandleRaw(notify.Raw{Source: notify.SourceACM, Code: uint32(notify.ACMConnectionComplete), Payload: []byte{1, 2}})

	assert.Equal(t, 1, in.Len())
	assert.Equal(t, uint64(2), in.DecodeErrors())
}

func TestIngress_RunPublishes(t *testing.T) {
	in := NewIngress(8, nil)
	b := New()
	sub := b.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- in.Run(ctx, b) }()

	in.Offer(notify.MSM(notify.MSMRoamingStart))

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	d, err := sub.Next(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, notify.MSM(notify.MSMRoamingStart), d.Event)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNewIngress_DefaultSize(t *testing.T) {
	in := NewIngress(0, nil)
	assert.Equal(t, DefaultIngressBuffer, cap(in.ch))
}
