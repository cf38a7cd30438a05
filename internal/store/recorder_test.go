package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/engine"
	tu "github.com/roach88/roamwatch/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_CapturesUntilBusCloses(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	rec := NewRecorder(s, sess, discardLogger())

	b := bus.New()
	sub := b.Subscribe()
	b.Publish(tu.RoamingStart())
	b.Publish(tu.Authenticating())
	b.Publish(tu.RoamingEnd())
	rec.RecordOutcome(3, engine.Outcome{Kind: engine.KindRoam, Result: engine.ResultClean})
	b.Close()

	require.NoError(t, rec.Run(context.Background(), sub))

	ctx := context.Background()
	notes, err := s.ReadNotifications(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "msm.roaming_start", notes[0].Kind)
	assert.Equal(t, "msm.roaming_end", notes[2].Kind)

	outcomes, err := s.ReadOutcomes(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, int64(3), outcomes[0].Seq)

	assert.Equal(t, uint64(4), rec.Written())
	assert.Zero(t, rec.Failed())
}

func TestRecorder_FlushesOutcomesOnCancel(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	rec := NewRecorder(s, sess, discardLogger())

	b := bus.New()
	sub := b.Subscribe()
	rec.RecordOutcome(8, engine.Outcome{Kind: engine.KindReconnect, Result: engine.ResultClean})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rec.Run(ctx, sub)
	assert.ErrorIs(t, err, context.Canceled)

	outcomes, err := s.ReadOutcomes(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, engine.KindReconnect, outcomes[0].Outcome.Kind)
}

func TestRecorder_RecordsGap(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	rec := NewRecorder(s, sess, discardLogger())

	b := bus.New(bus.WithSubscriberBuffer(1))
	sub := b.Subscribe()
	b.Publish(tu.RoamingStart())
	b.Publish(tu.Authenticating())
	b.Publish(tu.RoamingEnd())
	b.Close()

	require.NoError(t, rec.Run(context.Background(), sub))

	notes, err := s.ReadNotifications(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, int64(3), notes[0].Seq)
	assert.Equal(t, 2, notes[0].Missed)
}

func TestRecorder_WriteFailuresAreCounted(t *testing.T) {
	s := createTestStore(t)
	// Session row never written: every insert violates the foreign key.
	rec := NewRecorder(s, Session{ID: "ghost"}, discardLogger())

	b := bus.New()
	sub := b.Subscribe()
	b.Publish(tu.RoamingStart())
	b.Close()

	require.NoError(t, rec.Run(context.Background(), sub))
	assert.Equal(t, uint64(1), rec.Failed())
	assert.Zero(t, rec.Written())
}
