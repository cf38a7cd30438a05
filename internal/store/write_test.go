package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/roamwatch/internal/engine"
	"github.com/roach88/roamwatch/internal/notify"
	tu "github.com/roach88/roamwatch/internal/testutil"
)

func TestOpenSession_UUIDv7(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)

	id, err := uuid.Parse(sess.ID)
	if err != nil {
		t.Fatalf("session id %q is not a uuid: %v", sess.ID, err)
	}
	if id.Version() != 7 {
		t.Errorf("uuid version = %d, want 7", id.Version())
	}

	got, err := s.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	if got.Adapter != "sim" || got.Interface != "Simulated Adapter" {
		t.Errorf("session = %+v", got)
	}
	if !got.StartedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("started_at = %v", got.StartedAt)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestWriteNotification_CanonicalPayload(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	if err := s.WriteNotification(ctx, sess.ID, 1, 0, tu.RoamingStart()); err != nil {
		t.Fatalf("WriteNotification() failed: %v", err)
	}

	var source, code int
	var kind, payload string
	err := s.db.QueryRow(`
		SELECT source, code, kind, payload FROM notifications WHERE session_id = ? AND seq = 1
	`, sess.ID).Scan(&source, &code, &kind, &payload)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if source != int(notify.SourceMSM) {
		t.Errorf("source = %d, want %d", source, notify.SourceMSM)
	}
	if code != int(notify.MSMRoamingStart) {
		t.Errorf("code = %d, want %d", code, notify.MSMRoamingStart)
	}
	if kind != "msm.roaming_start" {
		t.Errorf("kind = %q", kind)
	}
	want := `{"bssid":"00:11:22:33:44:55","profile":"Lab","reason":0,"ssid":"Lab"}`
	if payload != want {
		t.Errorf("payload = %s\nwant      %s", payload, want)
	}
}

func TestWriteNotification_Idempotent(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.WriteNotification(ctx, sess.ID, 7, 0, tu.RoamingEnd()); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	got, err := s.ReadNotifications(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ReadNotifications() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("rows = %d, want 1", len(got))
	}
}

func TestWriteNotification_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteNotification(context.Background(), "nope", 1, 0, tu.RoamingStart())
	if err == nil {
		t.Error("expected foreign key violation")
	}
}

func TestWriteOutcome_NotesColumnNeverNull(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)

	o := engine.Outcome{Kind: engine.KindRoam, Result: engine.ResultClean}
	if err := s.WriteOutcome(context.Background(), sess.ID, 3, o); err != nil {
		t.Fatalf("WriteOutcome() failed: %v", err)
	}

	var kind, result, notes string
	err := s.db.QueryRow(`SELECT kind, result, notes FROM outcomes WHERE session_id = ?`, sess.ID).
		Scan(&kind, &result, &notes)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if kind != "roam" || result != "clean" || notes != "[]" {
		t.Errorf("row = (%q, %q, %q)", kind, result, notes)
	}
}
