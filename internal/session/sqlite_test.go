package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "sessions.db"),
		TTL:  time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSession_AbsentIsNil(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.GetSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Fatalf("sess = %+v, want nil", sess)
	}
}

func TestSetAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetActiveSession(ctx, "g1", "c3", "u1"); err != nil {
		t.Fatalf("SetActiveSession: %v", err)
	}

	sess, err := s.GetSession(ctx, "g1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !sess.Active() || sess.ActiveChannelID != "c3" {
		t.Fatalf("sess = %+v", sess)
	}
	if sess.OwnerID != "u1" || sess.LastActorID != "u1" {
		t.Fatalf("ownership = %+v", sess)
	}
}

func TestSetActiveSession_KeepsOwnerOnUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SetActiveSession(ctx, "g1", "c3", "u1")
	s.SetActiveSession(ctx, "g1", "c5", "u2")

	sess, err := s.GetSession(ctx, "g1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.ActiveChannelID != "c5" {
		t.Fatalf("channel = %q, want c5", sess.ActiveChannelID)
	}
	if sess.OwnerID != "u1" {
		t.Fatalf("owner = %q, want original u1", sess.OwnerID)
	}
	if sess.LastActorID != "u2" {
		t.Fatalf("last actor = %q, want u2", sess.LastActorID)
	}
}

func TestClearActiveSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SetActiveSession(ctx, "g1", "c3", "u1")
	if err := s.ClearActiveSession(ctx, "g1"); err != nil {
		t.Fatalf("ClearActiveSession: %v", err)
	}
	sess, err := s.GetSession(ctx, "g1")
	if err != nil || sess != nil {
		t.Fatalf("after clear: sess=%+v err=%v", sess, err)
	}
}

func TestGetSession_ExpiredReadsAsAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SetActiveSession(ctx, "g1", "c3", "u1")
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	sess, err := s.GetSession(ctx, "g1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Fatalf("expired session still visible: %+v", sess)
	}
}

func TestLastChannel_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if got, err := s.LastChannel(ctx, "g1", "u1"); err != nil || got != "" {
		t.Fatalf("unset last channel = %q, %v", got, err)
	}

	if err := s.RecordLastChannel(ctx, "g1", "u1", "c9"); err != nil {
		t.Fatalf("RecordLastChannel: %v", err)
	}
	if err := s.RecordLastChannel(ctx, "g1", "u1", "c2"); err != nil {
		t.Fatalf("RecordLastChannel update: %v", err)
	}

	got, err := s.LastChannel(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("LastChannel: %v", err)
	}
	if got != "c2" {
		t.Fatalf("last channel = %q, want c2 (latest write wins)", got)
	}

	// Per-guild isolation.
	if got, _ := s.LastChannel(ctx, "g2", "u1"); got != "" {
		t.Fatalf("cross-guild leak: %q", got)
	}
}
