package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ayusman/pinchpad/internal/surface"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	started := time.UnixMilli(1_700_000_000_123)
	sess := &Session{
		StartedAt: started,
		Output:    "IAC Driver Bus 1",
		Config:    json.RawMessage(`{"channel":0}`),
	}

	if err := repo.Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}

	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt should be nil for an open session, got %v", got.EndedAt)
	}
	if got.Output != sess.Output {
		t.Errorf("Output = %q, want %q", got.Output, sess.Output)
	}
	if string(got.Config) != `{"channel":0}` {
		t.Errorf("Config = %s", got.Config)
	}
}

func TestSessionRepository_Create_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(&Session{ID: "dup"}); err != nil {
		t.Fatalf("failed to create first session: %v", err)
	}
	if err := repo.Create(&Session{ID: "dup"}); err == nil {
		t.Error("creating a session with a duplicate ID should fail")
	}
}

func TestSessionRepository_End(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	ended := sess.StartedAt.Add(time.Minute)
	if err := repo.End(sess.ID, ended); err != nil {
		t.Fatalf("failed to end session: %v", err)
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.EndedAt == nil || got.EndedAt.UnixMilli() != ended.UnixMilli() {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}

	if err := repo.End("missing", ended); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.UnixMilli(1_700_000_000_000)
	for i, id := range []string{"first", "second", "third"} {
		if err := repo.Create(&Session{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("failed to create session %q: %v", id, err)
		}
	}
	if err := s.Events().Append("second", base, []surface.Event{{Kind: surface.NoteOn, Number: 36, Value: 100}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	if all[0].ID != "third" || all[2].ID != "first" {
		t.Errorf("sessions should be newest first, got %s..%s", all[0].ID, all[2].ID)
	}
	if all[1].Events != 1 {
		t.Errorf("event count for second = %d, want 1", all[1].Events)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 sessions with limit, got %d", len(limited))
	}
}

func TestSessionRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(&Session{ID: "gone"}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := s.Events().Append("gone", time.Now(), []surface.Event{{Kind: surface.NoteOff, Number: 36}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := repo.Delete("gone"); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	if _, err := repo.GetByID("gone"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM events WHERE session_id = 'gone'`).Scan(&n); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if n != 0 {
		t.Errorf("events should cascade on delete, %d left", n)
	}

	if err := repo.Delete("gone"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing session, got: %v", err)
	}
}
