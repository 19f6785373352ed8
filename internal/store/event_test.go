package store

import (
	"testing"
	"time"

	"github.com/ayusman/pinchpad/internal/surface"
)

func TestEventRepository_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	if err := s.Sessions().Create(&Session{ID: "live"}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	repo := s.Events()

	at := time.UnixMilli(1_700_000_000_500)
	first := []surface.Event{
		{Kind: surface.ControlChange, Channel: 0, Number: 20, Value: 64, Source: "SLIDER 1"},
		{Kind: surface.NoteOn, Channel: 0, Number: 42, Value: 100, Source: "PAD 3"},
	}
	second := []surface.Event{
		{Kind: surface.NoteOff, Channel: 0, Number: 42, Source: "PAD 3"},
	}

	if err := repo.Append("live", at, first); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := repo.Append("live", at.Add(160*time.Millisecond), second); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := repo.ListBySession("live", 0, 0)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	want := append(append([]surface.Event{}, first...), second...)
	for i, rec := range records {
		if rec.Seq != int64(i+1) {
			t.Errorf("record %d seq = %d, want %d", i, rec.Seq, i+1)
		}
		got := surface.Event{Kind: rec.Kind, Channel: rec.Channel, Number: rec.Number, Value: rec.Value, Source: rec.Source}
		if got != want[i] {
			t.Errorf("record %d = %v, want %v", i, got, want[i])
		}
	}
	if !records[0].At.Equal(at) {
		t.Errorf("At = %v, want %v", records[0].At, at)
	}

	tail, err := repo.ListBySession("live", 2, 0)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(tail) != 1 || tail[0].Kind != surface.NoteOff {
		t.Errorf("expected only the note-off after seq 2, got %v", tail)
	}
}

func TestEventRepository_AppendEmpty(t *testing.T) {
	s := newTestStore(t)

	if err := s.Events().Append("no-such-session", time.Now(), nil); err != nil {
		t.Errorf("empty append should be a no-op, got %v", err)
	}
}

func TestEventRepository_AppendUnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.Events().Append("no-such-session", time.Now(), []surface.Event{{Kind: surface.NoteOn, Number: 36, Value: 100}})
	if err == nil {
		t.Error("append to an unknown session should violate the foreign key")
	}
}

func TestEventRepository_ListLimit(t *testing.T) {
	s := newTestStore(t)
	if err := s.Sessions().Create(&Session{ID: "busy"}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	var events []surface.Event
	for v := 0; v < 10; v++ {
		events = append(events, surface.Event{Kind: surface.ControlChange, Number: 21, Value: uint8(v * 10)})
	}
	if err := s.Events().Append("busy", time.Now(), events); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := s.Events().ListBySession("busy", 0, 4)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(records) != 4 || records[3].Value != 30 {
		t.Errorf("unexpected page %v", records)
	}
}
