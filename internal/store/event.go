package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/pinchpad/internal/surface"
)

// EventRecord is one journaled MIDI event.
type EventRecord struct {
	ID        int64             `json:"id"`
	SessionID string            `json:"session_id"`
	Seq       int64             `json:"seq"`
	At        time.Time         `json:"at"`
	Kind      surface.EventKind `json:"kind"`
	Channel   uint8             `json:"channel"`
	Number    uint8             `json:"number"`
	Value     uint8             `json:"value"`
	Source    string            `json:"source"`
}

// EventRepository provides operations on journaled events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append inserts events for a session in a single transaction. Sequence
// numbers continue from the last stored event of the session.
func (r *EventRepository) Append(sessionID string, at time.Time, events []surface.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO events (session_id, seq, at_ms, kind, channel, number, value, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		seq++
		if _, err := stmt.Exec(sessionID, seq, at.UnixMilli(), ev.Kind.String(),
			ev.Channel, ev.Number, ev.Value, ev.Source); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession returns a session's events in emission order, starting
// after the given sequence number. A limit of zero or less returns all.
func (r *EventRepository) ListBySession(sessionID string, afterSeq int64, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, seq, at_ms, kind, channel, number, value, source
		 FROM events
		 WHERE session_id = ? AND seq > ?
		 ORDER BY seq
		 LIMIT ?`,
		sessionID, afterSeq, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var atMs int64
		var kind string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &atMs, &kind,
			&rec.Channel, &rec.Number, &rec.Value, &rec.Source); err != nil {
			return nil, err
		}
		rec.At = time.UnixMilli(atMs)
		rec.Kind = parseKind(kind)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func parseKind(s string) surface.EventKind {
	switch s {
	case "note_on":
		return surface.NoteOn
	case "note_off":
		return surface.NoteOff
	default:
		return surface.ControlChange
	}
}
