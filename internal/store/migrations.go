package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per run of the surface
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			output TEXT NOT NULL DEFAULT '',
			config TEXT NOT NULL DEFAULT '{}'
		)`,

		// Events table - every MIDI message delivered during a session
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			at_ms INTEGER NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('control_change', 'note_on', 'note_off')),
			channel INTEGER NOT NULL,
			number INTEGER NOT NULL,
			value INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			UNIQUE(session_id, seq)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
