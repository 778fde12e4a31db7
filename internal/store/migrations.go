package store

import "fmt"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// Plugin actions run when the session emits an event.
	`CREATE TABLE IF NOT EXISTS hooks (
		id TEXT PRIMARY KEY,
		event TEXT NOT NULL CHECK(event IN ('rep_completed', 'exercise_complete')),
		plugin_name TEXT NOT NULL,
		action_name TEXT NOT NULL,
		config TEXT NOT NULL DEFAULT '{}',
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_hooks_event ON hooks(event)`,
}

func (s *Store) runMigrations() error {
	for i, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
