package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Hook binds a session event to a plugin action.
type Hook struct {
	ID         string
	Event      string
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// HookRepository provides CRUD operations for hooks.
type HookRepository struct {
	db *sql.DB
}

// Hooks returns the hook repository for this store.
func (s *Store) Hooks() *HookRepository {
	return &HookRepository{db: s.db}
}

const hookColumns = `id, event, plugin_name, action_name, config, enabled, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHook(row scanner) (*Hook, error) {
	h := &Hook{}
	var config string
	var enabled int
	if err := row.Scan(&h.ID, &h.Event, &h.PluginName, &h.ActionName, &config, &enabled, &h.CreatedAt); err != nil {
		return nil, err
	}
	h.Config = json.RawMessage(config)
	h.Enabled = enabled != 0
	return h, nil
}

func configOrEmpty(c json.RawMessage) string {
	if len(c) == 0 {
		return "{}"
	}
	return string(c)
}

// Create inserts h and stamps its creation time.
func (r *HookRepository) Create(h *Hook) error {
	h.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(
		`INSERT INTO hooks (`+hookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Event, h.PluginName, h.ActionName, configOrEmpty(h.Config), h.Enabled, h.CreatedAt,
	)
	return err
}

// GetByID retrieves a hook by its ID.
func (r *HookRepository) GetByID(id string) (*Hook, error) {
	h, err := scanHook(r.db.QueryRow(`SELECT `+hookColumns+` FROM hooks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return h, err
}

// List returns every hook, oldest first.
func (r *HookRepository) List() ([]*Hook, error) {
	return r.query(`SELECT ` + hookColumns + ` FROM hooks ORDER BY created_at, id`)
}

// ListByEvent returns the enabled hooks for event.
func (r *HookRepository) ListByEvent(event string) ([]*Hook, error) {
	return r.query(`SELECT `+hookColumns+` FROM hooks WHERE event = ? AND enabled = 1 ORDER BY created_at, id`, event)
}

func (r *HookRepository) query(q string, args ...any) ([]*Hook, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []*Hook
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}

// Update overwrites every mutable field of h.
func (r *HookRepository) Update(h *Hook) error {
	result, err := r.db.Exec(
		`UPDATE hooks SET event = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		h.Event, h.PluginName, h.ActionName, configOrEmpty(h.Config), h.Enabled, h.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes a hook by ID.
func (r *HookRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM hooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
