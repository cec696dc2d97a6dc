package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/wricardo/ecocity/game/service"
)

// SQLitePersistence implements SessionPersistence on a SQLite database.
// City state is stored as a JSON document per session.
type SQLitePersistence struct {
	conn          *sqlx.DB
	configManager service.ConfigManager
}

type sessionRow struct {
	ID             string    `db:"id"`
	ConfigName     string    `db:"config_name"`
	CreatedAt      time.Time `db:"created_at"`
	LastAccessedAt time.Time `db:"last_accessed_at"`
	Day            float64   `db:"day"`
	StateJSON      string    `db:"state_json"`
}

// NewSQLitePersistence opens or creates the database at path
func NewSQLitePersistence(path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer
	conn.SetMaxOpenConns(1)

	p := &SQLitePersistence{conn: conn, configManager: configManager}
	if err := p.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

// Close closes the database connection
func (p *SQLitePersistence) Close() error {
	return p.conn.Close()
}

func (p *SQLitePersistence) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		config_name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		last_accessed_at TIMESTAMP NOT NULL,
		day REAL NOT NULL DEFAULT 0,
		state_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_accessed ON sessions(last_accessed_at);
	`
	_, err := p.conn.Exec(schema)
	return err
}

// Save upserts a session
func (p *SQLitePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data := capture(session, configIDFor(p.configManager, session.Config.Name))
	state, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	row := sessionRow{
		ID:             data.ID,
		ConfigName:     data.ConfigName,
		CreatedAt:      data.CreatedAt.UTC(),
		LastAccessedAt: data.LastAccessedAt.UTC(),
		Day:            data.City.Statistics.DaysActive,
		StateJSON:      string(state),
	}
	_, err = p.conn.NamedExec(`
		INSERT INTO sessions (id, config_name, created_at, last_accessed_at, day, state_json)
		VALUES (:id, :config_name, :created_at, :last_accessed_at, :day, :state_json)
		ON CONFLICT(id) DO UPDATE SET
			config_name = excluded.config_name,
			last_accessed_at = excluded.last_accessed_at,
			day = excluded.day,
			state_json = excluded.state_json`, row)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Load reads a session by ID
func (p *SQLitePersistence) Load(id string) (*service.Session, error) {
	var row sessionRow
	err := p.conn.Get(&row, "SELECT * FROM sessions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal([]byte(row.StateJSON), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return restore(data, p.configManager)
}

// Delete removes a session
func (p *SQLitePersistence) Delete(id string) error {
	result, err := p.conn.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all stored session IDs, most recently accessed first
func (p *SQLitePersistence) ListAll() ([]string, error) {
	var ids []string
	if err := p.conn.Select(&ids, "SELECT id FROM sessions ORDER BY last_accessed_at DESC"); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session is stored
func (p *SQLitePersistence) Exists(id string) bool {
	var count int
	if err := p.conn.Get(&count, "SELECT COUNT(*) FROM sessions WHERE id = ?", id); err != nil {
		return false
	}
	return count > 0
}

// PruneBefore deletes sessions last accessed before cutoff and returns how
// many were removed
func (p *SQLitePersistence) PruneBefore(cutoff time.Time) (int64, error) {
	result, err := p.conn.Exec("DELETE FROM sessions WHERE last_accessed_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
