// Package persistence stores user-defined scenarios in SQLite. Only
// scenario definitions are persisted; simulation results are always
// recomputed from them.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

const schemaVersion = 1

// Store wraps a SQLite connection holding the scenario library.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the scenario database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	st := &Store{conn: conn}
	if err := st.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return st, nil
}

// Close closes the database connection.
func (st *Store) Close() error {
	return st.conn.Close()
}

func (st *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenarios (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		overrides_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := st.conn.Exec(schema); err != nil {
		return err
	}

	current, err := st.GetMeta("schema_version")
	if errors.Is(err, sql.ErrNoRows) {
		return st.SaveMeta("schema_version", strconv.Itoa(schemaVersion))
	}
	if err != nil {
		return err
	}
	v, err := strconv.Atoi(current)
	if err != nil {
		return fmt.Errorf("bad schema_version %q: %w", current, err)
	}
	if v > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", v, schemaVersion)
	}
	return nil
}

type scenarioRow struct {
	Name          string `db:"name"`
	Description   string `db:"description"`
	OverridesJSON string `db:"overrides_json"`
}

// SaveScenario inserts or replaces one scenario by name.
func (st *Store) SaveScenario(s *scenario.Scenario) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if s.Name == scenario.BaseName {
		return fmt.Errorf("scenario name %q is reserved", scenario.BaseName)
	}

	ov, err := json.Marshal(s.Overrides)
	if err != nil {
		return fmt.Errorf("encode overrides for %s: %w", s.Name, err)
	}

	_, err = st.conn.Exec(
		"INSERT OR REPLACE INTO scenarios (name, description, overrides_json, updated_at) VALUES (?, ?, ?, ?)",
		s.Name, s.Description, string(ov), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert scenario %s: %w", s.Name, err)
	}

	slog.Debug("scenario saved", "name", s.Name)
	return nil
}

// SaveScenarios writes a batch of scenarios in one transaction.
func (st *Store) SaveScenarios(list []*scenario.Scenario) error {
	if len(list) == 0 {
		return nil
	}

	tx, err := st.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(
		"INSERT OR REPLACE INTO scenarios (name, description, overrides_json, updated_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range list {
		if s == nil || s.Name == "" {
			return fmt.Errorf("scenario has no name")
		}
		if s.Name == scenario.BaseName {
			return fmt.Errorf("scenario name %q is reserved", scenario.BaseName)
		}
		ov, err := json.Marshal(s.Overrides)
		if err != nil {
			return fmt.Errorf("encode overrides for %s: %w", s.Name, err)
		}
		if _, err := stmt.Exec(s.Name, s.Description, string(ov), now); err != nil {
			return fmt.Errorf("insert scenario %s: %w", s.Name, err)
		}
	}

	return tx.Commit()
}

// LoadScenarios returns every stored scenario in name order.
func (st *Store) LoadScenarios() ([]*scenario.Scenario, error) {
	var rows []scenarioRow
	err := st.conn.Select(&rows,
		"SELECT name, description, overrides_json FROM scenarios ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}

	out := make([]*scenario.Scenario, 0, len(rows))
	for _, r := range rows {
		var ov scenario.Overrides
		if err := json.Unmarshal([]byte(r.OverridesJSON), &ov); err != nil {
			return nil, fmt.Errorf("decode overrides for %s: %w", r.Name, err)
		}
		out = append(out, &scenario.Scenario{Name: r.Name, Description: r.Description, Overrides: ov})
	}
	return out, nil
}

// DeleteScenario removes one scenario and reports whether it existed.
func (st *Store) DeleteScenario(name string) (bool, error) {
	res, err := st.conn.Exec("DELETE FROM scenarios WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("delete scenario %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MergeInto layers every stored scenario over the catalog. Stored names win
// over builtin ones of the same name; Base stays untouchable.
func (st *Store) MergeInto(cat *scenario.Catalog) error {
	stored, err := st.LoadScenarios()
	if err != nil {
		return err
	}
	for _, s := range stored {
		if err := cat.Put(s); err != nil {
			return fmt.Errorf("merge scenario %s: %w", s.Name, err)
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in store metadata.
func (st *Store) SaveMeta(key, value string) error {
	_, err := st.conn.Exec(
		"INSERT OR REPLACE INTO store_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (st *Store) GetMeta(key string) (string, error) {
	var value string
	err := st.conn.Get(&value, "SELECT value FROM store_meta WHERE key = ?", key)
	return value, err
}
