package ucr

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS context_versions (
	context_id    TEXT NOT NULL,
	version       INTEGER NOT NULL,
	state         TEXT NOT NULL,
	sections_json TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	PRIMARY KEY (context_id, version)
);

CREATE TABLE IF NOT EXISTS active_context (
	context_id    TEXT PRIMARY KEY,
	version       INTEGER NOT NULL,
	FOREIGN KEY (context_id, version) REFERENCES context_versions(context_id, version)
);
`

// #endregion schema

// #region store-struct

// Store manages versioned context records in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region sections-envelope

// sectionsEnvelope is the JSON shape persisted per version. Absent sections
// marshal as null so presence survives a round trip.
type sectionsEnvelope struct {
	Brand         *BrandIdentity      `json:"brand_identity,omitempty"`
	Category      *CategoryDefinition `json:"category_definition,omitempty"`
	Competitive   *CompetitiveSet     `json:"competitive_set,omitempty"`
	Demand        *DemandDefinition   `json:"demand_definition,omitempty"`
	Strategy      *StrategicIntent    `json:"strategic_intent,omitempty"`
	Channels      *ChannelContext     `json:"channel_context,omitempty"`
	NegativeScope *NegativeScope      `json:"negative_scope,omitempty"`
	Governance    *Governance         `json:"governance,omitempty"`
}

// #endregion sections-envelope

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. runlog).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save

// Save persists rec as the next version for its context ID and moves the
// active pointer. The stored version is always one past the current maximum,
// regardless of rec.Version, so versions stay monotonic.
func (s *Store) Save(rec Record) (Record, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	err = tx.QueryRow(
		`SELECT MAX(version) FROM context_versions WHERE context_id = ?`, rec.ID,
	).Scan(&maxVersion)
	if err != nil {
		return Record{}, fmt.Errorf("max version: %w", err)
	}

	rec.Version = 1
	if maxVersion.Valid {
		rec.Version = int(maxVersion.Int64) + 1
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	secJSON, err := json.Marshal(sectionsEnvelope{
		Brand:         rec.Brand,
		Category:      rec.Category,
		Competitive:   rec.Competitive,
		Demand:        rec.Demand,
		Strategy:      rec.Strategy,
		Channels:      rec.Channels,
		NegativeScope: rec.NegativeScope,
		Governance:    rec.Governance,
	})
	if err != nil {
		return Record{}, fmt.Errorf("marshal sections: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO context_versions (context_id, version, state, sections_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Version, string(rec.State), string(secJSON),
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_context (context_id, version) VALUES (?, ?)
		 ON CONFLICT(context_id) DO UPDATE SET version = excluded.version`,
		rec.ID, rec.Version,
	)
	if err != nil {
		return Record{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save

// #region get

// GetContext reads the active version of a context record.
func (s *Store) GetContext(contextID string) (Record, error) {
	var version int
	err := s.db.QueryRow(
		`SELECT version FROM active_context WHERE context_id = ?`, contextID,
	).Scan(&version)
	if err != nil {
		return Record{}, fmt.Errorf("get active context %s: %w", contextID, err)
	}
	return s.GetVersion(contextID, version)
}

// GetVersion retrieves a specific version of a context record.
func (s *Store) GetVersion(contextID string, version int) (Record, error) {
	var rec Record
	var stateStr, secJSON, createdStr, updatedStr string

	err := s.db.QueryRow(
		`SELECT context_id, version, state, sections_json, created_at, updated_at
		 FROM context_versions WHERE context_id = ? AND version = ?`,
		contextID, version,
	).Scan(&rec.ID, &rec.Version, &stateStr, &secJSON, &createdStr, &updatedStr)
	if err != nil {
		return Record{}, fmt.Errorf("get context %s v%d: %w", contextID, version, err)
	}

	rec.State = LifecycleState(stateStr)
	var env sectionsEnvelope
	if err := json.Unmarshal([]byte(secJSON), &env); err != nil {
		return Record{}, fmt.Errorf("unmarshal sections: %w", err)
	}
	rec.Brand = env.Brand
	rec.Category = env.Category
	rec.Competitive = env.Competitive
	rec.Demand = env.Demand
	rec.Strategy = env.Strategy
	rec.Channels = env.Channels
	rec.NegativeScope = env.NegativeScope
	rec.Governance = env.Governance
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)

	return rec, nil
}

// #endregion get

// #region list

// ListVersions returns the most recent versions of a context record,
// newest first.
func (s *Store) ListVersions(contextID string, limit int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT version FROM context_versions WHERE context_id = ?
		 ORDER BY version DESC LIMIT ?`, contextID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var records []Record
	for _, v := range versions {
		rec, err := s.GetVersion(contextID, v)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListContexts returns the IDs of every context with an active version.
func (s *Store) ListContexts() ([]string, error) {
	rows, err := s.db.Query(`SELECT context_id FROM active_context ORDER BY context_id`)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan context id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// #endregion list
