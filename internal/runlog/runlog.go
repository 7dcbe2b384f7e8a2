// Package runlog persists completed run envelopes and their audit traces in
// SQLite. Rows are append-only; a run is written exactly once, after it
// completed successfully, and never updated. The log doubles as the prior-run
// source the diffing modules read their history from.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/provider"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS run_log (
	run_id          TEXT PRIMARY KEY,
	module_id       TEXT NOT NULL,
	context_id      TEXT NOT NULL,
	context_version INTEGER NOT NULL,
	generated_at    TEXT NOT NULL,
	envelope_json   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_log_module_context
	ON run_log (module_id, context_id, generated_at DESC);

CREATE TABLE IF NOT EXISTS run_trace (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	rule_id    TEXT NOT NULL,
	section    TEXT,
	reason     TEXT NOT NULL,
	severity   TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// #endregion schema

// #region log-struct

// Log manages the run log database.
type Log struct {
	db *sql.DB
}

// Open opens a SQLite run log and runs migrations.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate run log: %w", err)
	}
	return &Log{db: db}, nil
}

// Attach wraps an already open database, sharing it with other stores.
func Attach(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate run log: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// #endregion log-struct

// #region record

// Record persists one completed envelope and its run-level trace atomically.
// The trace rows come from env.Trace, which the runner fills on every run.
func (l *Log) Record(env pipeline.Envelope) error {
	envJSON, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO run_log (run_id, module_id, context_id, context_version, generated_at, envelope_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		env.RunID, env.ModuleID, env.ContextID, env.ContextVersion,
		env.GeneratedAt.Format(time.RFC3339Nano), string(envJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, t := range env.Trace {
		_, err = tx.Exec(
			`INSERT INTO run_trace (run_id, rule_id, section, reason, severity, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			env.RunID, t.RuleID, nullIfEmpty(string(t.Section)), t.Reason, t.Severity, now,
		)
		if err != nil {
			return fmt.Errorf("insert trace: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion record

// #region prior-runs

// PriorRuns returns the stored runs for a module and context, most recent
// first. Satisfies provider.PriorRunSource.
func (l *Log) PriorRuns(ctx context.Context, moduleID, contextID string, limit int) ([]provider.RunRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, module_id, context_id, context_version, generated_at, envelope_json
		 FROM run_log WHERE module_id = ? AND context_id = ?
		 ORDER BY generated_at DESC LIMIT ?`,
		moduleID, contextID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("prior runs: %w", err)
	}
	defer rows.Close()

	var out []provider.RunRecord
	for rows.Next() {
		var rr provider.RunRecord
		var genStr, envJSON string
		if err := rows.Scan(&rr.RunID, &rr.ModuleID, &rr.ContextID, &rr.ContextVersion, &genStr, &envJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rr.GeneratedAt, _ = time.Parse(time.RFC3339Nano, genStr)

		var env pipeline.Envelope
		if err := json.Unmarshal([]byte(envJSON), &env); err != nil {
			return nil, fmt.Errorf("unmarshal envelope %s: %w", rr.RunID, err)
		}
		rr.ItemNames = make([]string, 0, len(env.Items))
		rr.Fields = make(map[string]map[string]any, len(env.Items))
		for _, it := range env.Items {
			rr.ItemNames = append(rr.ItemNames, it.Name)
			if it.Fields != nil {
				rr.Fields[it.Name] = it.Fields
			}
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// #endregion prior-runs

// #region inspect

// GetEnvelope rehydrates a stored envelope by run ID.
func (l *Log) GetEnvelope(runID string) (pipeline.Envelope, error) {
	var envJSON string
	err := l.db.QueryRow(
		`SELECT envelope_json FROM run_log WHERE run_id = ?`, runID,
	).Scan(&envJSON)
	if err != nil {
		return pipeline.Envelope{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	var env pipeline.Envelope
	if err := json.Unmarshal([]byte(envJSON), &env); err != nil {
		return pipeline.Envelope{}, fmt.Errorf("unmarshal envelope %s: %w", runID, err)
	}
	return env, nil
}

// TraceForRun returns a run's stored trace entries in insertion order.
func (l *Log) TraceForRun(runID string) ([]pipeline.TraceEntry, error) {
	rows, err := l.db.Query(
		`SELECT rule_id, COALESCE(section, ''), reason, severity
		 FROM run_trace WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("trace for run: %w", err)
	}
	defer rows.Close()

	var out []pipeline.TraceEntry
	for rows.Next() {
		var t pipeline.TraceEntry
		var section string
		if err := rows.Scan(&t.RuleID, &section, &t.Reason, &t.Severity); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		t.Section = ucr.Section(section)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListRuns returns run IDs for a context, most recent first.
func (l *Log) ListRuns(contextID string, limit int) ([]string, error) {
	rows, err := l.db.Query(
		`SELECT run_id FROM run_log WHERE context_id = ?
		 ORDER BY generated_at DESC LIMIT ?`, contextID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// #endregion inspect
