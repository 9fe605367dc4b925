// Package audit persists the command and execution trail in SQLite so
// operators can answer "what ran, when, and who asked for it" after the
// fact.
package audit

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/opsgate/opsgate/internal/playbook"
	"github.com/opsgate/opsgate/internal/provider"
)

// Store wraps the audit database. It implements playbook.Recorder.
type Store struct {
	db *sql.DB
}

// CommandEntry is one mediated command, recorded whether it was allowed
// or denied.
type CommandEntry struct {
	ID        int64
	Provider  provider.Kind
	Command   string
	Status    string
	ErrorKind string
	ExitCode  int
	ElapsedMS int64
	Warnings  []string
	CreatedAt time.Time
}

// New opens (or creates) the audit database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite is single-writer; one shared connection serializes callers
	// through database/sql instead of colliding on write locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS command_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			command TEXT NOT NULL,
			status TEXT NOT NULL,
			error_kind TEXT NOT NULL DEFAULT '',
			exit_code INTEGER NOT NULL DEFAULT 0,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			warnings TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS execution_log (
			execution_id TEXT PRIMARY KEY,
			playbook_id TEXT NOT NULL,
			playbook_name TEXT NOT NULL,
			finding_id TEXT NOT NULL DEFAULT '',
			initiator TEXT NOT NULL,
			approver TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			detail TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_execution_playbook ON execution_log(playbook_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create audit schema: %w", err)
		}
	}
	return nil
}

// RecordCommand appends one command entry.
func (s *Store) RecordCommand(entry CommandEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO command_log (provider, command, status, error_kind, exit_code, elapsed_ms, warnings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(entry.Provider), entry.Command, entry.Status, entry.ErrorKind,
		entry.ExitCode, entry.ElapsedMS, strings.Join(entry.Warnings, "\n"), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

// ListCommands returns the newest entries first. limit <= 0 means a
// default of 100.
func (s *Store) ListCommands(limit int) ([]CommandEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, provider, command, status, error_kind, exit_code, elapsed_ms, warnings, created_at
		 FROM command_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	defer rows.Close()

	var out []CommandEntry
	for rows.Next() {
		var e CommandEntry
		var prov, warnings string
		if err := rows.Scan(&e.ID, &prov, &e.Command, &e.Status, &e.ErrorKind, &e.ExitCode, &e.ElapsedMS, &warnings, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan command entry: %w", err)
		}
		e.Provider = provider.Kind(prov)
		if warnings != "" {
			e.Warnings = strings.Split(warnings, "\n")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Record persists a playbook execution snapshot: parked executions when
// they enter AWAITING_APPROVAL, then every terminal state. Later
// snapshots (approval outcome, a COMPLETED execution rolled back) upsert
// the same row.
func (s *Store) Record(ex playbook.Execution) error {
	detail, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to encode execution: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO execution_log (execution_id, playbook_id, playbook_name, finding_id, initiator, approver, status, dry_run, started_at, ended_at, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(execution_id) DO UPDATE SET
			status = excluded.status,
			approver = excluded.approver,
			ended_at = excluded.ended_at,
			detail = excluded.detail`,
		ex.ExecutionID, ex.PlaybookID, ex.PlaybookName, ex.FindingID, ex.Initiator,
		ex.Approver, string(ex.Status), boolToInt(ex.DryRun), ex.StartedAt, ex.EndedAt, string(detail),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Execution returns one persisted execution by ID. Approve, reject, and
// rollback subcommands use it to rehydrate the engine in a fresh process.
func (s *Store) Execution(executionID string) (playbook.Execution, error) {
	var detail string
	err := s.db.QueryRow(
		`SELECT detail FROM execution_log WHERE execution_id = ?`, executionID,
	).Scan(&detail)
	if errors.Is(err, sql.ErrNoRows) {
		return playbook.Execution{}, fmt.Errorf("execution %s not found in audit store", executionID)
	}
	if err != nil {
		return playbook.Execution{}, fmt.Errorf("failed to load execution: %w", err)
	}

	var ex playbook.Execution
	if err := json.Unmarshal([]byte(detail), &ex); err != nil {
		return playbook.Execution{}, fmt.Errorf("failed to decode execution: %w", err)
	}
	return ex, nil
}

// Executions returns persisted executions newest first, optionally
// filtered by playbook ID.
func (s *Store) Executions(playbookID string, limit int) ([]playbook.Execution, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT detail FROM execution_log`
	args := []any{}
	if playbookID != "" {
		query += ` WHERE playbook_id = ?`
		args = append(args, playbookID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var out []playbook.Execution
	for rows.Next() {
		var detail string
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		var ex playbook.Execution
		if err := json.Unmarshal([]byte(detail), &ex); err != nil {
			return nil, fmt.Errorf("failed to decode execution: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
