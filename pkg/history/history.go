package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Direction of a sync
type Direction string

const (
	Pull    Direction = "pull"
	Push    Direction = "push"
	Restore Direction = "restore"
)

// Record is one completed (or dry-run) sync. It never holds secret values.
type Record struct {
	ID           int64
	Direction    Direction
	FlowID       string
	Path         string
	Time         time.Time
	Placeholders int
	// BackupPath is the remote snapshot taken before a push or restore
	BackupPath string
	DryRun     bool
}

// DB wraps the SQLite history database
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the history database at path
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn: conn,
		path: path,
	}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS syncs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		direction TEXT NOT NULL,
		flow_id TEXT NOT NULL,
		path TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		placeholders INTEGER NOT NULL,
		backup_path TEXT NOT NULL DEFAULT '',
		dry_run INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_syncs_timestamp ON syncs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_syncs_path ON syncs(path);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Insert stores r and returns its id
func (db *DB) Insert(ctx context.Context, r Record) (int64, error) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO syncs (direction, flow_id, path, timestamp, placeholders, backup_path, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(r.Direction),
		r.FlowID,
		r.Path,
		r.Time.UnixMilli(),
		r.Placeholders,
		r.BackupPath,
		r.DryRun,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sync record: %w", err)
	}

	return res.LastInsertId()
}

// Recent returns the limit most recent records, newest first
func (db *DB) Recent(ctx context.Context, limit int) ([]Record, error) {
	return db.query(ctx, `
		SELECT id, direction, flow_id, path, timestamp, placeholders, backup_path, dry_run
		FROM syncs
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
}

// ForPath returns the records of one local file, newest first
func (db *DB) ForPath(ctx context.Context, path string, limit int) ([]Record, error) {
	return db.query(ctx, `
		SELECT id, direction, flow_id, path, timestamp, placeholders, backup_path, dry_run
		FROM syncs
		WHERE path = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, path, limit)
}

// LastFlowForPath returns the flow most recently pulled into path.
// ok is false if path was never pulled.
func (db *DB) LastFlowForPath(ctx context.Context, path string) (flowID string, ok bool, err error) {
	err = db.conn.QueryRowContext(ctx, `
		SELECT flow_id FROM syncs
		WHERE path = ? AND direction = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, path, string(Pull)).Scan(&flowID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up flow for %s: %w", path, err)
	}
	return flowID, true, nil
}

// Count returns the total number of records
func (db *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM syncs").Scan(&count)
	return count, err
}

func (db *DB) query(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var direction string
		var millis int64
		if err := rows.Scan(
			&r.ID,
			&direction,
			&r.FlowID,
			&r.Path,
			&millis,
			&r.Placeholders,
			&r.BackupPath,
			&r.DryRun,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync record: %w", err)
		}
		r.Direction = Direction(direction)
		r.Time = time.UnixMilli(millis)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}
