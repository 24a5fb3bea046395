package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleetnav/core/eventlog"
	"github.com/kilianp07/fleetnav/core/model"
)

// SQLiteStore persists entries to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS agent_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER NOT NULL,
        agent_id INTEGER NOT NULL,
        message TEXT NOT NULL
    )`
	index := `CREATE INDEX IF NOT EXISTS agent_logs_ts ON agent_logs (ts)`
	for _, stmt := range []string{schema, index} {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the entry to the database.
func (s *SQLiteStore) Append(ctx context.Context, e model.LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_logs (ts, agent_id, message) VALUES (?, ?, ?)`,
		e.Time.UnixNano(), e.AgentID, e.Message)
	return err
}

// Query returns entries matching q ordered by time. With a limit the most
// recent entries are kept.
func (s *SQLiteStore) Query(ctx context.Context, q eventlog.Query) ([]model.LogEntry, error) {
	var args []any
	query := `SELECT ts, agent_id, message FROM agent_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.AgentID != nil {
		query += ` AND agent_id = ?`
		args = append(args, *q.AgentID)
	}
	query += ` ORDER BY ts DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.LogEntry
	for rows.Next() {
		var (
			ts int64
			e  model.LogEntry
		)
		if err := rows.Scan(&ts, &e.AgentID, &e.Message); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, ts).UTC()
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
