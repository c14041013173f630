package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/pkg/request"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"
	runColumns       = "id, session_id, loop_id, sequence, timestamp_ns, command, method, url, overrides, status_code, label, duration_ms, output, is_binary, size"
)

type sqliteStore struct {
	db  *sql.DB
	cfg *config.StorageConfig
	log logger.Logger
}

func newSQLiteStore(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare sqlite directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(absPath))
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", stmt, err)
		}
	}

	store := &sqliteStore{db: db, cfg: cfg, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("sqlite store opened", "path", absPath)
	return store, nil
}

func (s *sqliteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    loop_id TEXT,
    sequence INTEGER,
    timestamp_ns INTEGER NOT NULL,
    command TEXT NOT NULL,
    method TEXT,
    url TEXT,
    overrides TEXT,
    status_code INTEGER,
    label TEXT NOT NULL,
    duration_ms INTEGER,
    output TEXT,
    is_binary INTEGER,
    size INTEGER
);
CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp_ns DESC);
CREATE INDEX IF NOT EXISTS idx_runs_session_ts ON runs(session_id, timestamp_ns DESC);
CREATE INDEX IF NOT EXISTS idx_runs_loop ON runs(loop_id);

CREATE TABLE IF NOT EXISTS outputs (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    timestamp_ns INTEGER NOT NULL,
    path TEXT NOT NULL,
    size INTEGER
);
CREATE INDEX IF NOT EXISTS idx_outputs_session ON outputs(session_id, timestamp_ns DESC);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *sqliteStore) RecordRun(data *request.RunRecord) (*request.RunRecord, error) {
	if data == nil {
		return nil, fmt.Errorf("run record is nil")
	}
	if strings.TrimSpace(data.ID) == "" {
		data.ID = uuid.NewString()
	}
	ctx := context.Background()
	ts := data.Timestamp.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	data.Timestamp = ts
	if data.Size == 0 {
		data.Size = int64(len(data.Output))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertSQL := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, insertSQL,
		data.ID,
		data.SessionID,
		data.LoopID,
		data.Sequence,
		ts.UnixNano(),
		data.Command,
		data.Method,
		data.URL,
		data.Overrides,
		nullableInt(data.StatusCode),
		data.Label,
		data.DurationMs,
		data.Output,
		boolToInt(data.IsBinary),
		data.Size,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	if err = s.prune(ctx, tx); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return data, nil
}

func (s *sqliteStore) prune(ctx context.Context, tx *sql.Tx) error {
	if s.cfg.Retention > 0 {
		cutoff := time.Now().Add(-s.cfg.Retention).UTC().UnixNano()
		if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE timestamp_ns < ?", cutoff); err != nil {
			return fmt.Errorf("prune by retention: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM outputs WHERE timestamp_ns < ?", cutoff); err != nil {
			return fmt.Errorf("prune outputs by retention: %w", err)
		}
	}
	if s.cfg.MaxRecords > 0 {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM runs").Scan(&count); err != nil {
			return fmt.Errorf("count records: %w", err)
		}
		if excess := count - s.cfg.MaxRecords; excess > 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id IN (SELECT id FROM runs ORDER BY timestamp_ns ASC, rowid ASC LIMIT ?)", excess); err != nil {
				return fmt.Errorf("prune max records: %w", err)
			}
		}
	}
	return nil
}

func (s *sqliteStore) ListRuns(opts ListOptions) ([]*request.RunRecord, int, error) {
	ctx := context.Background()
	where, args := buildFilters(opts)

	countQuery := fmt.Sprintf("SELECT COUNT(1) FROM runs %s", where)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT " + runColumns + " FROM runs ")
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(" ORDER BY timestamp_ns DESC, rowid DESC")

	limit := opts.Limit
	offset := opts.Offset
	var listArgs []interface{}
	listArgs = append(listArgs, args...)
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		queryBuilder.WriteString(" LIMIT ? OFFSET ?")
		listArgs = append(listArgs, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*request.RunRecord
	for rows.Next() {
		record, err := scanRunRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (s *sqliteStore) IterateRuns(opts ListOptions, fn func(*request.RunRecord) bool) error {
	ctx := context.Background()
	where, args := buildFilters(opts)

	query := strings.Builder{}
	query.WriteString("SELECT " + runColumns + " FROM runs ")
	query.WriteString(where)
	query.WriteString(" ORDER BY timestamp_ns DESC, rowid DESC")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRunRecord(rows)
		if err != nil {
			return err
		}
		if !fn(record) {
			break
		}
	}
	return rows.Err()
}

func (s *sqliteStore) GetRun(id string) (*request.RunRecord, error) {
	ctx := context.Background()
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	record, err := scanRunRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RecordOutput stores a saved output record
func (s *sqliteStore) RecordOutput(data *request.SavedOutput) error {
	if data == nil {
		return fmt.Errorf("saved output is nil")
	}
	if strings.TrimSpace(data.ID) == "" {
		data.ID = uuid.NewString()
	}
	ts := data.Timestamp.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	data.Timestamp = ts

	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO outputs (id, session_id, timestamp_ns, path, size) VALUES (?, ?, ?, ?, ?)`,
		data.ID, data.SessionID, ts.UnixNano(), data.Path, data.Size,
	)
	if err != nil {
		return fmt.Errorf("insert output: %w", err)
	}
	return nil
}

// ListOutputs returns the saved outputs of a session, newest first
func (s *sqliteStore) ListOutputs(sessionID string) ([]*request.SavedOutput, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, session_id, timestamp_ns, path, size FROM outputs WHERE session_id = ? ORDER BY timestamp_ns DESC, rowid DESC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*request.SavedOutput
	for rows.Next() {
		var (
			out  request.SavedOutput
			ts   int64
			size sql.NullInt64
		)
		if err := rows.Scan(&out.ID, &out.SessionID, &ts, &out.Path, &size); err != nil {
			return nil, err
		}
		out.Timestamp = time.Unix(0, ts).UTC()
		out.Size = size.Int64
		result = append(result, &out)
	}
	return result, rows.Err()
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanRunRecord(scanner interface {
	Scan(dest ...interface{}) error
}) (*request.RunRecord, error) {
	var (
		id         string
		sessionID  string
		loopID     sql.NullString
		sequence   sql.NullInt64
		ts         int64
		command    string
		method     sql.NullString
		url        sql.NullString
		overrides  sql.NullString
		statusCode sql.NullInt64
		label      string
		durationMs sql.NullInt64
		output     sql.NullString
		isBinary   sql.NullInt64
		size       sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&loopID,
		&sequence,
		&ts,
		&command,
		&method,
		&url,
		&overrides,
		&statusCode,
		&label,
		&durationMs,
		&output,
		&isBinary,
		&size,
	); err != nil {
		return nil, err
	}

	record := &request.RunRecord{
		ID:         id,
		SessionID:  sessionID,
		LoopID:     loopID.String,
		Sequence:   int(sequence.Int64),
		Timestamp:  time.Unix(0, ts).UTC(),
		Command:    command,
		Method:     method.String,
		URL:        url.String,
		Overrides:  overrides.String,
		Label:      label,
		DurationMs: durationMs.Int64,
		Output:     output.String,
		IsBinary:   isBinary.Int64 == 1,
		Size:       size.Int64,
	}
	if statusCode.Valid {
		code := int(statusCode.Int64)
		record.StatusCode = &code
	}
	if record.Size == 0 {
		record.Size = int64(len(record.Output))
	}
	return record, nil
}

func buildFilters(opts ListOptions) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if session := strings.TrimSpace(opts.Session); session != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, session)
	}

	if loopID := strings.TrimSpace(opts.LoopID); loopID != "" {
		clauses = append(clauses, "loop_id = ?")
		args = append(args, loopID)
	}

	if label := strings.TrimSpace(opts.Label); label != "" {
		clauses = append(clauses, "LOWER(label) = LOWER(?)")
		args = append(args, label)
	}

	if method := strings.TrimSpace(opts.Method); method != "" {
		clauses = append(clauses, "UPPER(method) = UPPER(?)")
		args = append(args, method)
	}

	if search := strings.TrimSpace(strings.ToLower(opts.Search)); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		clauses = append(clauses, "(LOWER(command) LIKE ? OR LOWER(url) LIKE ? OR LOWER(overrides) LIKE ? OR LOWER(output) LIKE ?)")
		args = append(args, like, like, like, like)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
