package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewWithDB creates a store over an open connection. The schema is not
// migrated.
func NewWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens a connection to the SQLite database and migrates it.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateBuild records the start of a build.
func (s *SQLiteStore) CreateBuild(ctx context.Context, scripts int) (*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	b := &Build{
		ID:        generateID(),
		Status:    BuildRunning,
		StartedAt: time.Now().UTC(),
		Scripts:   scripts,
	}
	s.logger.Debug("creating build", slog.String("id", b.ID))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, status, started_at, scripts) VALUES (?, ?, ?, ?)`,
		b.ID, string(b.Status), b.StartedAt, b.Scripts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create build: %w", err)
	}
	return b, nil
}

// CompleteBuild marks a build as finished with the given status.
func (s *SQLiteStore) CompleteBuild(ctx context.Context, id string, status BuildStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE builds SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete build: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build not found: %s", id)
	}
	return nil
}

// SaveConcepts stores the concepts of a build in one transaction, keeping
// their order.
func (s *SQLiteStore) SaveConcepts(ctx context.Context, buildID string, records []concept.Record) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO concepts (build_id, seq, key, type, vals) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		vals, err := json.Marshal(r.Values)
		if err != nil {
			return fmt.Errorf("failed to encode concept %s: %w", r.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, buildID, i, r.Key, r.Type, string(vals)); err != nil {
			return fmt.Errorf("failed to save concept %s: %w", r.Key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE builds SET concepts = ? WHERE id = ?`, len(records), buildID); err != nil {
		return fmt.Errorf("failed to update build: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit concepts: %w", err)
	}
	s.logger.Debug("saved concepts", slog.String("build", buildID), slog.Int("count", len(records)))
	return nil
}

// LoadConcepts returns the concepts of a build in the order they were saved.
func (s *SQLiteStore) LoadConcepts(ctx context.Context, buildID string) ([]concept.Record, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, type, vals FROM concepts WHERE build_id = ? ORDER BY seq`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load concepts: %w", err)
	}
	defer rows.Close()

	var records []concept.Record
	for rows.Next() {
		var (
			r    concept.Record
			vals string
		)
		if err := rows.Scan(&r.Key, &r.Type, &vals); err != nil {
			return nil, fmt.Errorf("failed to scan concept: %w", err)
		}
		if err := json.Unmarshal([]byte(vals), &r.Values); err != nil {
			return nil, fmt.Errorf("failed to decode concept %s: %w", r.Key, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load concepts: %w", err)
	}
	return records, nil
}

const buildColumns = `id, status, started_at, completed_at, scripts, concepts, error`

// LatestBuild returns the most recent completed build, or nil if there is none.
func (s *SQLiteStore) LatestBuild(ctx context.Context) (*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+buildColumns+` FROM builds WHERE status = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		string(BuildCompleted))
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest build: %w", err)
	}
	return b, nil
}

// ListBuilds returns the most recent builds up to the given limit.
func (s *SQLiteStore) ListBuilds(ctx context.Context, limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// Prune deletes all but the keep most recent builds and returns how many
// were deleted.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM builds WHERE id NOT IN (
			SELECT id FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune builds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune builds: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*Build, error) {
	var (
		b           Build
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := row.Scan(&b.ID, &status, &b.StartedAt, &completedAt, &b.Scripts, &b.Concepts, &errMsg); err != nil {
		return nil, err
	}
	b.Status = BuildStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	b.Error = errMsg.String
	return &b, nil
}
