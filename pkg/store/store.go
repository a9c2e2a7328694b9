// Package store persists cleaning jobs and their results: the audit log,
// pending flags, column profiles and a typed snapshot of the cleaned
// dataset. Postgres and SQLite are supported through one sqlx-backed
// implementation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/data-refinery/pkg/converter"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
)

// ErrJobNotFound is returned when no job has the requested id
var ErrJobNotFound = errors.New("job not found")

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// ResultStore is the persistence boundary of the job worker
type ResultStore interface {
	CreateJob(ctx context.Context, job JobRecord) error
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	ClaimPendingJobs(ctx context.Context, limit int) ([]JobRecord, error)
	MarkProcessing(ctx context.Context, id string) error
	Requeue(ctx context.Context, id, reason string) error
	SaveResult(ctx context.Context, res *pipeline.Result, entries []model.CleaningLogEntry) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// JobRecord is one row of the jobs table
type JobRecord struct {
	ID            string          `db:"id"`
	Source        string          `db:"source"`
	FileKey       string          `db:"file_key"`
	FileType      string          `db:"file_type"`
	Status        model.JobStatus `db:"status"`
	Error         sql.NullString  `db:"error"`
	Attempts      int             `db:"attempts"`
	QualityScore  sql.NullFloat64 `db:"quality_score"`
	OriginalRows  sql.NullInt64   `db:"original_rows"`
	CleanedRows   sql.NullInt64   `db:"cleaned_rows"`
	SnapshotTable sql.NullString  `db:"snapshot_table"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// SQLStore implements ResultStore over a sqlx database
type SQLStore struct {
	db      *sqlx.DB
	dialect converter.Dialect
	conv    *converter.TypeConverter
	logger  *zap.Logger
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite database file and applies
// the schema. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// One connection serializes writers and keeps an in-memory database alive
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	s := newSQLStore(db, converter.SQLite, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an open pgx connection pool and applies the schema
func NewPostgresStore(ctx context.Context, db *sql.DB, logger *zap.Logger) (*SQLStore, error) {
	s := newSQLStore(sqlx.NewDb(db, "pgx"), converter.Postgres, logger)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newSQLStore(db *sqlx.DB, d converter.Dialect, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		conv:    converter.NewTypeConverter(logger.Named("converter")),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Dialect reports the SQL dialect of the store
func (s *SQLStore) Dialect() converter.Dialect {
	return s.dialect
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the store tables if they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
	}
	return nil
}

// inTx runs fn in a transaction, rolling back when fn fails
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
