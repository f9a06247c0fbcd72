package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store provides persistence for test runs, results, rolling per-test
// history and structured run logs.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Checkpoint flushes pending writes to the durable file so that a
	// separate process (e.g. a dashboard invocation) can safely read it.
	Checkpoint(ctx context.Context) error

	InsertRun(ctx context.Context, run *TestRun) error
	UpdateRun(ctx context.Context, runID string, final *RunSnapshot) error
	GetRun(ctx context.Context, runID string) (*TestRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]TestRun, error)

	InsertResult(ctx context.Context, result *TestResult) error
	ListResults(ctx context.Context, runID string) ([]TestResult, error)
	ListFailedResults(ctx context.Context, runID string) ([]TestResult, error)

	UpsertHistory(ctx context.Context, result *TestResult) error
	GetHistory(ctx context.Context, testID string) (*TestHistory, error)
	ListFlakyTests(ctx context.Context, limit int) ([]TestHistory, error)
	ListSlowestTests(ctx context.Context, limit int) ([]TestHistory, error)
	ListMostFailingTests(ctx context.Context, limit int) ([]TestHistory, error)
	OverallStats(ctx context.Context) (*RunStats, error)

	InsertLog(ctx context.Context, entry *LogEntry) error
	ListLogs(ctx context.Context, runID string) ([]LogEntry, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB

	// Serializes the read-modify-write in UpsertHistory. Concurrent
	// results for the same test id would otherwise both read the old
	// row and lose one update.
	histMu sync.Mutex
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations. Migrations are
// idempotent: calling Start on an existing database is safe.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(s.cfg.SQLite.Path); dir != "." &&
			s.cfg.SQLite.Path != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return &SchemaError{
					Err: fmt.Errorf("creating database directory: %w", err),
				}
			}
		}

		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return &SchemaError{
			Err: fmt.Errorf("unsupported database driver: %s", s.cfg.Driver),
		}
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return &SchemaError{
			Err: fmt.Errorf("opening analytics database: %w", err),
		}
	}

	s.db = db

	// SQLite allows a single writer; funnel all access through one
	// connection so concurrent test workers queue instead of failing
	// with a busy database.
	if s.cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return &SchemaError{
				Err: fmt.Errorf("getting underlying db: %w", err),
			}
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&TestRun{},
		&TestResult{},
		&TestHistory{},
		&LogEntry{},
	); err != nil {
		return &SchemaError{
			Err: fmt.Errorf("running analytics migrations: %w", err),
		}
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Analytics database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// Checkpoint flushes the SQLite WAL into the main database file. A no-op
// for server-based drivers, which have no shared file to hand over.
func (s *store) Checkpoint(ctx context.Context) error {
	if s.cfg.Driver != "sqlite" {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return storageErr("checkpoint", err)
	}

	return nil
}

// InsertRun appends a new run row with all counters zeroed. The run id
// must be unique; generating fresh ids per run is the caller's job.
func (s *store) InsertRun(ctx context.Context, run *TestRun) error {
	if run.RunID == "" {
		return &ValidationError{Field: "run_id", Reason: "must not be empty"}
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return storageErr("inserting run", err)
	}

	return nil
}

// UpdateRun overwrites the mutable fields of an existing run with the
// final snapshot. Fields not set in the snapshot are written as zero, not
// preserved, so callers must always supply the complete final state.
func (s *store) UpdateRun(
	ctx context.Context, runID string, final *RunSnapshot,
) error {
	if runID == "" {
		return &ValidationError{Field: "run_id", Reason: "must not be empty"}
	}

	updates := map[string]any{
		"finished_at": final.FinishedAt,
		"total_tests": final.TotalTests,
		"passed":      final.Passed,
		"failed":      final.Failed,
		"skipped":     final.Skipped,
		"flaky":       final.Flaky,
		"pass_rate":   final.PassRate,
		"duration_ms": final.DurationMs,
	}

	if err := s.db.WithContext(ctx).
		Model(&TestRun{}).
		Where("run_id = ?", runID).
		Updates(updates).Error; err != nil {
		return storageErr("updating run", err)
	}

	return nil
}

// GetRun returns the run with the given id, or nil when it does not exist.
func (s *store) GetRun(
	ctx context.Context, runID string,
) (*TestRun, error) {
	var run TestRun

	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, storageErr("getting run", err)
	}

	return &run, nil
}

// ListRecentRuns returns the N most recent runs, newest first.
func (s *store) ListRecentRuns(
	ctx context.Context, limit int,
) ([]TestRun, error) {
	var runs []TestRun

	if err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, storageErr("listing recent runs", err)
	}

	return runs, nil
}

// InsertResult appends a result row. Results are immutable once written.
func (s *store) InsertResult(
	ctx context.Context, result *TestResult,
) error {
	if result.RunID == "" {
		return &ValidationError{Field: "run_id", Reason: "must not be empty"}
	}

	if result.TestID == "" {
		return &ValidationError{Field: "test_id", Reason: "must not be empty"}
	}

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		return storageErr("inserting result", err)
	}

	return nil
}

// ListResults returns all results recorded for a run.
func (s *store) ListResults(
	ctx context.Context, runID string,
) ([]TestResult, error) {
	var results []TestResult

	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, storageErr("listing results", err)
	}

	return results, nil
}

// ListFailedResults returns only the failed results for a run, including
// timeouts and interruptions.
func (s *store) ListFailedResults(
	ctx context.Context, runID string,
) ([]TestResult, error) {
	var results []TestResult

	if err := s.db.WithContext(ctx).
		Where("run_id = ? AND status IN ?", runID,
			[]string{StatusFailed, StatusTimedOut, StatusInterrupted}).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, storageErr("listing failed results", err)
	}

	return results, nil
}

// UpsertHistory folds a result into the rolling history for its test id,
// creating the row on first sight. The whole read-modify-write sequence
// holds histMu so concurrent results for one test cannot lose updates.
func (s *store) UpsertHistory(
	ctx context.Context, result *TestResult,
) error {
	if result.TestID == "" {
		return &ValidationError{Field: "test_id", Reason: "must not be empty"}
	}

	s.histMu.Lock()
	defer s.histMu.Unlock()

	now := result.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	var prev TestHistory

	err := s.db.WithContext(ctx).
		Where("test_id = ?", result.TestID).
		First(&prev).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		next := nextHistory(nil, result, now)
		if err := s.db.WithContext(ctx).Create(next).Error; err != nil {
			return storageErr("creating history", err)
		}
	case err != nil:
		return storageErr("reading history", err)
	default:
		next := nextHistory(&prev, result, now)
		next.ID = prev.ID

		if err := s.db.WithContext(ctx).Save(next).Error; err != nil {
			return storageErr("updating history", err)
		}
	}

	return nil
}

// GetHistory returns the rolling history for a test id, or nil when the
// test has never been observed.
func (s *store) GetHistory(
	ctx context.Context, testID string,
) (*TestHistory, error) {
	var hist TestHistory

	err := s.db.WithContext(ctx).
		Where("test_id = ?", testID).
		First(&hist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, storageErr("getting history", err)
	}

	return &hist, nil
}

// InsertLog appends a structured log entry for a run.
func (s *store) InsertLog(ctx context.Context, entry *LogEntry) error {
	if entry.RunID == "" {
		return &ValidationError{Field: "run_id", Reason: "must not be empty"}
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return storageErr("inserting log entry", err)
	}

	return nil
}

// ListLogs returns all log entries recorded for a run in emission order.
func (s *store) ListLogs(
	ctx context.Context, runID string,
) ([]LogEntry, error) {
	var entries []LogEntry

	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, storageErr("listing log entries", err)
	}

	return entries, nil
}
