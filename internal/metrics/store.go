package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"callqa/pkg/errors"
	"callqa/pkg/logger"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is fixed-width UTC so lexicographic ORDER BY on the stored text
// equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const defaultRecentLimit = 100

const schemaSQL = `
CREATE TABLE IF NOT EXISTS performance_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	operation TEXT NOT NULL,
	duration REAL NOT NULL,
	timestamp TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	metadata TEXT
);
CREATE TABLE IF NOT EXISTS usage_stats (
	operation_type TEXT PRIMARY KEY,
	count INTEGER DEFAULT 0,
	total_duration REAL DEFAULT 0.0,
	success_count INTEGER DEFAULT 0,
	last_execution TEXT
);`

const insertMetricSQL = `
INSERT INTO performance_metrics (operation, duration, timestamp, success, metadata)
VALUES (?, ?, ?, ?, ?)`

// The aggregate row is written in the same transaction as the raw row, with
// the arithmetic done by SQLite itself. Concurrent recorders can never
// interleave a read-modify-write.
const upsertUsageSQL = `
INSERT INTO usage_stats (operation_type, count, total_duration, success_count, last_execution)
VALUES (?, 1, ?, ?, ?)
ON CONFLICT(operation_type) DO UPDATE SET
	count = count + 1,
	total_duration = total_duration + excluded.total_duration,
	success_count = success_count + excluded.success_count,
	last_execution = excluded.last_execution`

const selectUsageSQL = `
SELECT operation_type, count, total_duration, success_count, last_execution
FROM usage_stats
ORDER BY count DESC`

const selectRecentSQL = `
SELECT operation, duration, timestamp, success, metadata
FROM performance_metrics
ORDER BY timestamp DESC, id DESC
LIMIT ?`

// Store persists metric records in SQLite. There is deliberately no default
// instance; callers construct one and pass it where it is needed.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if necessary) the metrics database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.NewStorageFailed("open", err)
	}

	// A single connection serializes writers; combined with the transactional
	// upsert this keeps aggregates consistent under concurrent recording.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageFailed("ping", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageFailed("init_schema", err)
	}

	return &Store{db: db, logger: logger.Get()}, nil
}

// RecordMetric stores one record and folds it into the per-operation
// aggregate atomically. Failures are logged and swallowed.
func (s *Store) RecordMetric(ctx context.Context, rec Record) {
	if err := s.recordMetric(ctx, rec); err != nil {
		s.logger.Warn("failed to record metric",
			zap.String("operation", rec.Operation),
			zap.Error(err),
		)
	}
}

func (s *Store) recordMetric(ctx context.Context, rec Record) error {
	meta := sql.NullString{}
	if rec.Metadata != nil {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("error encoding metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	ts := rec.Timestamp.UTC().Format(timeLayout)
	successCount := 0
	if rec.Success {
		successCount = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertMetricSQL,
		rec.Operation, rec.Duration, ts, rec.Success, meta); err != nil {
		return fmt.Errorf("error inserting metric: %w", err)
	}

	if _, err := tx.ExecContext(ctx, upsertUsageSQL,
		rec.Operation, rec.Duration, successCount, ts); err != nil {
		return fmt.Errorf("error updating usage stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing metric: %w", err)
	}
	return nil
}

// UsageStats returns per-operation aggregates ordered by call count,
// busiest first. Read failures are logged and yield an empty slice.
func (s *Store) UsageStats(ctx context.Context) []UsageStatistic {
	stats, err := s.queryUsageStats(ctx)
	if err != nil {
		s.logger.Warn("failed to read usage stats", zap.Error(err))
		return nil
	}
	return stats
}

func (s *Store) queryUsageStats(ctx context.Context) ([]UsageStatistic, error) {
	rows, err := s.db.QueryContext(ctx, selectUsageSQL)
	if err != nil {
		return nil, fmt.Errorf("error querying usage stats: %w", err)
	}
	defer rows.Close()

	var stats []UsageStatistic
	for rows.Next() {
		var (
			stat          UsageStatistic
			totalDuration float64
			successCount  int64
			lastExecution sql.NullString
		)
		if err := rows.Scan(&stat.OperationType, &stat.Count, &totalDuration, &successCount, &lastExecution); err != nil {
			return nil, fmt.Errorf("error scanning usage row: %w", err)
		}
		if stat.Count > 0 {
			stat.AvgDuration = totalDuration / float64(stat.Count)
			stat.SuccessRate = float64(successCount) / float64(stat.Count)
		}
		if lastExecution.Valid {
			if t, err := time.Parse(timeLayout, lastExecution.String); err == nil {
				stat.LastExecution = t
			}
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage rows: %w", err)
	}
	return stats, nil
}

// RecentMetrics returns up to limit raw records, newest first. A limit of
// zero or less means the default of 100. Read failures are logged and yield
// an empty slice.
func (s *Store) RecentMetrics(ctx context.Context, limit int) []Record {
	recs, err := s.queryRecentMetrics(ctx, limit)
	if err != nil {
		s.logger.Warn("failed to read recent metrics", zap.Error(err))
		return nil
	}
	return recs
}

func (s *Store) queryRecentMetrics(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, selectRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying recent metrics: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec  Record
			ts   string
			meta sql.NullString
		)
		if err := rows.Scan(&rec.Operation, &rec.Duration, &ts, &rec.Success, &meta); err != nil {
			return nil, fmt.Errorf("error scanning metric row: %w", err)
		}
		if t, err := time.Parse(timeLayout, ts); err == nil {
			rec.Timestamp = t
		}
		if meta.Valid {
			var m map[string]any
			if err := json.Unmarshal([]byte(meta.String), &m); err == nil {
				rec.Metadata = m
			}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric rows: %w", err)
	}
	return recs, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewStorageFailed("ping", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
