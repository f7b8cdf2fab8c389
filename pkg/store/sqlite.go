package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/topology"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

// Store persists trace datasets in SQLite. WAL mode keeps concurrent
// readers cheap while a generation run writes.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at dbPath and runs
// schema migration.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// One row per trace record. Position preserves the dataset's canonical
	// order so a load reproduces exactly what was saved; metadata rides
	// along as a JSON blob.
	query := `
	CREATE TABLE IF NOT EXISTS datasets (
		dataset_id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS trace_records (
		trace_id TEXT NOT NULL,
		dataset_id TEXT NOT NULL REFERENCES datasets(dataset_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		service_name TEXT NOT NULL,
		service_type TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		status TEXT NOT NULL,
		parent_trace_id TEXT,
		metadata JSON NOT NULL,

		PRIMARY KEY (dataset_id, trace_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_position ON trace_records(dataset_id, position);
	CREATE INDEX IF NOT EXISTS idx_records_parent ON trace_records(dataset_id, parent_trace_id);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create trace tables: %w", err)
	}
	return nil
}

// SaveDataset persists the dataset under datasetID in a single transaction.
// Saving is all-or-nothing; an existing dataset with the same id is an error.
func (s *Store) SaveDataset(ctx context.Context, datasetID string, ds dataset.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (dataset_id, created_at) VALUES (?, ?)`,
		datasetID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to register dataset %s: %w", datasetID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_records
			(trace_id, dataset_id, position, service_name, service_type,
			 start_time, end_time, status, parent_trace_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range ds {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", rec.TraceID, err)
		}
		var parent sql.NullString
		if rec.ParentTraceID != "" {
			parent = sql.NullString{String: rec.ParentTraceID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.TraceID, datasetID, i, rec.ServiceName, string(rec.ServiceType),
			rec.StartTime, rec.EndTime, string(rec.Status), parent, string(meta),
		); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.TraceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset %s: %w", datasetID, err)
	}
	return nil
}

// LoadDataset returns the dataset saved under datasetID in its stored
// order. An unknown id fails with ErrDatasetNotFound; a persisted dataset
// with zero records loads as an empty Dataset.
func (s *Store) LoadDataset(ctx context.Context, datasetID string) (dataset.Dataset, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM datasets WHERE dataset_id = ?`, datasetID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, ErrDatasetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up dataset %s: %w", datasetID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, service_name, service_type, start_time, end_time,
		       status, parent_trace_id, metadata
		FROM trace_records
		WHERE dataset_id = ?
		ORDER BY position ASC
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset %s: %w", datasetID, err)
	}
	defer rows.Close()

	var ds dataset.Dataset
	for rows.Next() {
		var (
			rec      trace.Record
			svcType  string
			status   string
			parent   sql.NullString
			metaJSON string
		)
		if err := rows.Scan(&rec.TraceID, &rec.ServiceName, &svcType,
			&rec.StartTime, &rec.EndTime, &status, &parent, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.ServiceType = topology.ServiceType(svcType)
		rec.Status = trace.Status(status)
		if parent.Valid {
			rec.ParentTraceID = parent.String
		}
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", rec.TraceID, err)
		}
		ds = append(ds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dataset %s: %w", datasetID, err)
	}
	return ds, nil
}

// ListDatasets returns the persisted datasets, newest first.
func (s *Store) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.dataset_id,
		       d.created_at,
		       COUNT(r.trace_id),
		       COALESCE(SUM(CASE WHEN r.parent_trace_id IS NULL THEN 1 ELSE 0 END), 0)
		FROM datasets d
		LEFT JOIN trace_records r ON r.dataset_id = d.dataset_id
		GROUP BY d.dataset_id
		ORDER BY d.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.DatasetID, &info.CreatedAt, &info.Records, &info.Roots); err != nil {
			return nil, fmt.Errorf("failed to scan dataset info: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return infos, nil
}

// DeleteDataset removes a dataset and its records.
func (s *Store) DeleteDataset(ctx context.Context, datasetID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM datasets WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("failed to delete dataset %s: %w", datasetID, err)
	}
	return nil
}
