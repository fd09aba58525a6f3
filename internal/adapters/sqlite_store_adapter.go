package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatumlabs/fatum/internal/application/domain"
	"github.com/fatumlabs/fatum/internal/application/ports"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS harvest_batches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'collecting',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entropy_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id INTEGER NOT NULL REFERENCES harvest_batches(id),
	pulse_round INTEGER,
	hex_value TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entropy_records_batch ON entropy_records(batch_id);
`

// SQLiteStore provides SQLite-backed persistence for harvest batches
// and their entropy records.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLiteStore opens and migrates the store at the provided path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateBatch inserts a new batch in the collecting state.
func (s *SQLiteStore) CreateBatch(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("batch name is required")
	}

	now := time.Now().UTC().Format(timeFormat)
	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO harvest_batches (name, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, string(domain.BatchCollecting), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("create batch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create batch id: %w", err)
	}
	return id, nil
}

// GetBatch loads a batch by id.
func (s *SQLiteStore) GetBatch(ctx context.Context, id int64) (domain.HarvestBatch, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, status, created_at, updated_at FROM harvest_batches WHERE id = ?`,
		id,
	)
	return scanBatch(row)
}

// ListBatches returns all batches, newest first.
func (s *SQLiteStore) ListBatches(ctx context.Context) ([]domain.HarvestBatch, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, status, created_at, updated_at FROM harvest_batches ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.HarvestBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// UpdateBatchStatus transitions a batch's lifecycle state.
func (s *SQLiteStore) UpdateBatchStatus(ctx context.Context, id int64, status domain.BatchStatus) error {
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE harvest_batches SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, id,
	)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %d not found", id)
	}
	return nil
}

// InsertEntropy appends one harvested record to a batch. round is nil
// when the source did not report a pulse round.
func (s *SQLiteStore) InsertEntropy(ctx context.Context, batchID int64, round *uint64, hexValue string) error {
	var roundVal sql.NullInt64
	if round != nil {
		roundVal = sql.NullInt64{Int64: int64(*round), Valid: true}
	}

	now := time.Now().UTC().Format(timeFormat)
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO entropy_records (batch_id, pulse_round, hex_value, created_at) VALUES (?, ?, ?, ?)`,
		batchID, roundVal, hexValue, now,
	)
	if err != nil {
		return fmt.Errorf("insert entropy: %w", err)
	}
	return nil
}

// GetBatchEntropy returns a batch's records in insertion order.
func (s *SQLiteStore) GetBatchEntropy(ctx context.Context, batchID int64) ([]domain.EntropyRecord, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, batch_id, pulse_round, hex_value, created_at FROM entropy_records WHERE batch_id = ? ORDER BY id ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("get batch entropy: %w", err)
	}
	defer rows.Close()

	var records []domain.EntropyRecord
	for rows.Next() {
		var rec domain.EntropyRecord
		var roundVal sql.NullInt64
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.BatchID, &roundVal, &rec.HexValue, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entropy record: %w", err)
		}
		if roundVal.Valid {
			round := uint64(roundVal.Int64)
			rec.PulseRound = &round
		}
		rec.CreatedAt, err = time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse entropy created_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get batch entropy: %w", err)
	}
	return records, nil
}

// GetBatchSize returns the number of records collected for a batch.
func (s *SQLiteStore) GetBatchSize(ctx context.Context, batchID int64) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM entropy_records WHERE batch_id = ?`,
		batchID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get batch size: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (domain.HarvestBatch, error) {
	var batch domain.HarvestBatch
	var status, createdAt, updatedAt string
	if err := row.Scan(&batch.ID, &batch.Name, &status, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.HarvestBatch{}, fmt.Errorf("batch not found: %w", err)
		}
		return domain.HarvestBatch{}, fmt.Errorf("scan batch: %w", err)
	}

	batch.Status = domain.BatchStatus(status)
	var err error
	if batch.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return domain.HarvestBatch{}, fmt.Errorf("parse batch created_at: %w", err)
	}
	if batch.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return domain.HarvestBatch{}, fmt.Errorf("parse batch updated_at: %w", err)
	}
	return batch, nil
}

var _ ports.EntropyStore = (*SQLiteStore)(nil)
