package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avholt/wxstation/internal/evidence"
	"github.com/avholt/wxstation/pkg/logger"
)

// CalculationStorage handles storage of signed calculation records.
type CalculationStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewCalculationStorage creates a calculation store on an already-open
// database connection.
func NewCalculationStorage(db *sql.DB, log *logger.Logger) *CalculationStorage {
	storage := &CalculationStorage{
		db:     db,
		logger: log.Named("sqlite-calc"),
	}

	if err := storage.initDB(); err != nil {
		storage.logger.Error("Failed to initialize calculation storage", logger.Error(err))
	}

	return storage
}

func (s *CalculationStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signed_calculations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station TEXT NOT NULL,
			issued_at TIMESTAMP NOT NULL,
			computed_at TIMESTAMP NOT NULL,
			raw_report TEXT NOT NULL,
			result_json TEXT NOT NULL,
			digest TEXT NOT NULL,
			signature TEXT NOT NULL,
			public_key TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create signed_calculations table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_calc_station ON signed_calculations(station)`)
	if err != nil {
		return fmt.Errorf("failed to create station index: %w", err)
	}

	_, err = s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_calc_digest ON signed_calculations(digest)`)
	if err != nil {
		return fmt.Errorf("failed to create digest index: %w", err)
	}

	return nil
}

// StoreRecord persists one signed record. Records are content-addressed
// by digest, so re-signing identical inputs is a no-op.
func (s *CalculationStorage) StoreRecord(rec *evidence.Record) (int64, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO signed_calculations
		(station, issued_at, computed_at, raw_report, result_json, digest, signature, public_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Station,
		rec.IssuedAt.UTC().Format(time.RFC3339),
		rec.ComputedAt.UTC().Format(time.RFC3339),
		rec.RawReport,
		string(rec.Result),
		rec.Digest,
		rec.Signature,
		rec.PublicKeyHex,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert signed calculation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetRecords returns signed records for a station, newest first.
func (s *CalculationStorage) GetRecords(station string, limit, offset int) ([]*evidence.Record, error) {
	rows, err := s.db.Query(
		`SELECT station, issued_at, computed_at, raw_report, result_json, digest, signature, public_key
		FROM signed_calculations
		WHERE station = ?
		ORDER BY computed_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		station, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query signed calculations: %w", err)
	}
	defer rows.Close()

	var records []*evidence.Record
	for rows.Next() {
		record, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signed calculation: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetRecordByDigest returns the record with the given digest, or nil.
func (s *CalculationStorage) GetRecordByDigest(digest string) (*evidence.Record, error) {
	row := s.db.QueryRow(
		`SELECT station, issued_at, computed_at, raw_report, result_json, digest, signature, public_key
		FROM signed_calculations
		WHERE digest = ?`,
		digest,
	)

	record, err := scanCalculation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query signed calculation: %w", err)
	}
	return record, nil
}

func scanCalculation(row rowScanner) (*evidence.Record, error) {
	var record evidence.Record
	var issuedAt, computedAt, resultJSON string

	if err := row.Scan(
		&record.Station,
		&issuedAt,
		&computedAt,
		&record.RawReport,
		&resultJSON,
		&record.Digest,
		&record.Signature,
		&record.PublicKeyHex,
	); err != nil {
		return nil, err
	}

	var err error
	record.IssuedAt, err = time.Parse(time.RFC3339, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issued_at: %w", err)
	}
	record.ComputedAt, err = time.Parse(time.RFC3339, computedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse computed_at: %w", err)
	}
	record.Result = json.RawMessage(resultJSON)

	return &record, nil
}
