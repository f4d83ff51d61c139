package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avholt/wxstation/internal/metar"
	"github.com/avholt/wxstation/pkg/logger"
)

// SnapshotRecord is one stored weather observation.
type SnapshotRecord struct {
	ID               int64               `json:"id"`
	Station          string              `json:"station"`
	IssuedAt         time.Time           `json:"issued_at"`
	FetchedAt        time.Time           `json:"fetched_at"`
	Source           string              `json:"source"`
	Raw              string              `json:"raw"`
	Report           *metar.ParsedReport `json:"report"`
	FreshnessSeconds int                 `json:"freshness_seconds"`
}

// SnapshotStorage is a SQLite-based store for decoded weather snapshots.
type SnapshotStorage struct {
	db             *sql.DB
	logger         *logger.Logger
	maxHistoryRows int
}

// NewSnapshotStorage opens (or creates) the database at dbPath and
// prepares the snapshot schema. It owns the connection; sibling stores
// share it via GetDB.
func NewSnapshotStorage(dbPath string, maxHistoryRows int, log *logger.Logger) (*SnapshotStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	storage := &SnapshotStorage{
		db:             db,
		logger:         storageLogger,
		maxHistoryRows: maxHistoryRows,
	}

	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// Close closes the database connection
func (s *SnapshotStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *SnapshotStorage) GetDB() *sql.DB {
	return s.db
}

func (s *SnapshotStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS wx_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station TEXT NOT NULL,
			issued_at TIMESTAMP NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			source TEXT,
			raw TEXT NOT NULL,
			report_json TEXT NOT NULL,
			freshness_seconds INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create wx_snapshots table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_snapshots_station ON wx_snapshots(station)`)
	if err != nil {
		return fmt.Errorf("failed to create station index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_snapshots_issued_at ON wx_snapshots(issued_at)`)
	if err != nil {
		return fmt.Errorf("failed to create issued_at index: %w", err)
	}

	return nil
}

// SaveSnapshot persists one decoded snapshot and trims history past the
// configured row budget.
func (s *SnapshotStorage) SaveSnapshot(snapshot *metar.WeatherSnapshot) error {
	reportJSON, err := json.Marshal(snapshot.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO wx_snapshots
		(station, issued_at, fetched_at, source, raw, report_json, freshness_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snapshot.Report.StationID,
		snapshot.IssuedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		snapshot.Source,
		snapshot.Report.Raw,
		string(reportJSON),
		int(snapshot.FreshnessWindow.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if s.maxHistoryRows > 0 {
		if err := s.pruneHistory(snapshot.Report.StationID); err != nil {
			s.logger.Warn("Failed to prune snapshot history", logger.Error(err))
		}
	}

	return nil
}

// pruneHistory deletes the oldest rows beyond maxHistoryRows for a station.
func (s *SnapshotStorage) pruneHistory(station string) error {
	_, err := s.db.Exec(
		`DELETE FROM wx_snapshots
		WHERE station = ? AND id NOT IN (
			SELECT id FROM wx_snapshots
			WHERE station = ?
			ORDER BY issued_at DESC, id DESC
			LIMIT ?
		)`,
		station, station, s.maxHistoryRows,
	)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return nil
}

// GetLatest returns the most recent snapshot for a station, or nil when
// nothing is stored yet.
func (s *SnapshotStorage) GetLatest(station string) (*SnapshotRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, station, issued_at, fetched_at, source, raw, report_json, freshness_seconds
		FROM wx_snapshots
		WHERE station = ?
		ORDER BY issued_at DESC, id DESC
		LIMIT 1`,
		station,
	)

	record, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	return record, nil
}

// GetHistory returns recent snapshots for a station, newest first.
func (s *SnapshotStorage) GetHistory(station string, limit int) ([]*SnapshotRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, station, issued_at, fetched_at, source, raw, report_json, freshness_seconds
		FROM wx_snapshots
		WHERE station = ?
		ORDER BY issued_at DESC, id DESC
		LIMIT ?`,
		station, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot history: %w", err)
	}
	defer rows.Close()

	var records []*SnapshotRecord
	for rows.Next() {
		record, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*SnapshotRecord, error) {
	var record SnapshotRecord
	var issuedAt, fetchedAt, reportJSON string
	var source sql.NullString

	if err := row.Scan(
		&record.ID,
		&record.Station,
		&issuedAt,
		&fetchedAt,
		&source,
		&record.Raw,
		&reportJSON,
		&record.FreshnessSeconds,
	); err != nil {
		return nil, err
	}

	var err error
	record.IssuedAt, err = time.Parse(time.RFC3339, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issued_at: %w", err)
	}
	record.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
	}

	if source.Valid {
		record.Source = source.String
	}
	if err := json.Unmarshal([]byte(reportJSON), &record.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &record, nil
}
