// Package store persists monitoring records in SQLite and implements the
// staging swap that publishes a new dataset generation atomically.
//
// Two tables exist: records holds the ACTIVE generation that all reads see,
// and records_staging accumulates the next generation during an update.
// CommitSwap replaces the active table with the staging table in one
// transaction, so readers observe either the old dataset or the new one and
// never a mixture.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// ErrEmptyStaging is returned by CommitSwap when the staging table holds no
// rows. The swap is refused and the previous active dataset stays intact, so
// a run that produced nothing cannot wipe a populated database.
var ErrEmptyStaging = errors.New("store: staging table is empty, refusing to swap")

const (
	activeTable  = "records"
	stagingTable = "records_staging"
)

// Store wraps the SQLite database holding the record tables.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the SQLite database at path and configures
// WAL mode so readers are not blocked while an update writes the staging
// table.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: exec %s: %w", pragma, err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

const tableColumns = `
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	province TEXT,
	site_name TEXT,
	address  TEXT NOT NULL,
	lat      REAL,
	lon      REAL,
	payload  TEXT,
	source   TEXT,
	processed_at TEXT
`

// Init creates the active table if it does not exist. Safe to call on every
// startup.
func (s *Store) Init(ctx context.Context) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", activeTable, tableColumns)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("store: init: %w", err)
	}
	return nil
}

// Staging accumulates the next dataset generation. Rows inserted here are
// invisible to reads until CommitSwap publishes them.
type Staging struct {
	store *Store
}

// BeginStaging drops any leftover staging table from an aborted run and
// creates a fresh empty one.
func (s *Store) BeginStaging(ctx context.Context) (*Staging, error) {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", stagingTable)); err != nil {
		return nil, fmt.Errorf("store: drop stale staging: %w", err)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", stagingTable, tableColumns)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("store: create staging: %w", err)
	}
	return &Staging{store: s}, nil
}

// Insert appends one record to the staging table. A record without a
// coordinate is stored with NULL lat/lon; it stays queryable by address but
// never appears in spatial results.
func (st *Staging) Insert(ctx context.Context, rec domain.Record) error {
	var lat, lon any
	if rec.Coord != nil {
		lat, lon = rec.Coord.Lat, rec.Coord.Lon
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal payload: %w", err)
	}

	var processedAt any
	if !rec.ProcessedAt.IsZero() {
		processedAt = rec.ProcessedAt.UTC().Format(time.RFC3339)
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (province, site_name, address, lat, lon, payload, source, processed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		stagingTable,
	)
	if _, err := st.store.db.ExecContext(ctx, stmt,
		rec.Province, rec.Site, rec.Address, lat, lon, string(payload), rec.Source, processedAt,
	); err != nil {
		return fmt.Errorf("store: insert staging row: %w", err)
	}
	return nil
}

// Count returns the number of rows currently staged.
func (st *Staging) Count(ctx context.Context) (int, error) {
	var n int
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", stagingTable)
	if err := st.store.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count staging: %w", err)
	}
	return n, nil
}

// CommitSwap atomically replaces the active table with the staging table.
// Inside one transaction it verifies the staging table is non-empty, drops
// the active table, and renames staging into its place. On any failure,
// including ErrEmptyStaging, the transaction rolls back and the previous
// active dataset is untouched.
func (st *Staging) CommitSwap(ctx context.Context) error {
	tx, err := st.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin swap tx: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", stagingTable)).Scan(&n); err != nil {
		return fmt.Errorf("store: count staging in swap: %w", err)
	}
	if n == 0 {
		return ErrEmptyStaging
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", activeTable)); err != nil {
		return fmt.Errorf("store: drop active: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", stagingTable, activeTable)); err != nil {
		return fmt.Errorf("store: rename staging: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit swap: %w", err)
	}
	return nil
}

// Abort discards the staging table without touching the active dataset.
func (st *Staging) Abort(ctx context.Context) error {
	if _, err := st.store.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", stagingTable)); err != nil {
		return fmt.Errorf("store: abort staging: %w", err)
	}
	return nil
}

// CountActive returns the number of rows in the active dataset. A missing
// active table (before the first swap) counts as zero.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	ok, err := s.tableExists(ctx, activeTable)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", activeTable)).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count active: %w", err)
	}
	return n, nil
}

// EligiblePoint is one active row with a coordinate, the unit the spatial
// index is built from.
type EligiblePoint struct {
	ID    int64
	Coord domain.Coordinate
}

// EligiblePoints returns the id and coordinate of every active row whose
// lat and lon are both present, in insertion (rowid) order.
func (s *Store) EligiblePoints(ctx context.Context) ([]EligiblePoint, error) {
	ok, err := s.tableExists(ctx, activeTable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	stmt := fmt.Sprintf(
		"SELECT id, lat, lon FROM %s WHERE lat IS NOT NULL AND lon IS NOT NULL ORDER BY id",
		activeTable,
	)
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("store: query eligible points: %w", err)
	}
	defer rows.Close()

	var points []EligiblePoint
	for rows.Next() {
		var p EligiblePoint
		if err := rows.Scan(&p.ID, &p.Coord.Lat, &p.Coord.Lon); err != nil {
			return nil, fmt.Errorf("store: scan eligible point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate eligible points: %w", err)
	}
	return points, nil
}

// RecordsByID fetches full records for the given active-row ids, returned in
// the order the ids were supplied. Unknown ids are skipped.
func (s *Store) RecordsByID(ctx context.Context, ids []int64) ([]domain.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[int64]domain.Record, len(ids))
	for _, id := range ids {
		rec, err := s.recordByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		byID[id] = rec
	}

	out := make([]domain.Record, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) recordByID(ctx context.Context, id int64) (domain.Record, error) {
	stmt := fmt.Sprintf(
		"SELECT id, province, site_name, address, lat, lon, payload, source, processed_at FROM %s WHERE id = ?",
		activeTable,
	)
	row := s.db.QueryRowContext(ctx, stmt, id)

	var (
		rec         domain.Record
		lat, lon    sql.NullFloat64
		payload     sql.NullString
		processedAt sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Province, &rec.Site, &rec.Address, &lat, &lon, &payload, &rec.Source, &processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Record{}, err
		}
		return domain.Record{}, fmt.Errorf("store: scan record %d: %w", id, err)
	}

	if lat.Valid && lon.Valid {
		rec.Coord = &domain.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
	}
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &rec.Payload); err != nil {
			return domain.Record{}, fmt.Errorf("store: unmarshal payload for record %d: %w", id, err)
		}
	}
	if processedAt.Valid && processedAt.String != "" {
		ts, err := time.Parse(time.RFC3339, processedAt.String)
		if err != nil {
			return domain.Record{}, fmt.Errorf("store: bad processed_at for record %d: %w", id, err)
		}
		rec.ProcessedAt = ts
	}
	return rec, nil
}

// ActiveRecords streams every active row in insertion order.
func (s *Store) ActiveRecords(ctx context.Context) ([]domain.Record, error) {
	ok, err := s.tableExists(ctx, activeTable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	stmt := fmt.Sprintf("SELECT id FROM %s ORDER BY id", activeTable)
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("store: query active records: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate record ids: %w", err)
	}
	return s.RecordsByID(ctx, ids)
}

// DistinctAddresses returns every distinct non-empty address in the active
// dataset, in first-seen order. Used by the cache rebuild to know what needs
// geocoding.
func (s *Store) DistinctAddresses(ctx context.Context) ([]string, error) {
	ok, err := s.tableExists(ctx, activeTable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	stmt := fmt.Sprintf(
		"SELECT address FROM %s WHERE address != '' GROUP BY address ORDER BY MIN(id)",
		activeTable,
	)
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("store: query addresses: %w", err)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("store: scan address: %w", err)
		}
		addrs = append(addrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate addresses: %w", err)
	}
	return addrs, nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: check table %s: %w", name, err)
	}
	return n > 0, nil
}
