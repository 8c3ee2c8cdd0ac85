package store

import (
	"context"
	"database/sql"
	"defectlens/pkg/detect"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS defect_detections (
		id               TEXT PRIMARY KEY,
		image_url        TEXT NOT NULL,
		image_name       TEXT NOT NULL,
		detection_result TEXT NOT NULL,
		defect_detected  INTEGER NOT NULL,
		product_type     TEXT NOT NULL DEFAULT '',
		confidence_score REAL NOT NULL DEFAULT 0,
		width            INTEGER NOT NULL DEFAULT 0,
		height           INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_defect_detections_created_at
		ON defect_detections (created_at DESC)`,
}

const selectColumns = `id, image_url, image_name, detection_result, defect_detected,
	product_type, confidence_score, width, height, created_at`

// SQLiteStore keeps records in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: alive and serializes writers
	db.SetMaxOpenConns(1)

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts e as a new record with a fresh UUID.
func (s *SQLiteStore) Save(ctx context.Context, e Entry) (*Record, error) {
	if e.Result == nil || strings.TrimSpace(e.ImageURL) == "" {
		return nil, fmt.Errorf("%w: image url and result are required", ErrInvalidInput)
	}
	payload, err := json.Marshal(e.Result)
	if err != nil {
		return nil, fmt.Errorf("encode detection result: %w", err)
	}

	rec := &Record{
		ID:             uuid.NewString(),
		ImageURL:       e.ImageURL,
		ImageName:      e.ImageName,
		Result:         e.Result,
		DefectDetected: e.Result.Defective(),
		ProductType:    e.Result.ProductType,
		Confidence:     e.Result.OverallConfidence,
		Width:          e.Width,
		Height:         e.Height,
		CreatedAt:      s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO defect_detections (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ImageURL, rec.ImageName, string(payload), rec.DefectDetected,
		rec.ProductType, rec.Confidence, rec.Width, rec.Height, rec.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// ListRecent returns up to limit records, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+`
		FROM defect_detections ORDER BY created_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM defect_detections WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec     Record
		payload string
		created int64
	)
	err := sc.Scan(&rec.ID, &rec.ImageURL, &rec.ImageName, &payload, &rec.DefectDetected,
		&rec.ProductType, &rec.Confidence, &rec.Width, &rec.Height, &created)
	if err != nil {
		return nil, err
	}
	rec.Result = &detect.Result{}
	if err := json.Unmarshal([]byte(payload), rec.Result); err != nil {
		return nil, fmt.Errorf("decode detection result of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}
