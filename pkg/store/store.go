// Package store persists detection rows to SQLite so operators can
// review what the service saw after the fact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harborlabs/seawatch/pkg/detect"
)

// Row is one persisted detection. The JSON shape is the row-feed
// contract served by GET /csv-data.
type Row struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
	Conf  float64   `json:"conf"`
	X1    float64   `json:"x1"`
	Y1    float64   `json:"y1"`
	X2    float64   `json:"x2"`
	Y2    float64   `json:"y2"`
}

// Store is a SQLite-backed detection log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY churn under concurrent inserts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time DATETIME NOT NULL,
		label TEXT NOT NULL,
		conf REAL NOT NULL,
		x1 REAL NOT NULL,
		y1 REAL NOT NULL,
		x2 REAL NOT NULL,
		y2 REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_detections_time ON detections(time);
	CREATE INDEX IF NOT EXISTS idx_detections_label ON detections(label);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Insert persists one frame's detections in a single transaction.
// The shared timestamp t groups rows that came from the same frame.
func (s *Store) Insert(ctx context.Context, t time.Time, dets []detect.Detection) error {
	if len(dets) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detections (time, label, conf, x1, y1, x2, y2)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	ts := t.UTC().Truncate(time.Second)
	for _, d := range dets {
		if _, err := stmt.ExecContext(ctx, ts, d.Label, d.Conf, d.X1, d.Y1, d.X2, d.Y2); err != nil {
			return fmt.Errorf("store: insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns up to n rows, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, label, conf, x1, y1, x2, y2
		FROM detections ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("store: query recent: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0, n)
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Time, &r.Label, &r.Conf, &r.X1, &r.Y1, &r.X2, &r.Y2); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		r.Time = r.Time.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rows: %w", err)
	}

	return out, nil
}

// Count returns the total number of persisted rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count rows: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
