// Package sqlite archives fetched bars so the service can evaluate offline.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"nifty-signal/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const dsnParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Writer upserts bars into the archive in one transaction per call.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database in WAL mode and creates the schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol   TEXT    NOT NULL,
			interval INTEGER NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   INTEGER,
			PRIMARY KEY (symbol, interval, ts)
		);
	`)
	return err
}

// SaveBars upserts bars for symbol at the given interval.
// A bar already archived at the same TS is replaced, so re-fetching a
// still-forming bar keeps the newest values.
func (w *Writer) SaveBars(ctx context.Context, symbol string, interval time.Duration, bars model.BarSeries) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	iv := int64(interval / time.Second)
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, iv, b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar %s: %w", b.TS.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	log.Printf("[sqlite] committed %d bars for %s/%s in %v", len(bars), symbol, interval, time.Since(start))
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
