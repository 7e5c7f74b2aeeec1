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

// Reader provides read-only access to the bar archive.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadBars reads bars for symbol and interval with TS >= since, ascending.
func (r *Reader) ReadBars(ctx context.Context, symbol string, interval time.Duration, since time.Time) (model.BarSeries, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ? AND ts >= ?
		ORDER BY ts ASC
	`, symbol, int64(interval/time.Second), since.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars model.BarSeries
	for rows.Next() {
		var (
			b      model.Bar
			tsUnix int64
			volume sql.NullInt64
		)
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		b.Volume = volume.Int64
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
