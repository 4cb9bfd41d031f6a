package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"kdj-monitor/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/kdj.db"
}

// Writer persists indicator rows with transaction batching. Single-writer:
// the connection pool is capped at one connection.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kdj_points (
			inst_id  TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL,
			rsv      REAL    NOT NULL,
			k        REAL    NOT NULL,
			d        REAL    NOT NULL,
			j        REAL    NOT NULL,
			PRIMARY KEY (inst_id, ts)
		);

		CREATE INDEX IF NOT EXISTS idx_kdj_points_ts ON kdj_points (ts);
	`)
	return err
}

// WriteRows inserts indicator rows in a single transaction. Re-running a
// cycle over overlapping history is an upsert, not an error.
func (w *Writer) WriteRows(rows []model.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO kdj_points (inst_id, ts, open, high, low, close, volume, rsv, k, d, j)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.InstID, r.TS, r.Open, r.High, r.Low, r.Close, r.Volume, r.RSV, r.K, r.D, r.J); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s@%d: %w", r.InstID, r.TS, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	log.Printf("[sqlite] committed %d rows in %v", len(rows), time.Since(start))
	return nil
}

// Close releases the database handle.
func (w *Writer) Close() error {
	return w.db.Close()
}
