package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	"kdj-monitor/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to persisted indicator rows.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadRows reads indicator rows for one instrument after the given ms
// timestamp, ordered ascending. limit <= 0 means no limit.
func (r *Reader) ReadRows(instID string, afterTS int64, limit int) ([]model.IndicatorRow, error) {
	query := `
		SELECT inst_id, ts, open, high, low, close, volume, rsv, k, d, j
		FROM kdj_points
		WHERE inst_id = ? AND ts > ?
		ORDER BY ts ASC
	`
	args := []interface{}{instID, afterTS}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query kdj_points: %w", err)
	}
	defer rows.Close()

	var out []model.IndicatorRow
	for rows.Next() {
		var row model.IndicatorRow
		if err := rows.Scan(&row.InstID, &row.TS, &row.Open, &row.High, &row.Low, &row.Close,
			&row.Volume, &row.RSV, &row.K, &row.D, &row.J); err != nil {
			return nil, fmt.Errorf("sqlite scan kdj_points: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LatestTS returns the newest persisted timestamp for an instrument, or 0 if
// none exists.
func (r *Reader) LatestTS(instID string) (int64, error) {
	var ts sql.NullInt64
	err := r.db.QueryRow(`SELECT MAX(ts) FROM kdj_points WHERE inst_id = ?`, instID).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("sqlite latest ts: %w", err)
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close releases the database handle.
func (r *Reader) Close() error {
	return r.db.Close()
}
