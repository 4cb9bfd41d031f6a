package sqlite

import (
	"path/filepath"
	"testing"

	"kdj-monitor/internal/model"
)

func testRows(instID string, n int) []model.IndicatorRow {
	rows := make([]model.IndicatorRow, n)
	for i := range rows {
		rows[i] = model.IndicatorRow{
			InstID: instID,
			TS:     int64(i+1) * 3600_000,
			Open:   100, High: 101, Low: 99, Close: 100.5, Volume: 10,
			RSV: 50, K: 55.5, D: 52.5, J: 61.5,
		}
	}
	return rows
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kdj.db")

	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.WriteRows(testRows("BTC-USDT-SWAP", 5)); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if err := w.WriteRows(testRows("ETH-USDT-SWAP", 3)); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadRows("BTC-USDT-SWAP", 0, 0)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].TS <= got[i-1].TS {
			t.Errorf("rows not ascending at %d", i)
		}
	}
	if got[0].K != 55.5 || got[0].J != 61.5 {
		t.Errorf("row values = %+v", got[0])
	}
}

func TestWriteRowsUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kdj.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	rows := testRows("BTC-USDT-SWAP", 3)
	if err := w.WriteRows(rows); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	// Overlapping re-run with updated values replaces, not duplicates.
	rows[2].K = 80
	if err := w.WriteRows(rows); err != nil {
		t.Fatalf("WriteRows (rerun): %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadRows("BTC-USDT-SWAP", 0, 0)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows after rerun, want 3", len(got))
	}
	if got[2].K != 80 {
		t.Errorf("rerun did not replace: K = %v", got[2].K)
	}
}

func TestReadRowsAfterAndLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kdj.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if err := w.WriteRows(testRows("BTC-USDT-SWAP", 10)); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadRows("BTC-USDT-SWAP", 5*3600_000, 3)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	if got[0].TS != 6*3600_000 {
		t.Errorf("first TS = %d, want strictly after the cursor", got[0].TS)
	}
}

func TestLatestTS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kdj.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	ts, err := r.LatestTS("BTC-USDT-SWAP")
	if err != nil || ts != 0 {
		t.Fatalf("empty table: ts=%d err=%v", ts, err)
	}

	if err := w.WriteRows(testRows("BTC-USDT-SWAP", 4)); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	ts, err = r.LatestTS("BTC-USDT-SWAP")
	if err != nil {
		t.Fatalf("LatestTS: %v", err)
	}
	if ts != 4*3600_000 {
		t.Errorf("LatestTS = %d, want %d", ts, 4*3600_000)
	}
}
