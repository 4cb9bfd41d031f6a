// cmd/backfill downloads historical candle ranges from OKX via cursor
// pagination, computes the indicator series over the full range, and writes
// the rows to SQLite for later inspection.
//
// Usage:
//
//	go run ./cmd/backfill --inst=BTC-USDT-SWAP --bar=1H --start=2025-01-01 --days=30
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"kdj-monitor/internal/instruments"
	"kdj-monitor/internal/kdj"
	"kdj-monitor/internal/model"
	"kdj-monitor/internal/okx"
	sqlitestore "kdj-monitor/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	instFlag := flag.String("inst", "", "Comma-separated instrument ids (e.g. BTC-USDT-SWAP)")
	csvPath := flag.String("csv", "", "CSV file with an instId column (alternative to --inst)")
	bar := flag.String("bar", "1H", "Bar period")
	startStr := flag.String("start", "", "Range start date, YYYY-MM-DD (UTC)")
	days := flag.Int("days", 30, "Range length in days when --end is not given")
	endStr := flag.String("end", "", "Range end date, YYYY-MM-DD (UTC, default start+days)")
	dbPath := flag.String("db", "data/kdj.db", "Path to SQLite database")
	rsvPeriod := flag.Int("rsv", 9, "RSV period")
	seedStr := flag.String("seed", "classic", "Seed strategy: classic|first-rsv|rolling-avg|sma|ema")
	baseURL := flag.String("base-url", "", "OKX base URL override")
	flag.Parse()

	instIDs := splitIDs(*instFlag)
	if *csvPath != "" {
		ids, err := instruments.LoadCSV(*csvPath)
		if err != nil {
			log.Fatalf("[backfill] %v", err)
		}
		instIDs = append(instIDs, ids...)
	}
	if len(instIDs) == 0 {
		log.Fatal("[backfill] no instruments: pass --inst or --csv")
	}

	rng, err := parseRange(*startStr, *endStr, *days)
	if err != nil {
		log.Fatalf("[backfill] %v", err)
	}

	seed, err := kdj.ParseSeedStrategy(*seedStr)
	if err != nil {
		log.Fatalf("[backfill] %v", err)
	}
	engine, err := kdj.NewEngine(*rsvPeriod, seed)
	if err != nil {
		log.Fatalf("[backfill] %v", err)
	}

	os.MkdirAll(filepath.Dir(*dbPath), 0o755)
	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[backfill] sqlite open failed: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client := okx.NewClient(*baseURL, 0)

	for _, instID := range instIDs {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		candles, err := client.History(ctx, instID, *bar, rng)
		if err != nil {
			log.Printf("[backfill] %s: download stopped: %v (keeping %d candles)", instID, err, len(candles))
		}
		if len(candles) == 0 {
			log.Printf("[backfill] %s: no candles in range", instID)
			continue
		}

		points := engine.Compute(candles)
		rows := make([]model.IndicatorRow, len(points))
		for i, p := range points {
			c := candles[i]
			rows[i] = model.IndicatorRow{
				InstID: instID, TS: c.TS,
				Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
				RSV: p.RSV, K: p.K, D: p.D, J: p.J,
			}
		}
		if err := writer.WriteRows(rows); err != nil {
			log.Printf("[backfill] %s: write failed: %v", instID, err)
			continue
		}
		log.Printf("[backfill] %s: %d rows over %s in %v",
			instID, len(rows), *bar, time.Since(start))
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func parseRange(startStr, endStr string, days int) (okx.HistoryRange, error) {
	var rng okx.HistoryRange
	now := time.Now().UTC()

	start := now.AddDate(0, 0, -days)
	if startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return rng, err
		}
		start = t
	}

	end := start.AddDate(0, 0, days)
	if endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return rng, err
		}
		end = t
	}
	if end.After(now) {
		end = now
	}

	rng.StartMs = start.UnixMilli()
	rng.EndMs = end.UnixMilli()
	return rng, nil
}
