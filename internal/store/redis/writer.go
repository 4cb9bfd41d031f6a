package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"kdj-monitor/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	latestKeyPrefix = "kdj:latest:"
	signalStream    = "kdj:signals"

	// Stream trimming: a day of hourly signals across a few hundred
	// instruments fits comfortably.
	signalStreamMaxLen = 10000

	defaultLatestTTL = 6 * time.Hour
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes per-instrument latest indicator points and appends signal
// events to a capped stream.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// WriteLatest stores the newest indicator point for an instrument as JSON
// under kdj:latest:<instId> with a TTL, so consumers always see a bounded-
// staleness snapshot.
func (w *Writer) WriteLatest(ctx context.Context, instID string, point model.IndicatorPoint) error {
	row := model.IndicatorRow{InstID: instID, TS: point.TS, RSV: point.RSV, K: point.K, D: point.D, J: point.J}
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("redis marshal latest %s: %w", instID, err)
	}
	if err := w.client.Set(ctx, latestKeyPrefix+instID, payload, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis set latest %s: %w", instID, err)
	}
	return nil
}

// AppendSignal appends a signal event to the kdj:signals stream, trimmed to
// an approximate max length.
func (w *Writer) AppendSignal(ctx context.Context, event model.SignalEvent) error {
	err := w.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: signalStream,
		MaxLen: signalStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"inst_id": event.InstID,
			"ts":      event.Point.TS,
			"k":       event.Point.K,
			"d":       event.Point.D,
			"j":       event.Point.J,
			"matched": joinNames(event.Conditions),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd signal %s: %w", event.InstID, err)
	}
	return nil
}

// Close releases the Redis connection.
func (w *Writer) Close() error {
	return w.client.Close()
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}
