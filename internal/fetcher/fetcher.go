// Package fetcher retrieves candle history for many instruments under a
// concurrency cap and a best-effort requests-per-second cap.
//
// Instruments are split into consecutive batches of ratePerSecond. Inside a
// batch at most concurrency requests run at once; after a batch completes,
// the remainder of its one-second budget is slept off before the next batch
// starts. Bursts across batch boundaries are tolerated: this is pacing, not
// a token bucket.
package fetcher

import (
	"context"
	"log"
	"sync"
	"time"

	"kdj-monitor/internal/model"
)

// CandleSource is the paginated read-only candle provider the fetcher
// consumes. Implementations must honor ctx and return candles ascending by
// open time.
type CandleSource interface {
	Candles(ctx context.Context, instID, bar string, limit int) ([]model.Candle, error)
}

// Options controls one fetch pass.
type Options struct {
	Bar           string // bar period, e.g. "1H"
	Limit         int    // candles per instrument
	Concurrency   int    // max in-flight requests inside a batch
	RatePerSecond int    // batch size; one batch per second
}

func (o Options) normalized() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.RatePerSecond < 1 {
		o.RatePerSecond = 1
	}
	if o.Limit < 1 {
		o.Limit = 1
	}
	return o
}

// Fetcher runs rate-limited concurrent fetches against a CandleSource.
// No retries: a failed request is recorded as an error result and retry
// policy stays with the caller.
type Fetcher struct {
	source CandleSource
}

// New creates a Fetcher over the given source.
func New(source CandleSource) *Fetcher {
	return &Fetcher{source: source}
}

// FetchAll fetches candle history for every instrument and returns one
// FetchResult per instrument that was attempted. Per-instrument failures
// never abort the batch or the pass. On cancellation no new batch is
// started; results already produced are returned, and in-flight requests are
// recorded with their cancellation error.
func (f *Fetcher) FetchAll(ctx context.Context, instIDs []string, opts Options) map[string]model.FetchResult {
	opts = opts.normalized()
	results := make(map[string]model.FetchResult, len(instIDs))

	sem := make(chan struct{}, opts.Concurrency)
	batches := (len(instIDs) + opts.RatePerSecond - 1) / opts.RatePerSecond

	for b := 0; b < len(instIDs); b += opts.RatePerSecond {
		if ctx.Err() != nil {
			log.Printf("[fetcher] cancelled before batch %d/%d, returning %d results",
				b/opts.RatePerSecond+1, batches, len(results))
			return results
		}

		end := b + opts.RatePerSecond
		if end > len(instIDs) {
			end = len(instIDs)
		}
		batch := instIDs[b:end]
		batchStart := time.Now()

		// Each task writes exactly one slot it owns; the map is merged
		// only after the batch's goroutines are done.
		batchResults := make([]model.FetchResult, len(batch))
		var wg sync.WaitGroup
		for i, instID := range batch {
			wg.Add(1)
			go func(i int, instID string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				candles, err := f.source.Candles(ctx, instID, opts.Bar, opts.Limit)
				batchResults[i] = model.FetchResult{InstID: instID, Candles: candles, Err: err}
			}(i, instID)
		}
		wg.Wait()

		for _, r := range batchResults {
			results[r.InstID] = r
		}

		// Sleep off the rest of this batch's second, unless it was the last
		// batch or the context ended meanwhile.
		if end < len(instIDs) {
			if remain := time.Second - time.Since(batchStart); remain > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(remain):
				}
			}
		}
	}

	return results
}

// Counts tallies a result map into succeeded and failed instrument counts.
func Counts(results map[string]model.FetchResult) (ok, failed int) {
	for _, r := range results {
		if r.Ok() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
