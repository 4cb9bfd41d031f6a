package orchestrator

import (
	"context"
	"log"

	"kdj-monitor/internal/model"
	"kdj-monitor/internal/okx"
)

// RunLive consumes confirmed candles from the websocket feed, maintains a
// rolling per-instrument series capped at the configured candle limit, and
// recomputes and evaluates on every closed bar. Blocks until ctx is
// cancelled or in is closed.
//
// Each instrument's series is touched only from this goroutine; the mutex
// exists because SeedLive may be called while the loop runs.
func (o *Orchestrator) RunLive(ctx context.Context, in <-chan okx.InstrumentCandle) {
	for {
		select {
		case <-ctx.Done():
			return
		case ic, ok := <-in:
			if !ok {
				return
			}
			o.onLiveCandle(ctx, ic)
		}
	}
}

// SeedLive primes an instrument's rolling series with fetched history so the
// first live bar does not compute over a near-empty window.
func (o *Orchestrator) SeedLive(instID string, candles []model.Candle) {
	o.liveMu.Lock()
	defer o.liveMu.Unlock()
	series := append([]model.Candle(nil), candles...)
	if len(series) > o.cfg.CandleLimit {
		series = series[len(series)-o.cfg.CandleLimit:]
	}
	o.liveSeries[instID] = series
}

func (o *Orchestrator) onLiveCandle(ctx context.Context, ic okx.InstrumentCandle) {
	o.liveMu.Lock()
	series := o.liveSeries[ic.InstID]
	if n := len(series); n > 0 && series[n-1].TS >= ic.Candle.TS {
		if series[n-1].TS == ic.Candle.TS {
			series[n-1] = ic.Candle // re-confirmed bar, take the newer row
		}
		// older than the tail: out-of-order push, drop it
	} else {
		series = append(series, ic.Candle)
		if len(series) > o.cfg.CandleLimit {
			series = series[len(series)-o.cfg.CandleLimit:]
		}
	}
	o.liveSeries[ic.InstID] = series
	snapshot := append([]model.Candle(nil), series...)
	o.liveMu.Unlock()

	points := o.engine.Compute(snapshot)
	if len(points) == 0 {
		return
	}
	if _, ok := o.evaluateLatest(ctx, computed{instID: ic.InstID, candles: snapshot, points: points}); ok {
		log.Printf("[orchestrator] live signal for %s at %d", ic.InstID, ic.Candle.TS)
	}
}
