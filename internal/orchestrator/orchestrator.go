// Package orchestrator drives one pipeline cycle: fetch candle history for
// the instrument universe, compute indicator series, evaluate the condition
// table against each instrument's latest point, and hand matches to the
// notifier and stores. Every stage tolerates partial failure; a stage-level
// error ends the cycle early and the orchestrator returns to Idle, keeping
// whatever work was already produced.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"kdj-monitor/internal/fetcher"
	"kdj-monitor/internal/kdj"
	"kdj-monitor/internal/metrics"
	"kdj-monitor/internal/model"
	"kdj-monitor/internal/notification"
	"kdj-monitor/internal/signal"
)

// State is the cycle state machine position. There is no failed terminal
// state: errors transition straight back to Idle.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateComputing
	StateEvaluating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateComputing:
		return "computing"
	case StateEvaluating:
		return "evaluating"
	}
	return "unknown"
}

// RowStore persists full indicator rows (SQLite in production).
type RowStore interface {
	WriteRows(rows []model.IndicatorRow) error
}

// LatestStore publishes per-instrument latest points and signal events
// (Redis in production).
type LatestStore interface {
	WriteLatest(ctx context.Context, instID string, point model.IndicatorPoint) error
	AppendSignal(ctx context.Context, event model.SignalEvent) error
}

// Config is the configuration surface the core consumes.
type Config struct {
	Bar            string
	CandleLimit    int
	RSVPeriod      int
	Seed           kdj.SeedStrategy
	Concurrency    int
	RatePerSecond  int
	ComputeWorkers int // 0 = GOMAXPROCS
	Conditions     []signal.Condition
	LiveMode       bool // also seed the live rolling series from each cycle
}

// Deps are the orchestrator's collaborators. Source and Notifier are
// required; stores and metrics are optional and skipped when nil.
type Deps struct {
	Source   fetcher.CandleSource
	Notifier notification.Notifier
	Rows     RowStore
	Latest   LatestStore
	Prom     *metrics.Metrics
}

// Report summarizes one cycle for logging and tests.
type Report struct {
	Instruments int
	FetchOK     int
	FetchFailed int
	Computed    int
	Signals     []model.SignalEvent
	Duration    time.Duration
}

// Orchestrator owns the per-cycle pipeline. It serializes the stages of one
// cycle but does not guard against overlapping cycles; the scheduler that
// triggers cycles is responsible for single-flight.
type Orchestrator struct {
	cfg    Config
	engine *kdj.Engine
	fetch  *fetcher.Fetcher
	deps   Deps

	state atomic.Int32

	// live-mode rolling series, keyed by instrument
	liveMu     sync.Mutex
	liveSeries map[string][]model.Candle
}

// New validates the configuration (the only fatal error class) and builds an
// Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("orchestrator: candle source is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("orchestrator: notifier is required")
	}
	if cfg.Bar == "" {
		return nil, fmt.Errorf("orchestrator: bar period is required")
	}
	if cfg.CandleLimit < 1 {
		return nil, fmt.Errorf("orchestrator: candle limit must be >= 1, got %d", cfg.CandleLimit)
	}
	if len(cfg.Conditions) == 0 {
		return nil, fmt.Errorf("orchestrator: condition table is empty")
	}
	if cfg.ComputeWorkers <= 0 {
		cfg.ComputeWorkers = runtime.GOMAXPROCS(0)
	}

	engine, err := kdj.NewEngine(cfg.RSVPeriod, cfg.Seed)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:        cfg,
		engine:     engine,
		fetch:      fetcher.New(deps.Source),
		deps:       deps,
		liveSeries: make(map[string][]model.Candle),
	}, nil
}

// State returns the current cycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// computed is one instrument's fetched candles joined with its indicator
// series, produced by the compute stage.
type computed struct {
	instID  string
	candles []model.Candle
	points  []model.IndicatorPoint
}

// RunCycle executes one Fetch → Compute → Evaluate pass over the given
// instruments and returns a report. It never panics across the stage
// boundary and never blocks beyond the fetch pacing plus per-request
// timeouts.
func (o *Orchestrator) RunCycle(ctx context.Context, instIDs []string) Report {
	start := time.Now()
	report := Report{Instruments: len(instIDs)}
	defer func() {
		report.Duration = time.Since(start)
		o.setState(StateIdle)
		if o.deps.Prom != nil {
			o.deps.Prom.CycleDur.Observe(report.Duration.Seconds())
			o.deps.Prom.LastCycleTS.SetToCurrentTime()
		}
	}()
	if o.deps.Prom != nil {
		o.deps.Prom.CyclesTotal.Inc()
	}

	// ---- Fetch ----
	o.setState(StateFetching)
	fetchStart := time.Now()
	results := o.fetch.FetchAll(ctx, instIDs, fetcher.Options{
		Bar:           o.cfg.Bar,
		Limit:         o.cfg.CandleLimit,
		Concurrency:   o.cfg.Concurrency,
		RatePerSecond: o.cfg.RatePerSecond,
	})
	report.FetchOK, report.FetchFailed = fetcher.Counts(results)
	if o.deps.Prom != nil {
		o.deps.Prom.FetchDur.Observe(time.Since(fetchStart).Seconds())
		o.deps.Prom.FetchOKTotal.Add(float64(report.FetchOK))
		o.deps.Prom.FetchFailTotal.Add(float64(report.FetchFailed))
	}
	log.Printf("[orchestrator] fetch done: %d ok, %d failed (of %d) in %v",
		report.FetchOK, report.FetchFailed, len(instIDs), time.Since(fetchStart))
	if ctx.Err() != nil {
		return report
	}

	// ---- Compute ----
	o.setState(StateComputing)
	computeStart := time.Now()
	series := o.computeAll(ctx, results)
	report.Computed = len(series)
	if o.deps.Prom != nil {
		o.deps.Prom.ComputeDur.Observe(time.Since(computeStart).Seconds())
	}

	if o.deps.Rows != nil {
		if err := o.persistRows(series); err != nil {
			log.Printf("[orchestrator] persist failed, ending cycle early: %v", err)
			return report
		}
	}
	if ctx.Err() != nil {
		return report
	}

	// ---- Evaluate ----
	o.setState(StateEvaluating)
	for _, c := range series {
		if o.cfg.LiveMode {
			o.SeedLive(c.instID, c.candles)
		}
		if event, ok := o.evaluateLatest(ctx, c); ok {
			report.Signals = append(report.Signals, event)
		}
	}
	log.Printf("[orchestrator] cycle done: %d computed, %d signals in %v",
		report.Computed, len(report.Signals), time.Since(start))
	return report
}

// computeAll runs the indicator engine across instruments on a bounded
// worker pool. Each instrument's series is independent, so workers share
// nothing but the input channel; results are merged after completion.
func (o *Orchestrator) computeAll(ctx context.Context, results map[string]model.FetchResult) []computed {
	in := make(chan model.FetchResult, len(results))
	for _, r := range results {
		if r.Ok() && len(r.Candles) > 0 {
			in <- r
		}
	}
	close(in)

	out := make(chan computed, len(results))
	var wg sync.WaitGroup
	workers := o.cfg.ComputeWorkers
	if workers > len(results) && len(results) > 0 {
		workers = len(results)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range in {
				if ctx.Err() != nil {
					return
				}
				out <- computed{
					instID:  r.InstID,
					candles: r.Candles,
					points:  o.engine.Compute(r.Candles),
				}
			}
		}()
	}
	wg.Wait()
	close(out)

	series := make([]computed, 0, len(results))
	for c := range out {
		series = append(series, c)
	}
	return series
}

func (o *Orchestrator) persistRows(series []computed) error {
	var rows []model.IndicatorRow
	for _, c := range series {
		for i, p := range c.points {
			candle := c.candles[i]
			rows = append(rows, model.IndicatorRow{
				InstID: c.instID,
				TS:     candle.TS,
				Open:   candle.Open,
				High:   candle.High,
				Low:    candle.Low,
				Close:  candle.Close,
				Volume: candle.Volume,
				RSV:    p.RSV,
				K:      p.K,
				D:      p.D,
				J:      p.J,
			})
		}
	}
	return o.deps.Rows.WriteRows(rows)
}

// evaluateLatest checks the newest point of one instrument against the
// condition table, publishes the latest point, and notifies on a match.
func (o *Orchestrator) evaluateLatest(ctx context.Context, c computed) (model.SignalEvent, bool) {
	latest := c.points[len(c.points)-1]

	if o.deps.Latest != nil {
		if err := o.deps.Latest.WriteLatest(ctx, c.instID, latest); err != nil {
			log.Printf("[orchestrator] latest write %s: %v", c.instID, err)
		}
	}

	matched := signal.Evaluate(latest, o.cfg.Conditions)
	if len(matched) == 0 {
		return model.SignalEvent{}, false
	}

	event := model.SignalEvent{
		InstID:     c.instID,
		Price:      c.candles[len(c.candles)-1].Close,
		Point:      latest,
		Conditions: matched,
	}
	if o.deps.Prom != nil {
		for _, name := range matched {
			o.deps.Prom.SignalsTotal.WithLabelValues(name).Inc()
		}
	}
	if o.deps.Latest != nil {
		if err := o.deps.Latest.AppendSignal(ctx, event); err != nil {
			log.Printf("[orchestrator] signal append %s: %v", c.instID, err)
		}
	}
	if err := o.deps.Notifier.Send(ctx, event); err != nil {
		log.Printf("[orchestrator] notify %s: %v", c.instID, err)
		if o.deps.Prom != nil {
			o.deps.Prom.NotifyFailTotal.Inc()
		}
	}
	return event, true
}
