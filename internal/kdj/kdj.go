// Package kdj computes the smoothed stochastic oscillator (RSV/K/D/J) over
// an ordered candle series.
//
// RSV is computed uniformly: rolling low/high over a trailing window of
// rsvPeriod bars, shrinking at the start of the series, with a flat window
// (high == low) defined as neutral RSV 50. The smoothing that turns RSV into
// K and D is where real-world implementations disagree, so it is selected by
// name as a SeedStrategy. The strategies produce materially different K/D/J
// trajectories for the same input, especially over short series; the default
// matches the common fixed-50 seeding.
package kdj

import (
	"fmt"

	"kdj-monitor/internal/model"
)

// SeedStrategy selects the K/D initialization and smoothing policy.
type SeedStrategy string

const (
	// SeedClassic seeds K0 = D0 = 50 regardless of RSV0 and applies the
	// (2/3, 1/3) recurrence from the second bar. The canonical default.
	SeedClassic SeedStrategy = "classic"

	// SeedFirstRSV seeds K0 = D0 = RSV0.
	SeedFirstRSV SeedStrategy = "first-rsv"

	// SeedRollingAvg seeds K0 = D0 with the mean of the first min(3, n)
	// RSV values.
	SeedRollingAvg SeedStrategy = "rolling-avg"

	// SmoothSMA replaces the recurrence entirely: K is a 3-bar simple
	// moving average of RSV and D a 3-bar SMA of K, both shrinking at the
	// series start.
	SmoothSMA SeedStrategy = "sma"

	// SmoothEMA replaces the recurrence with span-3 exponential averages
	// (alpha = 1/2): K over RSV, D over K.
	SmoothEMA SeedStrategy = "ema"
)

// ParseSeedStrategy maps a configuration string to a strategy.
func ParseSeedStrategy(s string) (SeedStrategy, error) {
	switch SeedStrategy(s) {
	case SeedClassic, SeedFirstRSV, SeedRollingAvg, SmoothSMA, SmoothEMA:
		return SeedStrategy(s), nil
	case "":
		return SeedClassic, nil
	}
	return "", fmt.Errorf("kdj: unknown seed strategy %q", s)
}

// Engine computes indicator series for one configuration. Stateless across
// calls: Compute is a pure function of its input, identical series in,
// bit-identical series out. Independent instruments can be computed in
// parallel with separate or shared Engines.
type Engine struct {
	period   int
	strategy SeedStrategy
}

// NewEngine creates an engine with the given RSV period and strategy.
func NewEngine(period int, strategy SeedStrategy) (*Engine, error) {
	if period < 1 {
		return nil, fmt.Errorf("kdj: rsv period must be >= 1, got %d", period)
	}
	if _, err := ParseSeedStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if strategy == "" {
		strategy = SeedClassic
	}
	return &Engine{period: period, strategy: strategy}, nil
}

// Compute produces one IndicatorPoint per candle, in series order. A series
// shorter than the RSV period is not an error: the window shrinks. K, D and
// J are never clamped.
func (e *Engine) Compute(candles []model.Candle) []model.IndicatorPoint {
	n := len(candles)
	if n == 0 {
		return nil
	}

	rsv := make([]float64, n)
	for i := range candles {
		lo, hi := e.window(candles, i)
		if hi == lo {
			rsv[i] = 50.0 // flat market is neutral
		} else {
			rsv[i] = (candles[i].Close - lo) / (hi - lo) * 100.0
		}
	}

	var k, d []float64
	switch e.strategy {
	case SmoothSMA:
		k = sma3(rsv)
		d = sma3(k)
	case SmoothEMA:
		k = ema3(rsv)
		d = ema3(k)
	default:
		k, d = e.recur(rsv)
	}

	points := make([]model.IndicatorPoint, n)
	for i := range points {
		points[i] = model.IndicatorPoint{
			TS:  candles[i].TS,
			RSV: rsv[i],
			K:   k[i],
			D:   d[i],
			J:   3*k[i] - 2*d[i],
		}
	}
	return points
}

// window returns the rolling low/high over the trailing period ending at i.
func (e *Engine) window(candles []model.Candle, i int) (lo, hi float64) {
	start := i - e.period + 1
	if start < 0 {
		start = 0
	}
	lo, hi = candles[start].Low, candles[start].High
	for _, c := range candles[start+1 : i+1] {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
	}
	return lo, hi
}

// recur applies K = (2/3)K' + (1/3)RSV and D = (2/3)D' + (1/3)K with the
// strategy's seed at index 0.
func (e *Engine) recur(rsv []float64) (k, d []float64) {
	k = make([]float64, len(rsv))
	d = make([]float64, len(rsv))

	seed := 50.0
	switch e.strategy {
	case SeedFirstRSV:
		seed = rsv[0]
	case SeedRollingAvg:
		n := 3
		if len(rsv) < n {
			n = len(rsv)
		}
		sum := 0.0
		for _, v := range rsv[:n] {
			sum += v
		}
		seed = sum / float64(n)
	}

	k[0], d[0] = seed, seed
	for i := 1; i < len(rsv); i++ {
		k[i] = (2.0/3.0)*k[i-1] + (1.0/3.0)*rsv[i]
		d[i] = (2.0/3.0)*d[i-1] + (1.0/3.0)*k[i]
	}
	return k, d
}

// sma3 is a 3-value simple moving average with a shrinking head window.
func sma3(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		start := i - 2
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for _, v := range vals[start : i+1] {
			sum += v
		}
		out[i] = sum / float64(i+1-start)
	}
	return out
}

// ema3 is a span-3 exponential moving average (alpha = 1/2), seeded with the
// first value.
func ema3(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = 0.5*vals[i] + 0.5*out[i-1]
	}
	return out
}
