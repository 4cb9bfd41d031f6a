package model

import "encoding/json"

// IndicatorPoint is one RSV/K/D/J sample, aligned 1:1 with the input candle.
// RSV is always in [0,100]; K, D and J are not clamped. J in particular
// overshoots [0,100] by construction (J = 3K - 2D).
type IndicatorPoint struct {
	TS  int64   `json:"ts"` // candle open time, ms since epoch
	RSV float64 `json:"rsv"`
	K   float64 `json:"k"`
	D   float64 `json:"d"`
	J   float64 `json:"j"`
}

// IndicatorRow is the persisted shape: the source candle joined with its
// indicator point. One row per candle per instrument.
type IndicatorRow struct {
	InstID string  `json:"inst_id"`
	TS     int64   `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	RSV    float64 `json:"rsv"`
	K      float64 `json:"k"`
	D      float64 `json:"d"`
	J      float64 `json:"j"`
}

// FetchResult is the per-instrument outcome of one fetch cycle: either an
// ascending candle series or the error that prevented it. Immutable once
// produced by the fetcher.
type FetchResult struct {
	InstID  string
	Candles []Candle
	Err     error
}

// Ok reports whether the fetch succeeded.
func (r *FetchResult) Ok() bool { return r.Err == nil }

// SignalEvent is emitted when an instrument's latest indicator point matches
// at least one configured condition. Created once per cycle per matching
// instrument, handed to the notifier and then discarded.
type SignalEvent struct {
	InstID     string         `json:"inst_id"`
	Price      float64        `json:"price"` // latest close
	Point      IndicatorPoint `json:"point"`
	Conditions []string       `json:"conditions"` // matched condition names, in table order
}

// JSON returns the JSON-encoded event (ignoring errors for hot-path usage).
func (e *SignalEvent) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}
