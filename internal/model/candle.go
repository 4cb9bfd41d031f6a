package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Candle represents one OHLCV bar for a single instrument.
// Prices are float64 as delivered by the exchange; TS is the bar open time
// in milliseconds since epoch (UTC).
type Candle struct {
	TS     int64   `json:"ts"` // bar open time, ms since epoch
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Time returns the bar open time as a time.Time in UTC.
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.TS).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// SortCandles orders candles ascending by open time and drops duplicate
// timestamps in place, keeping the first occurrence. The exchange delivers
// newest-first pages; everything downstream assumes strictly increasing TS.
func SortCandles(candles []Candle) []Candle {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].TS < candles[j].TS })
	out := candles[:0]
	var lastTS int64 = -1
	for _, c := range candles {
		if c.TS == lastTS {
			continue
		}
		out = append(out, c)
		lastTS = c.TS
	}
	return out
}
