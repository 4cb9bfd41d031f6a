package okx

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kdj-monitor/internal/model"
)

const (
	// DefaultBaseURL is the production OKX REST endpoint.
	DefaultBaseURL = "https://www.okx.com"

	candlesPath     = "/api/v5/market/candles"
	instrumentsPath = "/api/v5/public/instruments"

	defaultTimeout = 10 * time.Second
)

// Client fetches candle history and instrument listings from OKX.
// Safe for concurrent use; the underlying http.Client handles pooling.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL. An empty baseURL uses
// the production endpoint; timeout <= 0 uses the 10s default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// envelope is the OKX v5 response wrapper. Candle rows are arrays of strings:
// [ts, open, high, low, close, vol, ...].
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Candles fetches up to limit bars for one instrument, most recent first on
// the wire, returned ascending by open time with duplicate timestamps
// removed. Malformed rows are skipped, not fatal.
func (c *Client) Candles(ctx context.Context, instID, bar string, limit int) ([]model.Candle, error) {
	return c.candlesPage(ctx, instID, bar, limit, 0, 0)
}

// candlesPage is Candles with optional pagination cursors. after requests
// rows strictly older than the given ms timestamp; before, strictly newer.
// Zero disables a cursor.
func (c *Client) candlesPage(ctx context.Context, instID, bar string, limit int, after, before int64) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("bar", bar)
	q.Set("limit", strconv.Itoa(limit))
	if after > 0 {
		q.Set("after", strconv.FormatInt(after, 10))
	}
	if before > 0 {
		q.Set("before", strconv.FormatInt(before, 10))
	}

	env, err := c.get(ctx, candlesPath, q)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, &DataShapeError{Reason: "candles payload is not an array of rows: " + err.Error()}
	}

	candles := make([]model.Candle, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		candle, err := parseRow(row)
		if err != nil {
			skipped++
			continue
		}
		candles = append(candles, candle)
	}
	if skipped > 0 {
		log.Printf("[okx] %s: skipped %d malformed candle rows", instID, skipped)
	}
	if len(candles) == 0 && len(rows) > 0 {
		return nil, &DataShapeError{Reason: "no parseable candle rows"}
	}

	return model.SortCandles(candles), nil
}

// Instruments returns the instIds of all live instruments of the given type
// (e.g. "SWAP").
func (c *Client) Instruments(ctx context.Context, instType string) ([]string, error) {
	q := url.Values{}
	q.Set("instType", instType)

	env, err := c.get(ctx, instrumentsPath, q)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		InstID string `json:"instId"`
		State  string `json:"state"`
	}
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, &DataShapeError{Reason: "instruments payload: " + err.Error()}
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.State != "" && e.State != "live" {
			continue
		}
		ids = append(ids, e.InstID)
	}
	return ids, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Code: strconv.Itoa(resp.StatusCode), Msg: resp.Status}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransportError{Op: "decode " + path, Err: err}
	}
	if env.Code != "0" {
		return nil, &ProviderError{Code: env.Code, Msg: env.Msg}
	}
	return &env, nil
}

// parseRow converts one OKX candle row [ts,o,h,l,c,vol,...] into a Candle.
func parseRow(row []string) (model.Candle, error) {
	if len(row) < 6 {
		return model.Candle{}, &DataShapeError{Reason: "row has fewer than 6 fields"}
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.Candle{}, &DataShapeError{Reason: "bad timestamp " + row[0]}
	}
	vals := [5]float64{}
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return model.Candle{}, &DataShapeError{Reason: "bad numeric field " + row[i+1]}
		}
		vals[i] = v
	}
	return model.Candle{
		TS:     ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
