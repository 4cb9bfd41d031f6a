package okx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// candleRow formats one wire row for an hourly candle at hour h with the
// given close. OKX serves numbers as strings, newest first.
func candleRow(h int, close float64) string {
	ts := int64(h) * 3600_000
	return fmt.Sprintf(`["%d","%g","%g","%g","%g","10","1000"]`, ts, close, close+1, close-1, close)
}

func okBody(rows ...string) string {
	body := `{"code":"0","msg":"","data":[`
	for i, r := range rows {
		if i > 0 {
			body += ","
		}
		body += r
	}
	return body + `]}`
}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 2*time.Second), srv
}

func TestCandlesParsesAndSorts(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("instId"); got != "BTC-USDT-SWAP" {
			t.Errorf("instId = %q", got)
		}
		if got := r.URL.Query().Get("bar"); got != "1H" {
			t.Errorf("bar = %q", got)
		}
		// Newest first, with hour 2 duplicated.
		fmt.Fprint(w, okBody(candleRow(3, 103), candleRow(2, 102), candleRow(2, 102), candleRow(1, 101)))
	})
	defer srv.Close()

	candles, err := c.Candles(context.Background(), "BTC-USDT-SWAP", "1H", 30)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 deduplicated candles, got %d", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].TS <= candles[i-1].TS {
			t.Errorf("candles not strictly ascending at %d: %d then %d", i, candles[i-1].TS, candles[i].TS)
		}
	}
	if candles[0].Close != 101 || candles[2].Close != 103 {
		t.Errorf("wrong ordering: closes %v, %v", candles[0].Close, candles[2].Close)
	}
}

func TestCandlesProviderError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)
	})
	defer srv.Close()

	_, err := c.Candles(context.Background(), "NOPE-USDT", "1H", 30)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %T: %v", err, err)
	}
	if perr.Code != "51001" {
		t.Errorf("Code = %q, want 51001", perr.Code)
	}
}

func TestCandlesHTTPError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unhappy", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := c.Candles(context.Background(), "BTC-USDT-SWAP", "1H", 30)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError for HTTP 502, got %T: %v", err, err)
	}
	if perr.Code != "502" {
		t.Errorf("Code = %q, want 502", perr.Code)
	}
}

func TestCandlesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // refuse connections
	c := NewClient(srv.URL, time.Second)

	_, err := c.Candles(context.Background(), "BTC-USDT-SWAP", "1H", 30)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
}

func TestCandlesSkipsMalformedRows(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okBody(
			candleRow(2, 102),
			`["garbage","x","x","x","x","x"]`,
			`["3600000","101"]`,
			candleRow(1, 101),
		))
	})
	defer srv.Close()

	candles, err := c.Candles(context.Background(), "BTC-USDT-SWAP", "1H", 30)
	if err != nil {
		t.Fatalf("malformed rows should be skipped, not fatal: %v", err)
	}
	if len(candles) != 2 {
		t.Errorf("expected 2 good candles, got %d", len(candles))
	}
}

func TestCandlesAllRowsMalformed(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okBody(`["bad","1","1","1","1","1"]`))
	})
	defer srv.Close()

	_, err := c.Candles(context.Background(), "BTC-USDT-SWAP", "1H", 30)
	var derr *DataShapeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DataShapeError when nothing parses, got %T: %v", err, err)
	}
}

func TestInstrumentsFiltersLive(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("instType"); got != "SWAP" {
			t.Errorf("instType = %q", got)
		}
		fmt.Fprint(w, `{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT-SWAP","state":"live"},
			{"instId":"OLD-USDT-SWAP","state":"suspend"},
			{"instId":"ETH-USDT-SWAP","state":"live"}
		]}`)
	})
	defer srv.Close()

	ids, err := c.Instruments(context.Background(), "SWAP")
	if err != nil {
		t.Fatalf("Instruments: %v", err)
	}
	want := []string{"BTC-USDT-SWAP", "ETH-USDT-SWAP"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
