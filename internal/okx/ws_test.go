package okx

import (
	"errors"
	"testing"
)

func TestParsePushConfirmedCandle(t *testing.T) {
	raw := []byte(`{"arg":{"channel":"candle1H","instId":"BTC-USDT-SWAP"},
		"data":[["3600000","100","110","95","105","12","1200","1"]]}`)

	ic, ok, err := parsePush(raw)
	if err != nil {
		t.Fatalf("parsePush: %v", err)
	}
	if !ok {
		t.Fatal("confirmed candle should be forwarded")
	}
	if ic.InstID != "BTC-USDT-SWAP" {
		t.Errorf("InstID = %q", ic.InstID)
	}
	if ic.Candle.TS != 3600000 || ic.Candle.Close != 105 {
		t.Errorf("candle = %+v", ic.Candle)
	}
}

func TestParsePushUnconfirmedCandle(t *testing.T) {
	raw := []byte(`{"arg":{"channel":"candle1H","instId":"BTC-USDT-SWAP"},
		"data":[["3600000","100","110","95","105","12","1200","0"]]}`)

	_, ok, err := parsePush(raw)
	if err != nil {
		t.Fatalf("parsePush: %v", err)
	}
	if ok {
		t.Error("a still-forming bar must not be forwarded")
	}
}

func TestParsePushTakesLastRow(t *testing.T) {
	// Pushes can batch rows; only the last one carries the freshest state.
	raw := []byte(`{"arg":{"channel":"candle1H","instId":"ETH-USDT-SWAP"},
		"data":[
			["3600000","10","11","9","10","1","100","1"],
			["7200000","10","12","9","11","1","100","1"]
		]}`)

	ic, ok, err := parsePush(raw)
	if err != nil || !ok {
		t.Fatalf("parsePush: ok=%v err=%v", ok, err)
	}
	if ic.Candle.TS != 7200000 {
		t.Errorf("TS = %d, want the newest row", ic.Candle.TS)
	}
}

func TestParsePushControlMessages(t *testing.T) {
	for _, raw := range []string{
		"pong",
		`{"event":"subscribe","arg":{"channel":"candle1H","instId":"BTC-USDT-SWAP"}}`,
		`{"arg":{"channel":"candle1H","instId":"BTC-USDT-SWAP"},"data":[]}`,
	} {
		_, ok, err := parsePush([]byte(raw))
		if err != nil {
			t.Errorf("%s: unexpected error %v", raw, err)
		}
		if ok {
			t.Errorf("%s: control message must not produce a candle", raw)
		}
	}
}

func TestParsePushErrorEvent(t *testing.T) {
	raw := []byte(`{"event":"error","msg":"channel does not exist"}`)

	_, ok, err := parsePush(raw)
	if ok {
		t.Error("error event must not produce a candle")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %T: %v", err, err)
	}
}

func TestParsePushShortRow(t *testing.T) {
	raw := []byte(`{"arg":{"channel":"candle1H","instId":"BTC-USDT-SWAP"},
		"data":[["3600000","100","1"]]}`)

	_, ok, err := parsePush(raw)
	if ok {
		t.Error("short row must not produce a candle")
	}
	var derr *DataShapeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DataShapeError, got %T: %v", err, err)
	}
}

func TestParsePushGarbage(t *testing.T) {
	_, ok, err := parsePush([]byte(`{not json`))
	if ok || err == nil {
		t.Errorf("garbage payload: ok=%v err=%v", ok, err)
	}
}
