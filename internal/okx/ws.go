package okx

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"kdj-monitor/internal/model"
)

const (
	// DefaultWSURL is the OKX business websocket, which carries the
	// candle channels.
	DefaultWSURL = "wss://ws.okx.com:8443/ws/v5/business"

	wsPingInterval   = 20 * time.Second
	wsReadDeadline   = 30 * time.Second
	wsReconnectDelay = 5 * time.Second
)

// InstrumentCandle pairs a confirmed candle with its instrument.
type InstrumentCandle struct {
	InstID string
	Candle model.Candle
}

// WSClient streams confirmed candles from the OKX candle channel.
// One connection serves all subscribed instruments.
type WSClient struct {
	url    string
	dialer *websocket.Dialer
}

// NewWSClient creates a websocket client. An empty url uses the production
// endpoint.
func NewWSClient(url string) *WSClient {
	if url == "" {
		url = DefaultWSURL
	}
	return &WSClient{url: url, dialer: websocket.DefaultDialer}
}

type wsSubscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type wsRequest struct {
	Op   string           `json:"op"`
	Args []wsSubscribeArg `json:"args"`
}

type wsPush struct {
	Event string `json:"event,omitempty"`
	Msg   string `json:"msg,omitempty"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data [][]string `json:"data"`
}

// Run connects, subscribes the given instruments on the candle channel for
// bar (e.g. "1H" → channel "candle1H"), and forwards confirmed candles to
// out. Reconnects with a fixed delay until ctx is cancelled.
func (w *WSClient) Run(ctx context.Context, instIDs []string, bar string, out chan<- InstrumentCandle) {
	for {
		if err := w.runOnce(ctx, instIDs, bar, out); err != nil && ctx.Err() == nil {
			log.Printf("[okx-ws] connection lost: %v, reconnecting in %s", err, wsReconnectDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wsReconnectDelay):
		}
	}
}

func (w *WSClient) runOnce(ctx context.Context, instIDs []string, bar string, out chan<- InstrumentCandle) error {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return &TransportError{Op: "ws dial", Err: err}
	}
	defer conn.Close()

	req := wsRequest{Op: "subscribe"}
	for _, id := range instIDs {
		req.Args = append(req.Args, wsSubscribeArg{Channel: "candle" + bar, InstID: id})
	}
	if err := conn.WriteJSON(req); err != nil {
		return &TransportError{Op: "ws subscribe", Err: err}
	}
	log.Printf("[okx-ws] subscribed %d instruments on candle%s", len(instIDs), bar)

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &TransportError{Op: "ws read", Err: err}
		}

		ic, ok, err := parsePush(raw)
		if err != nil {
			log.Printf("[okx-ws] dropping malformed push: %v", err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- ic:
		case <-ctx.Done():
			return nil
		}
	}
}

// parsePush extracts a confirmed candle from a channel push. Returns
// ok=false for pongs, subscribe acks, errors-with-event, and unconfirmed
// (still forming) candles. OKX appends a confirm flag as the row's last
// field: "1" means the bar is closed.
func parsePush(raw []byte) (InstrumentCandle, bool, error) {
	if string(raw) == "pong" {
		return InstrumentCandle{}, false, nil
	}
	var push wsPush
	if err := json.Unmarshal(raw, &push); err != nil {
		return InstrumentCandle{}, false, &DataShapeError{Reason: "ws push: " + err.Error()}
	}
	if push.Event != "" {
		if push.Event == "error" {
			return InstrumentCandle{}, false, &ProviderError{Code: push.Event, Msg: push.Msg}
		}
		return InstrumentCandle{}, false, nil // subscribe/unsubscribe ack
	}
	if len(push.Data) == 0 || push.Arg.InstID == "" {
		return InstrumentCandle{}, false, nil
	}

	row := push.Data[len(push.Data)-1]
	if len(row) < 7 {
		return InstrumentCandle{}, false, &DataShapeError{Reason: "ws candle row too short"}
	}
	if row[len(row)-1] != "1" {
		return InstrumentCandle{}, false, nil // bar still forming
	}
	candle, err := parseRow(row)
	if err != nil {
		return InstrumentCandle{}, false, err
	}
	return InstrumentCandle{InstID: push.Arg.InstID, Candle: candle}, true, nil
}
