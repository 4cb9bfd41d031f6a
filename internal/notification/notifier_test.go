package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kdj-monitor/internal/model"
)

func sampleEvent() model.SignalEvent {
	return model.SignalEvent{
		InstID: "BTC-USDT-SWAP",
		Price:  65000.5,
		Point: model.IndicatorPoint{
			TS: 1756512000000, // 2025-08-30 00:00 UTC
			K:  92.1, D: 88.4, J: 99.5,
		},
		Conditions: []string{"cond2"},
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(sampleEvent())
	for _, want := range []string{
		"BTC-USDT-SWAP",
		"2025-08-30 00:00 UTC",
		"price: 65000.5",
		"K: 92.10  D: 88.40  J: 99.50",
		"matched: cond2",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestWebhookSend(t *testing.T) {
	var got struct {
		MsgType string `json:"msgtype"`
		Text    struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "s3cret")
	if err := n.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.MsgType != "text" {
		t.Errorf("msgtype = %q", got.MsgType)
	}
	if !strings.Contains(got.Text.Content, "BTC-USDT-SWAP") {
		t.Errorf("content = %q", got.Text.Content)
	}
	if auth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestWebhookSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "")
	if err := n.Send(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected an error for HTTP 429")
	}
}
