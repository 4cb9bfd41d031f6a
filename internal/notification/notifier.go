// Package notification delivers signal events to external channels
// (generic webhooks, DingTalk-style bots) for matched indicator conditions.
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"kdj-monitor/internal/model"
)

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers a signal event. Returns error if delivery fails.
	Send(ctx context.Context, event model.SignalEvent) error
}

// FormatMessage renders a signal event as the human-readable push text.
func FormatMessage(event model.SignalEvent) string {
	ts := time.UnixMilli(event.Point.TS).UTC().Format("2006-01-02 15:04")
	var b strings.Builder
	fmt.Fprintf(&b, "KDJ signal: %s\n", event.InstID)
	fmt.Fprintf(&b, "time: %s UTC\n", ts)
	fmt.Fprintf(&b, "price: %g\n", event.Price)
	fmt.Fprintf(&b, "K: %.2f  D: %.2f  J: %.2f\n", event.Point.K, event.Point.D, event.Point.J)
	fmt.Fprintf(&b, "matched: %s", strings.Join(event.Conditions, ", "))
	return b.String()
}

// LogNotifier is a simple notifier that logs events (useful for development
// and as the fallback when no webhook is configured).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, event model.SignalEvent) error {
	log.Printf("[notify] %s K=%.2f D=%.2f J=%.2f matched=%v",
		event.InstID, event.Point.K, event.Point.D, event.Point.J, event.Conditions)
	return nil
}
