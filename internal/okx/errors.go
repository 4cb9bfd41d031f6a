// Package okx is a thin client for the OKX v5 public market-data API:
// candle history over REST (with cursor pagination) and the business
// websocket candle channel. Only unauthenticated endpoints are used.
package okx

import "fmt"

// TransportError is a network-level failure for a single request: dial,
// timeout, or a broken response body. Recorded per instrument, never fatal.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("okx: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError is a non-success status in the OKX response envelope
// (top-level code != "0") or an unexpected HTTP status.
type ProviderError struct {
	Code string
	Msg  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("okx: provider code=%s msg=%q", e.Code, e.Msg)
}

// DataShapeError is a malformed candle row or payload. Individual bad rows
// are skipped; this error surfaces only when nothing usable remains.
type DataShapeError struct {
	Reason string
}

func (e *DataShapeError) Error() string {
	return "okx: data shape: " + e.Reason
}
