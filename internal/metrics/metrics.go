package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the KDJ monitor.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	FetchOKTotal    prometheus.Counter
	FetchFailTotal  prometheus.Counter
	SignalsTotal    *prometheus.CounterVec // labels: condition
	NotifyFailTotal prometheus.Counter

	FetchDur   prometheus.Histogram
	ComputeDur prometheus.Histogram
	CycleDur   prometheus.Histogram

	LastCycleTS prometheus.Gauge
	Instruments prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdjmonitor_cycles_total",
			Help: "Total pipeline cycles started",
		}),
		FetchOKTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdjmonitor_fetch_ok_total",
			Help: "Per-instrument candle fetches that succeeded",
		}),
		FetchFailTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdjmonitor_fetch_fail_total",
			Help: "Per-instrument candle fetches that failed",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kdjmonitor_signals_total",
			Help: "Signal events emitted (by condition name)",
		}, []string{"condition"}),
		NotifyFailTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdjmonitor_notify_fail_total",
			Help: "Signal notifications that failed to deliver",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kdjmonitor_fetch_duration_seconds",
			Help:    "Wall time of the fetch stage per cycle",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kdjmonitor_compute_duration_seconds",
			Help:    "Wall time of the compute+evaluate stage per cycle",
			Buckets: prometheus.DefBuckets,
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kdjmonitor_cycle_duration_seconds",
			Help:    "Total wall time per cycle",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}),
		LastCycleTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kdjmonitor_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		}),
		Instruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kdjmonitor_instruments",
			Help: "Number of instruments in the watched universe",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.FetchOKTotal,
		m.FetchFailTotal,
		m.SignalsTotal,
		m.NotifyFailTotal,
		m.FetchDur,
		m.ComputeDur,
		m.CycleDur,
		m.LastCycleTS,
		m.Instruments,
	)

	return m
}

// Serve starts the /metrics HTTP endpoint in a goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[metrics] server stopped: %v", err)
		}
	}()
	log.Printf("[metrics] serving on %s/metrics", addr)
}
