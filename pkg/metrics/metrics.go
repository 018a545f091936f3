// Package metrics provides Prometheus metrics for the economic primitives.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PriceUpdatesTotal is a counter of price reports posted by sources.
	PriceUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_updates_total",
			Help: "Total number of price reports posted by trusted sources",
		},
		[]string{"source", "symbol"},
	)

	// ConsensusQueriesTotal is a counter of consensus price computations.
	ConsensusQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_queries_total",
			Help: "Total number of consensus price computations",
		},
		[]string{"symbol"},
	)

	// ConsensusDuration is a histogram of consensus computation duration.
	ConsensusDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consensus_duration_seconds",
			Help:    "Duration of consensus price computations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	// TradesTotal is a counter of completed marketplace trades.
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_total",
			Help: "Total number of completed marketplace trades",
		},
		[]string{"side"},
	)

	// BorrowsTotal is a counter of completed lending pool draws.
	BorrowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "borrows_total",
			Help: "Total number of completed lending pool draws",
		},
	)

	// RevertedCallsTotal is a counter of calls that failed and rolled back.
	RevertedCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reverted_calls_total",
			Help: "Total number of calls that failed and rolled back all state",
		},
		[]string{"component", "operation"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(
		PriceUpdatesTotal,
		ConsensusQueriesTotal,
		ConsensusDuration,
		TradesTotal,
		BorrowsTotal,
		RevertedCallsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordPriceUpdate records a price report from a trusted source.
func RecordPriceUpdate(source, symbol string) {
	PriceUpdatesTotal.WithLabelValues(source, symbol).Inc()
}

// RecordConsensus records a consensus price computation.
func RecordConsensus(symbol string, duration time.Duration) {
	ConsensusQueriesTotal.WithLabelValues(symbol).Inc()
	ConsensusDuration.WithLabelValues(symbol).Observe(duration.Seconds())
}

// RecordTrade records a completed marketplace trade ("buy" or "sell").
func RecordTrade(side string) {
	TradesTotal.WithLabelValues(side).Inc()
}

// RecordBorrow records a completed lending pool draw.
func RecordBorrow() {
	BorrowsTotal.Inc()
}

// RecordRevert records a failed call that rolled back its effects.
func RecordRevert(component, operation string) {
	RevertedCallsTotal.WithLabelValues(component, operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
