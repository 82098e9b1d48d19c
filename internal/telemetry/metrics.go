/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveStreams tracks the number of relay sessions with a live encoder.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_active_streams",
		Help: "Number of currently active relay streams.",
	})

	// StreamStartsTotal counts successfully started streams per station.
	StreamStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_stream_starts_total",
		Help: "Total relay streams started.",
	}, []string{"station"})

	// StreamErrorsTotal counts failed stream requests by failure class.
	StreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_stream_errors_total",
		Help: "Total stream requests that failed before or during relay.",
	}, []string{"reason"})

	// CatalogRequestDuration observes upstream catalog call latency.
	CatalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_catalog_request_duration_seconds",
		Help:    "Latency of upstream catalog requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// APIRequestsTotal counts HTTP requests served by the relay.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_http_requests_total",
		Help: "Total HTTP requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
