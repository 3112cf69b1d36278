// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability exposes Prometheus metrics and the tracing
// setup for the API service.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stable Prometheus metrics for the API service.
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippetia_http_requests_total",
			Help: "HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snippetia_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	scannerFindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippetia_scanner_findings_total",
			Help: "Security scanner findings by severity",
		},
		[]string{"severity"},
	)

	scannerVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippetia_scanner_verdicts_total",
			Help: "Security scanner verdicts by outcome",
		},
		[]string{"verdict"},
	)

	paymentChargesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippetia_payment_charges_total",
			Help: "Payment charge attempts by outcome",
		},
		[]string{"outcome"},
	)

	feedConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snippetia_feed_connections",
			Help: "Currently connected feed websocket clients",
		},
	)

	openReports = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snippetia_open_reports",
			Help: "Moderation reports awaiting review",
		},
	)
)

// ObserveScan records one scanner result.
func ObserveScan(verdict string, severities []string) {
	scannerVerdictsTotal.WithLabelValues(verdict).Inc()
	for _, sev := range severities {
		scannerFindingsTotal.WithLabelValues(sev).Inc()
	}
}

// ObserveCharge records one payment charge outcome
// ("settled", "declined", or "error").
func ObserveCharge(outcome string) {
	paymentChargesTotal.WithLabelValues(outcome).Inc()
}

// SetFeedConnections updates the feed connection gauge. Wire it to the
// hub's count callback.
func SetFeedConnections(n int) {
	feedConnections.Set(float64(n))
}

// SetOpenReports updates the open report gauge.
func SetOpenReports(n int64) {
	openReports.Set(float64(n))
}

// MetricsMiddleware records request counts and latency per route. The
// route template is used instead of the raw path so /v1/snippets/:id
// stays one series.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, route,
			strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, route).
			Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
