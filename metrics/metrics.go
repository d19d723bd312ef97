// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus collectors for listing searches.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search kinds.
const (
	KindName     = "name"
	KindLocation = "location"
)

// Failure stages.
const (
	StageRemembered = "remembered"
	StageResolve    = "resolve"
	StageRateLimit  = "rate_limit"
	StageQuota      = "quota"
	StageTimeout    = "timeout"
	StageFetch      = "fetch"
)

type metrics struct {
	searchesTotal  *prometheus.CounterVec
	failuresTotal  *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	organisations  prometheus.Gauge
	discardedTotal prometheus.Counter
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		searchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orglisting",
			Name:      "searches_total",
			Help:      "Total number of listing searches.",
		}, []string{"kind"}),
		failuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orglisting",
			Name:      "failures_total",
			Help:      "Total number of failed listing operations.",
		}, []string{"stage"}),
		fetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orglisting",
			Name:      "fetch_duration_seconds",
			Help:      "Latency distribution of search endpoint requests.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		organisations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "orglisting",
			Name:      "organisations",
			Help:      "Number of organisations in the current result set.",
		}),
		discardedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "orglisting",
			Name:      "discarded_responses_total",
			Help:      "Responses dropped because a newer search superseded them.",
		}),
	}
})

// Search counts a search of the given kind.
func Search(kind string) {
	metricsSingleton().searchesTotal.WithLabelValues(kind).Inc()
}

// Failure counts a failure at the given stage.
func Failure(stage string) {
	metricsSingleton().failuresTotal.WithLabelValues(stage).Inc()
}

// ObserveFetch records the duration of a search endpoint request.
func ObserveFetch(kind string, d time.Duration) {
	metricsSingleton().fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// Organisations sets the size of the current result set.
func Organisations(n int) {
	metricsSingleton().organisations.Set(float64(n))
}

// Discarded counts a superseded response.
func Discarded() {
	metricsSingleton().discardedTotal.Inc()
}

// Handler serves the default registry, listing collectors included.
func Handler() http.Handler {
	metricsSingleton()

	return promhttp.Handler()
}
