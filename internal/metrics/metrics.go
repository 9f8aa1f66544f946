// Package metrics exposes Prometheus collectors for archive runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsTotal   *prometheus.CounterVec
	fetchRetries   prometheus.Counter
	renderAttempts *prometheus.CounterVec
	activeWorkers  prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preserver_records_total",
				Help: "Records processed, labeled by outcome (validated, quarantined, failed, no_candidate).",
			},
			[]string{"outcome"},
		)
		fetchRetries = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "preserver_fetch_retries_total",
				Help: "Backoff retries spent across all candidate URL attempts.",
			},
		)
		renderAttempts = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preserver_render_attempts_total",
				Help: "Renderer bridge invocations, labeled by result (ok, failed).",
			},
			[]string{"result"},
		)
		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "preserver_active_workers",
				Help: "Workers currently processing a record.",
			},
		)
	})
}

// RecordOutcome counts one finished record.
func RecordOutcome(outcome string) {
	if recordsTotal != nil {
		recordsTotal.WithLabelValues(outcome).Inc()
	}
}

// FetchRetry counts one backoff retry.
func FetchRetry() {
	if fetchRetries != nil {
		fetchRetries.Inc()
	}
}

// RenderAttempt counts one renderer bridge invocation.
func RenderAttempt(ok bool) {
	if renderAttempts == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	renderAttempts.WithLabelValues(result).Inc()
}

// WorkerStarted and WorkerDone track pool occupancy.
func WorkerStarted() {
	if activeWorkers != nil {
		activeWorkers.Inc()
	}
}

// WorkerDone marks one worker as idle again.
func WorkerDone() {
	if activeWorkers != nil {
		activeWorkers.Dec()
	}
}
