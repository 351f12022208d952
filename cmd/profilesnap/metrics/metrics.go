// Package metrics provides Prometheus metrics instrumentation for profilesnap.
//
// In watch mode the metrics are served on /metrics; one-shot runs can push
// them to a Pushgateway before exiting.
//
// Metrics exposed:
//   - profilesnap_fetch_total: Counter of fetches by source, category and outcome
//   - profilesnap_fetch_duration_seconds: Histogram of upstream request latency by source
//   - profilesnap_snapshot_version: Gauge of the last version written per category
//   - profilesnap_publish_total: Counter of git steps by step and status
//   - profilesnap_errors_total: Counter of errors by component and reason
//   - profilesnap_last_run_timestamp_seconds: Gauge of the last completed run
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

type Metrics struct {
	FetchTotal       *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	SnapshotVersion  *prometheus.GaugeVec
	PublishTotal     *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
}

// New registers the profilesnap metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profilesnap_fetch_total",
			Help: "Total number of category fetches by source, category and outcome",
		}, []string{"source", "category", "outcome"}),

		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profilesnap_fetch_duration_seconds",
			Help:    "Duration of upstream profile requests by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),

		SnapshotVersion: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "profilesnap_snapshot_version",
			Help: "Version number of the last snapshot written per category",
		}, []string{"category"}),

		PublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profilesnap_publish_total",
			Help: "Total number of git commit and push steps by status",
		}, []string{"step", "status"}),

		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profilesnap_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),

		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "profilesnap_last_run_timestamp_seconds",
			Help: "Unix time at which the last run finished",
		}),
	}
}

func (m *Metrics) RecordFetch(source, category, outcome string, seconds float64) {
	m.FetchTotal.WithLabelValues(source, category, outcome).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(seconds)
}

func (m *Metrics) SetSnapshotVersion(category string, version int) {
	m.SnapshotVersion.WithLabelValues(category).Set(float64(version))
}

func (m *Metrics) RecordPublish(step, status string) {
	m.PublishTotal.WithLabelValues(step, status).Inc()
}

func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func (m *Metrics) MarkRun(t time.Time) {
	m.LastRunTimestamp.Set(float64(t.Unix()))
}

// Push sends everything gathered by g to the Pushgateway at url under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
