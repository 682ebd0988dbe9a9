// Package telemetry exports run metrics in the prometheus format.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imgconform/internal/domain"
)

// Metrics is a reporter that records case and run outcomes
type Metrics struct {
	registry *prometheus.Registry

	cases         *prometheus.CounterVec
	failures      *prometheus.CounterVec
	transform     prometheus.Histogram
	runs          *prometheus.CounterVec
	lastTotal     prometheus.Gauge
	lastPassed    prometheus.Gauge
	lastDuration  prometheus.Gauge
	lastTimestamp prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgconform_cases_total",
			Help: "Executed cases by verdict.",
		}, []string{"status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgconform_case_failures_total",
			Help: "Failed cases by failure kind.",
		}, []string{"kind"}),
		transform: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "imgconform_transform_duration_seconds",
			Help:    "Wall clock time of transform calls.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgconform_runs_total",
			Help: "Completed runs by outcome.",
		}, []string{"outcome"}),
		lastTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imgconform_last_run_cases",
			Help: "Cases executed by the last run.",
		}),
		lastPassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imgconform_last_run_passed_cases",
			Help: "Cases that passed in the last run.",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imgconform_last_run_duration_seconds",
			Help: "Duration of the last run.",
		}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imgconform_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.cases, m.failures, m.transform, m.runs,
		m.lastTotal, m.lastPassed, m.lastDuration, m.lastTimestamp)
	return m
}

func (m *Metrics) RunStarted(int)              {}
func (m *Metrics) CaseStarted(domain.TestCase) {}

func (m *Metrics) CaseFinished(res domain.CaseResult) {
	m.cases.WithLabelValues(res.Verdict.Status.String()).Inc()
	if !res.Verdict.Passed() {
		m.failures.WithLabelValues(domain.FailureKind(res.Verdict.Err)).Inc()
	}
	if res.Response != nil {
		m.transform.Observe(res.Duration.Seconds())
	}
}

func (m *Metrics) RunFinished(s domain.RunSummary) {
	outcome := "pass"
	if s.Total == 0 {
		outcome = "empty"
	} else if s.Failed() > 0 {
		outcome = "fail"
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.lastTotal.Set(float64(s.Total))
	m.lastPassed.Set(float64(s.Passed))
	m.lastDuration.Set(s.Duration.Seconds())
	m.lastTimestamp.Set(float64(time.Now().Unix()))
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics for a node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Expose serves /metrics on addr until ctx is done
func Expose(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
