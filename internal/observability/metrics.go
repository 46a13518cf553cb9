package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/opensonata/sonata-verify/pkg/models"
)

const namespace = "sonata_verify"

// RunMetrics holds the gauges describing the outcome of a verification run.
type RunMetrics struct {
	registry *prometheus.Registry

	warnings       prometheus.Gauge
	errors         prometheus.Gauge
	exitStatus     prometheus.Gauge
	nodesReporting prometheus.Gauge
	nodesSawSignal prometheus.Gauge
	lastRun        prometheus.Gauge
	checkPassed    *prometheus.GaugeVec
}

// NewRunMetrics creates the run gauges on a dedicated registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warnings",
			Help:      "Number of warnings recorded by the last verification run.",
		}),
		errors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "errors",
			Help:      "Number of errors recorded by the last verification run.",
		}),
		exitStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exit_status",
			Help:      "Exit status of the last verification run.",
		}),
		nodesReporting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_reporting",
			Help:      "Activity unit rows found for the activity under test.",
		}),
		nodesSawSignal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_saw_signal",
			Help:      "Confirmed test signal detections found after the reference time.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last verification run finished.",
		}),
		checkPassed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_passed",
			Help:      "Whether a check finished without errors (1) or not (0).",
		}, []string{"check"}),
	}

	m.registry.MustRegister(
		m.warnings,
		m.errors,
		m.exitStatus,
		m.nodesReporting,
		m.nodesSawSignal,
		m.lastRun,
		m.checkPassed,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records the outcome of a finished run.
func (m *RunMetrics) Observe(r *models.Report) {
	m.warnings.Set(float64(r.Warnings))
	m.errors.Set(float64(r.Errors))
	m.exitStatus.Set(float64(r.ExitStatus))
	m.nodesReporting.Set(float64(len(r.NodesReporting)))
	m.nodesSawSignal.Set(float64(len(r.NodesSawSignal)))
	m.lastRun.Set(float64(r.FinishedAt.Unix()))

	for _, c := range r.Checks {
		v := 0.0
		if c.Passed() {
			v = 1
		}
		m.checkPassed.WithLabelValues(c.Name).Set(v)
	}
}

// Push sends the current gauge values to a Prometheus Pushgateway,
// replacing any metrics previously pushed for job.
func (m *RunMetrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
