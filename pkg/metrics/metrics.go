// Package metrics records the outcome of link operations as Prometheus metrics
package metrics

import (
	"fmt"
	"time"

	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eve_link_manager"

// Collector implements linkops.Recorder
type Collector struct {
	gatherer prometheus.Gatherer

	Steps      *prometheus.CounterVec
	Operations *prometheus.CounterVec
	Durations  *prometheus.HistogramVec
	BatchLines *prometheus.CounterVec
}

// NewCollector registers the metrics in the given registry. If reg is nil, a new registry is used.
func NewCollector(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "steps_total",
		Help:      "Suspend and resume calls, labeled by operation and result.",
	}, []string{"operation", "result"})

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Completed operations, labeled by operation and result.",
	}, []string{"operation", "result"})

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of the operations in seconds, including flap delays.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"operation"})

	lines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_lines_total",
		Help:      "Processed batch directive lines, labeled by status.",
	}, []string{"status"})

	for _, c := range []prometheus.Collector{steps, operations, durations, lines} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	return &Collector{
		gatherer:   reg,
		Steps:      steps,
		Operations: operations,
		Durations:  durations,
		BatchLines: lines,
	}, nil
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// Step records a suspend or resume call
func (c *Collector) Step(kind linkops.Kind, err error) {
	c.Steps.WithLabelValues(kind.String(), result(err)).Inc()
}

// Operation records a completed operation
func (c *Collector) Operation(kind linkops.Kind, elapsed time.Duration, err error) {
	c.Operations.WithLabelValues(kind.String(), result(err)).Inc()
	c.Durations.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

// BatchLine records the status of a batch line
func (c *Collector) BatchLine(status string) {
	c.BatchLines.WithLabelValues(status).Inc()
}

// WriteTextfile writes the metrics to a file in the text exposition format, for its
// collection by the node exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
