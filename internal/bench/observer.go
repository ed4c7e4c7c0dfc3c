package bench

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.sia.tech/socbench/internal/redundancy"
)

// Benchmark kinds.
const (
	KindSOC  Kind = "soc"
	KindFeed Kind = "feed"
)

// Measured phases of a round trip.
const (
	PhaseConstruction Phase = "construction"
	PhaseUpload       Phase = "upload"
	PhaseDownload     Phase = "download"
)

type (
	// A Kind names a benchmark.
	Kind string

	// A Phase names a measured step.
	Phase string

	// A Sample is a single timed step.
	Sample struct {
		Kind     Kind
		Phase    Phase
		Level    redundancy.Level
		Duration time.Duration
		Err      error
	}

	// An Observer receives every timed step as it completes. Observers are
	// called from multiple goroutines.
	Observer interface {
		Observe(Sample)
	}

	// ObserverFunc adapts a function to an Observer.
	ObserverFunc func(Sample)

	// A PrometheusObserver exports samples as prometheus metrics.
	PrometheusObserver struct {
		latency  *prometheus.HistogramVec
		failures *prometheus.CounterVec
	}

	nopObserver struct{}
)

// Observe implements Observer.
func (fn ObserverFunc) Observe(s Sample) { fn(s) }

func (nopObserver) Observe(Sample) {}

// Observe implements Observer.
func (po *PrometheusObserver) Observe(s Sample) {
	labels := prometheus.Labels{
		"kind":       string(s.Kind),
		"phase":      string(s.Phase),
		"redundancy": s.Level.String(),
	}
	if s.Err != nil {
		po.failures.With(labels).Inc()
		return
	}
	po.latency.With(labels).Observe(s.Duration.Seconds())
}

// NewPrometheusObserver registers the benchmark metrics with reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	labels := []string{"kind", "phase", "redundancy"}
	po := &PrometheusObserver{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "socbench",
			Name:      "step_duration_seconds",
			Help:      "Latency of chunk construction, upload and download.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 18),
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socbench",
			Name:      "step_failures_total",
			Help:      "Number of failed construction, upload and download steps.",
		}, labels),
	}
	for _, c := range []prometheus.Collector{po.latency, po.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return po, nil
}
