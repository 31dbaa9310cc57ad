package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alanyang/xactlock/internal/domain/event"
	porteventbus "github.com/alanyang/xactlock/internal/port/eventbus"
)

var _ porteventbus.Publisher = (*Recorder)(nil)

// Recorder turns lock events into Prometheus series.
type Recorder struct {
	attemptsFailed  prometheus.Counter
	acquired        prometheus.Counter
	released        prometheus.Counter
	failures        *prometheus.CounterVec
	restoreFailures prometheus.Counter
	waitSeconds     prometheus.Histogram
	heldSeconds     prometheus.Histogram
}

// New registers the collectors on reg. It panics on duplicate registration,
// like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attemptsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xactlock",
			Name:      "attempts_not_acquired_total",
			Help:      "Try-lock attempts that found the lock held elsewhere.",
		}),
		acquired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xactlock",
			Name:      "acquired_total",
			Help:      "Advisory locks acquired.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xactlock",
			Name:      "released_total",
			Help:      "Advisory locks released by committing the owning transaction.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xactlock",
			Name:      "failures_total",
			Help:      "Failed acquisitions by error kind.",
		}, []string{"kind"}),
		restoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xactlock",
			Name:      "autocommit_restore_failures_total",
			Help:      "Sessions whose autocommit flag could not be restored.",
		}),
		waitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xactlock",
			Name:      "wait_seconds",
			Help:      "Time from first attempt to acquisition.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		heldSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xactlock",
			Name:      "held_seconds",
			Help:      "Time the lock was held.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	reg.MustRegister(
		r.attemptsFailed, r.acquired, r.released, r.failures,
		r.restoreFailures, r.waitSeconds, r.heldSeconds,
	)
	return r
}

func (r *Recorder) Publish(_ context.Context, e event.Event) error {
	switch e.Type {
	case event.TypeAttemptFailed:
		r.attemptsFailed.Inc()
	case event.TypeAcquired:
		r.acquired.Inc()
		r.waitSeconds.Observe(e.Elapsed.Seconds())
	case event.TypeReleased:
		r.released.Inc()
		r.heldSeconds.Observe(e.Elapsed.Seconds())
	case event.TypeFailed:
		r.failures.WithLabelValues(e.ErrorKind).Inc()
	case event.TypeAutoCommitRestoreFailed:
		r.restoreFailures.Inc()
	}
	return nil
}
