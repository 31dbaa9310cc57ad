package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/xactlock/internal/adapter/metrics"
	"github.com/alanyang/xactlock/internal/domain/event"
	"github.com/alanyang/xactlock/internal/domain/lock"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func counter(t *testing.T, mfs map[string]*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf, ok := mfs[name]
	require.True(t, ok, "metric %s not gathered", name)
	require.Len(t, mf.GetMetric(), 1)
	return mf.GetMetric()[0].GetCounter().GetValue()
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.New(reg)
	ctx := context.Background()
	id := uuid.New()
	n := lock.NumberFor(lock.DefaultNamespace, 1)

	publish := func(e event.Event) {
		require.NoError(t, r.Publish(ctx, e))
	}

	publish(event.New(event.TypeAttemptFailed, id, n))
	publish(event.New(event.TypeAttemptFailed, id, n))
	acquired := event.New(event.TypeAcquired, id, n)
	acquired.Elapsed = 2 * time.Second
	publish(acquired)
	released := event.New(event.TypeReleased, id, n)
	released.Elapsed = 30 * time.Millisecond
	publish(released)
	publish(event.New(event.TypeAutoCommitRestoreFailed, id, n))

	for _, kind := range []lock.Kind{lock.KindRetriesExceeded, lock.KindRetriesExceeded, lock.KindAcquire} {
		e := event.New(event.TypeFailed, id, n)
		e.ErrorKind = kind.String()
		publish(e)
	}

	mfs := gather(t, reg)
	assert.Equal(t, 2.0, counter(t, mfs, "xactlock_attempts_not_acquired_total"))
	assert.Equal(t, 1.0, counter(t, mfs, "xactlock_acquired_total"))
	assert.Equal(t, 1.0, counter(t, mfs, "xactlock_released_total"))
	assert.Equal(t, 1.0, counter(t, mfs, "xactlock_autocommit_restore_failures_total"))

	wait := mfs["xactlock_wait_seconds"].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), wait.GetSampleCount())
	assert.InDelta(t, 2.0, wait.GetSampleSum(), 1e-9)

	held := mfs["xactlock_held_seconds"].GetMetric()[0].GetHistogram()
	assert.InDelta(t, 0.03, held.GetSampleSum(), 1e-9)

	byKind := map[string]float64{}
	for _, m := range mfs["xactlock_failures_total"].GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "kind" {
				byKind[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"retries_exceeded": 2, "acquire": 1}, byKind)
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}
