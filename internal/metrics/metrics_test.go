package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("inspectsync", reg)

	m.IncCycle("ok")
	m.IncCycle("ok")
	m.IncCycle("empty")
	m.IncChanged("added")
	m.IncSkipped()
	m.IncMirrorError("xlsx")
	m.ObserveWrite(7, time.Unix(1700000000, 0))
	m.ObserveDuration(250 * time.Millisecond)
	m.AddHandlerErrors(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingsChanged.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MirrorErrors.WithLabelValues("xlsx")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.SnapshotSize))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastSuccess))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CycleDuration))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventHandlerErrors))
}
