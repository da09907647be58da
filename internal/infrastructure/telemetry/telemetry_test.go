package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(transitions.With(prometheus.Labels{"operation": "start", "result": "ok"}))
	RecordTransition("start", "ok", 3*time.Millisecond)
	after := testutil.ToFloat64(transitions.With(prometheus.Labels{"operation": "start", "result": "ok"}))
	assert.Equal(t, before+1, after)
}

func TestRecordSweep(t *testing.T) {
	okBefore := testutil.ToFloat64(sweepRuns.With(prometheus.Labels{"result": "ok"}))
	errBefore := testutil.ToFloat64(sweepRuns.With(prometheus.Labels{"result": "error"}))
	delayedBefore := testutil.ToFloat64(sweepTransitions)

	RecordSweep(3, nil)
	RecordSweep(0, errors.New("storage down"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(sweepRuns.With(prometheus.Labels{"result": "ok"})))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(sweepRuns.With(prometheus.Labels{"result": "error"})))
	assert.Equal(t, delayedBefore+3, testutil.ToFloat64(sweepTransitions))
}

func TestInitTracingWithoutExporter(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, TracingConfig{ServiceName: "facility-hub-test", SamplingRate: 1})
	require.NoError(t, err)
	defer func() { require.NoError(t, ShutdownTracing(ctx, tp)) }()

	_, span := otel.Tracer("test").Start(ctx, "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.IsRecording())
}

func TestShutdownNilProvider(t *testing.T) {
	assert.NoError(t, ShutdownTracing(context.Background(), nil))
}
