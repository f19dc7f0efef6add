package telemetry

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "txledger-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestKafkaHeaders_RoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, traceID := ContextWithNewTrace(context.Background())
	require.NotEmpty(t, traceID)

	headers := []kafka.Header{{Key: "Content-Type", Value: []byte("application/json")}}
	InjectKafkaHeaders(ctx, &headers)
	require.Len(t, headers, 2)
	assert.Equal(t, "traceparent", headers[1].Key)

	extracted := ExtractKafkaHeaders(context.Background(), headers)
	spanCtx := trace.SpanContextFromContext(extracted)
	assert.True(t, spanCtx.IsValid())
	assert.True(t, spanCtx.IsRemote())
	assert.Equal(t, traceID, TraceIDFromContext(extracted))
}

func TestHeaderCarrier_CaseInsensitive(t *testing.T) {
	carrier := &headerCarrier{headers: []kafka.Header{{Key: "TraceParent", Value: []byte("old")}}}
	carrier.Set("traceparent", "new")

	assert.Len(t, carrier.headers, 1)
	assert.Equal(t, "new", carrier.Get("TRACEPARENT"))
	assert.Equal(t, []string{"TraceParent"}, carrier.Keys())
}

func TestContextWithTraceID(t *testing.T) {
	_, idHex, ok := NewTraceID()
	require.True(t, ok)

	ctx, ok := ContextWithTraceID(context.Background(), idHex)
	require.True(t, ok)
	assert.Equal(t, idHex, TraceIDFromContext(ctx))

	_, ok = ContextWithTraceID(context.Background(), "not-hex")
	assert.False(t, ok)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
