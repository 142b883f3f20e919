package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/fringeproc/pkg/common/logger"
)

func TestInitTelemetry_NoEndpointIsNoop(t *testing.T) {
	t.Parallel()

	p, teardown, err := InitTelemetry(logger.Noop(), Config{ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)
	require.NotNil(t, p.Meter)
	assert.NotPanics(t, func() { teardown(context.Background()) })

	_, span := p.Tracer.Tracer("t").Start(context.Background(), "span")
	assert.False(t, span.SpanContext().IsValid())
}

func TestGetTraceID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00000000000000000000000000000000", GetTraceID(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("t").Start(context.Background(), "span")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}

func TestAttributesFromMap(t *testing.T) {
	t.Parallel()

	attrs := attributesFromMap(map[string]string{"k": "v"})
	require.Len(t, attrs, 1)
	assert.Equal(t, "k", string(attrs[0].Key))
	assert.Equal(t, "v", attrs[0].Value.AsString())
}
