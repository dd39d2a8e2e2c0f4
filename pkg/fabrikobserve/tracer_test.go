package fabrikobserve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_DisabledReturnsNoop(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestInitTracer_EnabledBuildsProvider(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{Enabled: true, ServiceName: "fabrik-test", SamplingRate: 1.0})
	require.NoError(t, err)
	require.NotNil(t, tp)
}

func TestStartSpan_RecordsErrorStatus(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{Enabled: true, SamplingRate: 1.0})
	require.NoError(t, err)

	tracer := tp.Tracer("test")
	_, end := StartSpan(context.Background(), tracer, "op")
	end(errors.New("boom"))
}

func TestStartSpan_RecordsOKStatusOnNilError(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{Enabled: true, SamplingRate: 1.0})
	require.NoError(t, err)

	tracer := tp.Tracer("test")
	ctx, end := StartSpan(context.Background(), tracer, "op")
	assert.NotNil(t, ctx)
	end(nil)
}
