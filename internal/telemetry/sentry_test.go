package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoDSN(t *testing.T) {
	shutdown, err := Init(Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestSampleRateFor(t *testing.T) {
	assert.Equal(t, 1.0, SampleRateFor(""))
	assert.Equal(t, 1.0, SampleRateFor("development"))
	assert.Equal(t, 0.1, SampleRateFor("production"))
}

func TestStartSpan_WithoutClient(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "session.ask", SpanAttributes{SessionID: "s-1", Operation: "ask"})

	require.NotNil(t, ctx)
	require.NotNil(t, span)

	childCtx, child := StartSpan(ctx, "answer.synthesize", SpanAttributes{Passages: 4})
	assert.NotNil(t, childCtx)

	child.Finish(errors.New("model failed"))
	span.Finish(nil)
}

func TestSpan_NilInnerIsSafe(t *testing.T) {
	span := &Span{}

	span.SetData("k", "v")
	span.Finish(context.Canceled)
}
