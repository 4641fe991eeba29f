package tracesink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingSink(t *testing.T) (*OTelSink, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return NewOTelSink(tp), recorder
}

func TestOTelSink_TraceLifecycle(t *testing.T) {
	sink, recorder := newRecordingSink(t)
	ctx := context.Background()

	tr, err := sink.StartTrace(ctx, TraceParams{
		ID:     "sess-1",
		Name:   "voice-session",
		UserID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", tr.ID())

	start := time.Now()
	require.NoError(t, tr.AddSpan(ctx, Span{
		Name:      "turn",
		StartTime: start,
		EndTime:   start.Add(time.Second),
		Output:    map[string]any{"aiTranscript": "hello"},
	}))

	require.NoError(t, tr.End(ctx, Outcome{
		Output:    map[string]any{"totalTurns": 1},
		Completed: true,
	}))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	child := spans[0]
	assert.Equal(t, "turn", child.Name())
	assert.Equal(t, start.Add(time.Second).Unix(), child.EndTime().Unix())

	root := spans[1]
	assert.Equal(t, "voice-session", root.Name())
	assert.Equal(t, root.SpanContext().TraceID(), child.SpanContext().TraceID(), "child spans share the session trace")
}

func TestOTelSink_EndIsTerminal(t *testing.T) {
	sink, _ := newRecordingSink(t)
	ctx := context.Background()

	tr, err := sink.StartTrace(ctx, TraceParams{ID: "sess-1", Name: "voice-session"})
	require.NoError(t, err)

	require.NoError(t, tr.End(ctx, Outcome{Completed: false}))
	assert.Error(t, tr.AddSpan(ctx, Span{Name: "late", StartTime: time.Now()}))
	assert.Error(t, tr.End(ctx, Outcome{}))
}

func TestNewOTelProvider(t *testing.T) {
	tp, err := NewOTelProvider("voxtel-test")
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NoError(t, tp.Shutdown(context.Background()))
}
