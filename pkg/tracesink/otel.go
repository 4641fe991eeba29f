package tracesink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// NewOTelProvider builds a tracer provider for the given service name. The
// caller owns shutdown.
func NewOTelProvider(serviceName string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1))),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// OTelSink exports traces through an OpenTelemetry tracer provider. Each
// session becomes a root span held open until the trace ends; turn and tool
// annotations become child spans with explicit timestamps.
type OTelSink struct {
	tracer trace.Tracer
}

// NewOTelSink wraps a tracer provider as a Sink.
func NewOTelSink(tp trace.TracerProvider) *OTelSink {
	return &OTelSink{tracer: tp.Tracer("voxtel/tracesink")}
}

// StartTrace opens the root span for a session.
func (s *OTelSink) StartTrace(ctx context.Context, params TraceParams) (Trace, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []attribute.KeyValue{
		attribute.String("voxtel.trace_id", params.ID),
	}
	if params.UserID != "" {
		attrs = append(attrs, attribute.String("voxtel.user_id", params.UserID))
	}
	if len(params.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("voxtel.tags", params.Tags))
	}
	if len(params.Metadata) > 0 {
		attrs = append(attrs, jsonAttr("voxtel.metadata", params.Metadata))
	}

	spanCtx, root := s.tracer.Start(ctx, params.Name, trace.WithAttributes(attrs...))

	return &otelTrace{
		id:     params.ID,
		tracer: s.tracer,
		ctx:    spanCtx,
		root:   root,
	}, nil
}

type otelTrace struct {
	mu     sync.Mutex
	id     string
	tracer trace.Tracer
	ctx    context.Context
	root   trace.Span
	ended  bool
}

func (t *otelTrace) ID() string {
	return t.id
}

func (t *otelTrace) AddSpan(_ context.Context, span Span) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended {
		return fmt.Errorf("trace %q already ended", t.id)
	}

	var attrs []attribute.KeyValue
	if len(span.Input) > 0 {
		attrs = append(attrs, jsonAttr("voxtel.input", span.Input))
	}
	if len(span.Output) > 0 {
		attrs = append(attrs, jsonAttr("voxtel.output", span.Output))
	}
	if len(span.Metadata) > 0 {
		attrs = append(attrs, jsonAttr("voxtel.metadata", span.Metadata))
	}

	_, child := t.tracer.Start(
		t.ctx,
		span.Name,
		trace.WithTimestamp(span.StartTime),
		trace.WithAttributes(attrs...),
	)

	end := span.EndTime
	if end.IsZero() {
		end = span.StartTime
	}
	child.End(trace.WithTimestamp(end))

	return nil
}

func (t *otelTrace) End(_ context.Context, outcome Outcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended {
		return fmt.Errorf("trace %q already ended", t.id)
	}
	t.ended = true

	if len(outcome.Output) > 0 {
		t.root.SetAttributes(jsonAttr("voxtel.output", outcome.Output))
	}
	if len(outcome.Metadata) > 0 {
		t.root.SetAttributes(jsonAttr("voxtel.metadata", outcome.Metadata))
	}

	if outcome.Completed {
		t.root.SetStatus(codes.Ok, "")
	} else {
		t.root.SetStatus(codes.Error, "session ended abnormally")
	}
	t.root.End()

	return nil
}

// jsonAttr encodes a metadata map as a single JSON string attribute.
func jsonAttr(key string, value map[string]any) attribute.KeyValue {
	data, err := json.Marshal(value)
	if err != nil {
		return attribute.String(key, fmt.Sprintf("%v", value))
	}
	return attribute.String(key, string(data))
}
