// Package tracesink defines the observability boundary the session manager
// talks to. A trace corresponds to one voice session; spans correspond to
// turns and tool invocations within it. Sinks are injected, optional, and
// best-effort: callers must tolerate a nil Sink and must not let sink
// failures propagate.
package tracesink

import (
	"context"
	"time"
)

// TraceParams describes a trace to be opened for a session.
type TraceParams struct {
	// ID is the external trace identifier. The manager uses the session
	// id, so traces and sessions correlate one to one.
	ID       string
	Name     string
	UserID   string
	Metadata map[string]any
	Tags     []string
}

// Span is one annotation appended to a trace: a conversational turn, a tool
// invocation, or their completions.
type Span struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Input     map[string]any
	Output    map[string]any
	Metadata  map[string]any
}

// Outcome closes a trace with its final summary. Completed is false for
// traces ended by errors or timeouts.
type Outcome struct {
	Output    map[string]any
	Metadata  map[string]any
	Completed bool
}

// Sink opens traces. Implementations must be safe for concurrent use.
type Sink interface {
	StartTrace(ctx context.Context, params TraceParams) (Trace, error)
}

// Trace is an open trace handle.
type Trace interface {
	ID() string
	AddSpan(ctx context.Context, span Span) error
	End(ctx context.Context, outcome Outcome) error
}
