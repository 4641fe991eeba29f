package tracesink

import (
	"context"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MemorySink records traces in memory. It backs tests and the offline
// replay tool; nothing about it is durable.
type MemorySink struct {
	mu     sync.Mutex
	traces map[string]*MemoryTrace
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{traces: make(map[string]*MemoryTrace)}
}

// StartTrace opens a trace. Reusing an id returns an error; the manager
// never does this for live sessions.
func (s *MemorySink) StartTrace(_ context.Context, params TraceParams) (Trace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.traces[params.ID]; exists {
		return nil, fmt.Errorf("trace %q already exists", params.ID)
	}

	tr := &MemoryTrace{sink: s, Params: params}
	s.traces[params.ID] = tr
	return tr, nil
}

// Trace returns a recorded trace by id.
func (s *MemorySink) Trace(id string) (*MemoryTrace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.traces[id]
	return tr, ok
}

// Len returns the number of recorded traces.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.traces)
}

// RecordedSpan is a span as stored by the memory sink.
type RecordedSpan struct {
	SpanID string
	Span
}

// MemoryTrace is a recorded trace. Fields are safe to read after the trace
// has ended; concurrent access during recording goes through the sink lock.
type MemoryTrace struct {
	sink *MemorySink

	Params  TraceParams
	Spans   []RecordedSpan
	Outcome *Outcome
}

// ID returns the trace identifier.
func (t *MemoryTrace) ID() string {
	return t.Params.ID
}

// AddSpan appends a span with a generated id.
func (t *MemoryTrace) AddSpan(_ context.Context, span Span) error {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()

	if t.Outcome != nil {
		return fmt.Errorf("trace %q already ended", t.Params.ID)
	}

	spanID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate span id: %w", err)
	}

	t.Spans = append(t.Spans, RecordedSpan{SpanID: spanID, Span: span})
	return nil
}

// End records the trace outcome. Ending twice is an error.
func (t *MemoryTrace) End(_ context.Context, outcome Outcome) error {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()

	if t.Outcome != nil {
		return fmt.Errorf("trace %q already ended", t.Params.ID)
	}

	t.Outcome = &outcome
	return nil
}
