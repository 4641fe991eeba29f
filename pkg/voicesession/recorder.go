package voicesession

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxtel/voxtel/pkg/tracesink"
)

// RecordEvent applies a typed event to a session at the given time. Events
// for unknown or already-ended sessions silently no-op: this path races
// against disconnects and the idle sweep, and losing telemetry must never
// surface as an error.
func (m *Manager) RecordEvent(ctx context.Context, sessionID string, event Event, at time.Time) {
	if ctx == nil {
		ctx = context.Background()
	}
	if at.IsZero() {
		at = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		log.Debug().
			Str("session_id", sessionID).
			Str("event_type", string(event.Type())).
			Msg("Event for unknown session dropped")
		return
	}

	switch e := event.(type) {
	case TurnStart:
		m.recordTurnStart(ctx, s, e, at)
	case TurnComplete:
		m.recordTurnComplete(ctx, s, e, at)
	case ToolCall:
		m.recordToolCall(ctx, s, e, at)
	case ToolResult:
		m.recordToolResult(ctx, s, e, at)
	default:
		log.Warn().
			Str("session_id", sessionID).
			Str("event_type", string(event.Type())).
			Msg("Unhandled event type dropped")
	}
}

// recordTurnStart is last-write-wins on the turn counter: a later
// turn_start always overwrites, even when events arrive out of order.
func (m *Manager) recordTurnStart(ctx context.Context, s *session, e TurnStart, at time.Time) {
	s.currentTurn = e.TurnNumber
	m.turnStart[turnKey(s.id, e.TurnNumber)] = at

	if m.metrics != nil {
		m.metrics.TurnsTotal.Inc()
	}

	m.addSpan(ctx, s, tracesink.Span{
		Name:      "turn_start",
		StartTime: at,
		Input: map[string]any{
			"turnNumber":     e.TurnNumber,
			"userTranscript": e.UserTranscript,
		},
	})
}

func (m *Manager) recordTurnComplete(ctx context.Context, s *session, e TurnComplete, at time.Time) {
	key := turnKey(s.id, e.TurnNumber)

	// Missing start means the sweep or an out-of-order stream already
	// cleared it; the event's own timestamp is the best remaining anchor.
	start, ok := m.turnStart[key]
	if !ok {
		start = at
	}
	delete(m.turnStart, key)

	m.addSpan(ctx, s, tracesink.Span{
		Name:      "turn",
		StartTime: start,
		EndTime:   at,
		Output: map[string]any{
			"turnNumber":   e.TurnNumber,
			"aiTranscript": e.AITranscript,
			"durationMs":   e.DurationMs,
		},
	})
}

func (m *Manager) recordToolCall(ctx context.Context, s *session, e ToolCall, at time.Time) {
	s.toolCallCount++

	if m.metrics != nil {
		m.metrics.ToolCallsTotal.Inc()
	}

	m.addSpan(ctx, s, tracesink.Span{
		Name:      "tool_call",
		StartTime: at,
		Input: map[string]any{
			"turnNumber": e.TurnNumber,
			"toolName":   e.ToolName,
			"toolArgs":   e.ToolArgs,
		},
	})
}

func (m *Manager) recordToolResult(ctx context.Context, s *session, e ToolResult, at time.Time) {
	start := at
	if e.DurationMs > 0 {
		start = at.Add(-time.Duration(e.DurationMs) * time.Millisecond)
	}

	m.addSpan(ctx, s, tracesink.Span{
		Name:      "tool_result",
		StartTime: start,
		EndTime:   at,
		Output: map[string]any{
			"turnNumber": e.TurnNumber,
			"toolName":   e.ToolName,
			"result":     e.Result,
			"durationMs": e.DurationMs,
		},
	})
}

func (m *Manager) addSpan(ctx context.Context, s *session, span tracesink.Span) {
	if s.trace == nil {
		return
	}
	if err := s.trace.AddSpan(ctx, span); err != nil {
		log.Error().
			Err(err).
			Str("session_id", s.id).
			Str("span", span.Name).
			Msg("Failed to forward span to trace sink")
		m.sinkError()
	}
}
