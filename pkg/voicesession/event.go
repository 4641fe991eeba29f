package voicesession

// EventType discriminates the telemetry events a session can receive.
type EventType string

const (
	EventTurnStart    EventType = "turn_start"
	EventTurnComplete EventType = "turn_complete"
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
)

// Event is the sealed union of telemetry event payloads. One concrete type
// exists per EventType; payloads are validated before they reach the
// manager (see envelope.go).
type Event interface {
	Type() EventType
}

// TurnStart marks the beginning of a conversational turn.
type TurnStart struct {
	TurnNumber     int    `json:"turnNumber"`
	UserTranscript string `json:"userTranscript,omitempty"`
}

// TurnComplete marks the end of a conversational turn.
type TurnComplete struct {
	TurnNumber   int    `json:"turnNumber"`
	AITranscript string `json:"aiTranscript,omitempty"`
	DurationMs   int64  `json:"durationMs,omitempty"`
}

// ToolCall records a tool invocation within a turn. A matching ToolResult
// is expected but not required.
type ToolCall struct {
	TurnNumber int            `json:"turnNumber"`
	ToolName   string         `json:"toolName"`
	ToolArgs   map[string]any `json:"toolArgs,omitempty"`
}

// ToolResult closes out a ToolCall with the tool's output.
type ToolResult struct {
	TurnNumber int    `json:"turnNumber"`
	ToolName   string `json:"toolName"`
	Result     any    `json:"result,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func (TurnStart) Type() EventType    { return EventTurnStart }
func (TurnComplete) Type() EventType { return EventTurnComplete }
func (ToolCall) Type() EventType     { return EventToolCall }
func (ToolResult) Type() EventType   { return EventToolResult }

// EndReason explains why a session ended.
type EndReason string

const (
	EndUserDisconnect EndReason = "user_disconnect"
	EndError          EndReason = "error"
	EndTimeout        EndReason = "timeout"
)

// completed reports whether the reason counts as a normal completion for
// the trace outcome.
func (r EndReason) completed() bool {
	return r != EndError && r != EndTimeout
}
